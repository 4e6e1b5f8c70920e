// Package form implements schema-driven entity form sessions: a client
// local draft of an entity's editable fields, seeded from defaults
// (create) or an existing entity (edit), with declared display transforms
// applied at load and reversed at submit.
package form

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// Kind selects the field's value semantics and its display transform.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindID        // int64 identity encoded as a decimal string on the wire
	KindBool
	KindEnum
	KindTimestamp // RFC3339 on the wire, "2006-01-02 15:04" on screen
	KindBytesGB   // bytes on the wire, gigabytes on screen
	KindClock12h  // 24h "15:04" on the wire, 12h "03:04 PM" on screen
	KindIP
)

// Field declares one editable entity field. Sentinel semantics are part
// of the declaration: ZeroMeaning documents what a zero value means and
// permits it even below Min, so "0 = unlimited" fields and "minimum 1"
// fields are never conflated.
type Field struct {
	Name     string
	Label    string
	Kind     Kind
	Required bool
	Enum     []string    // valid values for KindEnum
	Default  interface{} // seed value in create mode (server encoding)
	Min      int64       // numeric minimum when > 0
	// ZeroMeaning names the zero sentinel ("unlimited", "same as rate").
	// Empty means zero has no special meaning and Min applies strictly.
	ZeroMeaning string
	// EnabledWhen gates the field on other fields' current display values.
	// A disabled field is excluded from the payload, or zeroed when
	// ZeroWhenDisabled is set, so stale irrelevant data is never sent.
	EnabledWhen      func(values map[string]string) bool
	ZeroWhenDisabled bool
}

// Schema is the declarative description of one resource's form.
type Schema struct {
	Resource string
	Fields   []Field
}

// Field looks a field up by name.
func (s Schema) Field(name string) (*Field, bool) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// EntityMap flattens a typed entity into its wire representation, the
// shape OpenEdit seeds from. Numeric values keep their JSON encoding so
// untouched fields round-trip bit-for-bit.
func EntityMap(entity interface{}) (map[string]interface{}, error) {
	raw, err := jsonCodec.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("flatten entity: %w", err)
	}
	var m map[string]interface{}
	if err := jsonCodec.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("flatten entity: %w", err)
	}
	return m, nil
}
