package form

import (
	"context"
	"errors"
	"fmt"

	"github.com/netvigil/ispadm/internal/query"
	"github.com/spf13/cast"
)

// Mode is the form's open mode.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

// State is the session's lifecycle state. The machine is
// closed -> open -> submitting -> closed on success, or submitting ->
// open on failure with the operator's edits preserved.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateSubmitting
)

// ErrPending is returned when Submit is called while a submission is
// already in flight for this session.
var ErrPending = errors.New("submission already in progress")

// Session is one live form over a schema.
type Session struct {
	schema   Schema
	mode     Mode
	state    State
	values   map[string]string      // display values
	original map[string]interface{} // server encoding at open, edit mode only
	dirty    map[string]bool
}

// NewSession builds a closed session over schema.
func NewSession(schema Schema) *Session {
	return &Session{schema: schema, state: StateClosed}
}

func (s *Session) State() State   { return s.state }
func (s *Session) Mode() Mode     { return s.mode }
func (s *Session) Schema() Schema { return s.schema }

// OpenCreate opens the form seeded from each field's declared default.
func (s *Session) OpenCreate() error {
	if s.state != StateClosed {
		return fmt.Errorf("form %s already open", s.schema.Resource)
	}
	s.mode = ModeCreate
	s.values = make(map[string]string, len(s.schema.Fields))
	s.original = nil
	s.dirty = make(map[string]bool)
	for i := range s.schema.Fields {
		f := &s.schema.Fields[i]
		if f.Default == nil {
			continue
		}
		display, err := displayValue(f, f.Default)
		if err != nil {
			return err
		}
		s.values[f.Name] = display
	}
	s.state = StateOpen
	return nil
}

// OpenEdit opens the form seeded from an entity's wire representation,
// mapping every field through its display transform.
func (s *Session) OpenEdit(entity map[string]interface{}) error {
	if s.state != StateClosed {
		return fmt.Errorf("form %s already open", s.schema.Resource)
	}
	s.mode = ModeEdit
	s.values = make(map[string]string, len(s.schema.Fields))
	s.original = make(map[string]interface{}, len(entity))
	s.dirty = make(map[string]bool)
	for i := range s.schema.Fields {
		f := &s.schema.Fields[i]
		v, ok := entity[f.Name]
		if !ok {
			continue
		}
		s.original[f.Name] = v
		display, err := displayValue(f, v)
		if err != nil {
			return err
		}
		s.values[f.Name] = display
	}
	s.state = StateOpen
	return nil
}

// Close abandons the draft. An in-flight mutation is not cancelled; it
// completes and invalidates caches harmlessly.
func (s *Session) Close() {
	s.state = StateClosed
	s.values = nil
	s.original = nil
	s.dirty = nil
}

// Value returns a field's current display value.
func (s *Session) Value(name string) string {
	return s.values[name]
}

// Enabled reports whether a field is currently enabled given the other
// fields' values.
func (s *Session) Enabled(name string) bool {
	f, ok := s.schema.Field(name)
	if !ok {
		return false
	}
	if f.EnabledWhen == nil {
		return true
	}
	return f.EnabledWhen(s.values)
}

// Set updates a field's display value. Disabled dependent fields reject
// edits rather than silently accepting values that would be dropped.
func (s *Session) Set(name, display string) error {
	if s.state != StateOpen {
		return fmt.Errorf("form %s is not open", s.schema.Resource)
	}
	f, ok := s.schema.Field(name)
	if !ok {
		return fmt.Errorf("form %s has no field %s", s.schema.Resource, name)
	}
	if !s.Enabled(name) {
		return fmt.Errorf("field %s is disabled by %s", name, dependencyHint(f))
	}
	s.values[name] = display
	s.dirty[name] = true
	return nil
}

func dependencyHint(f *Field) string {
	// The predicate is opaque; the label is the best hint we have.
	if f.Label != "" {
		return "the current " + f.Label + " dependencies"
	}
	return "another field's value"
}

// Payload maps the draft back through the inverse transforms into the
// server encoding. Untouched fields in edit mode emit their original
// server value unchanged, which is what makes load -> submit reproduce
// the original encoding exactly. Disabled dependent fields are excluded
// or zeroed per their declaration.
func (s *Session) Payload() (map[string]interface{}, error) {
	if s.state == StateClosed {
		return nil, fmt.Errorf("form %s is closed", s.schema.Resource)
	}
	payload := make(map[string]interface{}, len(s.schema.Fields))
	for i := range s.schema.Fields {
		f := &s.schema.Fields[i]

		if !s.Enabled(f.Name) {
			if f.ZeroWhenDisabled {
				payload[f.Name] = zeroValue(f)
			}
			continue
		}

		display, present := s.values[f.Name]

		// Fast-fail convenience only; the server's validation is
		// authoritative and its rejection is shown verbatim.
		if f.Required && display == "" {
			return nil, fmt.Errorf("%s is required", fieldLabel(f))
		}

		if s.mode == ModeEdit && !s.dirty[f.Name] {
			if orig, ok := s.original[f.Name]; ok {
				payload[f.Name] = orig
			}
			continue
		}
		if !present && f.Default == nil {
			continue
		}

		v, err := parseValue(f, display)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		if err := checkRange(f, v); err != nil {
			return nil, err
		}
		payload[f.Name] = v
	}
	return payload, nil
}

func fieldLabel(f *Field) string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// checkRange enforces the declared minimum, honoring the zero sentinel:
// a field whose zero means something ("unlimited") accepts zero even when
// Min would otherwise reject it.
func checkRange(f *Field, v interface{}) error {
	if f.Min <= 0 {
		return nil
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return nil
	}
	if n == 0 && f.ZeroMeaning != "" {
		return nil
	}
	if n < f.Min {
		return fmt.Errorf("%s must be at least %d", fieldLabel(f), f.Min)
	}
	return nil
}

// Submit runs the draft through the mutation runner. On success the
// session closes; on failure it stays open with the operator's values
// intact. A submit while one is pending is refused.
func (s *Session) Submit(ctx context.Context, m *query.Mutation) error {
	if s.state != StateOpen {
		if s.state == StateSubmitting {
			return ErrPending
		}
		return fmt.Errorf("form %s is not open", s.schema.Resource)
	}
	payload, err := s.Payload()
	if err != nil {
		return err
	}

	s.state = StateSubmitting
	if !m.Run(ctx, payload) {
		s.state = StateOpen
		return ErrPending
	}
	if err := m.Err(); err != nil {
		s.state = StateOpen
		return err
	}
	s.Close()
	return nil
}
