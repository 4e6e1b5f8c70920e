// Package bulk builds subscriber filters and executes bulk mutations
// against the backend in bounded-concurrency chunks.
package bulk

import "time"

// Filter selects the subscribers a bulk operation applies to. Zero-valued
// fields mean "not filtered on" and are omitted from the payload, so the
// backend never sees ambiguous sentinels.
type Filter struct {
	Status         string    // enabled|disabled
	PlanID         int64     // 0 = any plan
	NodeID         int64     // 0 = any node
	ExpiringBefore time.Time // zero = no expiry bound
	UsernamePrefix string
}

// Payload compiles the filter to the backend's bulk-filter shape.
func (f Filter) Payload() map[string]interface{} {
	p := map[string]interface{}{}
	if f.Status != "" {
		p["status"] = f.Status
	}
	if f.PlanID != 0 {
		p["plan_id"] = f.PlanID
	}
	if f.NodeID != 0 {
		p["node_id"] = f.NodeID
	}
	if !f.ExpiringBefore.IsZero() {
		p["expiring_before"] = f.ExpiringBefore.UTC().Format(time.RFC3339)
	}
	if f.UsernamePrefix != "" {
		p["username_prefix"] = f.UsernamePrefix
	}
	return p
}

// Action is the mutation applied to every matched subscriber.
type Action struct {
	Op     string // enable|disable|change_plan|extend_expiry
	Params map[string]interface{}
}
