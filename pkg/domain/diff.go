package domain

import (
	"reflect"
)

// SnapshotDiff is the change between two snapshots of one draft.
// It is serialized to JSON for partial updates on the client.
type SnapshotDiff struct {
	// FormID is always present to identify the target.
	FormID string `json:"form_id"`

	Step *int `json:"step,omitempty"`

	// Values contains only changed, added or deleted fields.
	// For deletions, the field is present with a nil value.
	// Clients merge these updates into their local copy, the same way a
	// draft patch is merged on the server.
	Values map[string]any `json:"values,omitempty"`
}

// Diff calculates the difference between oldSnap and newSnap.
// If oldSnap is nil, it returns a diff representing the entire newSnap (initial load).
// It returns nil when nothing changed.
func Diff(oldSnap, newSnap *Snapshot) *SnapshotDiff {
	if newSnap == nil {
		return nil
	}

	diff := &SnapshotDiff{FormID: newSnap.FormID}
	if oldSnap == nil || oldSnap.Step != newSnap.Step {
		step := newSnap.Step
		diff.Step = &step
	}
	diff.Values = diffValues(oldSnap, newSnap)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffValues(old, new *Snapshot) map[string]any {
	delta := make(map[string]any)

	if old == nil {
		for k, v := range new.Values {
			delta[k] = v
		}
	} else {
		for k, newVal := range new.Values {
			oldVal, exists := old.Values[k]
			if !exists || !reflect.DeepEqual(oldVal, newVal) {
				delta[k] = newVal
			}
		}
		for k := range old.Values {
			if _, exists := new.Values[k]; !exists {
				delta[k] = nil
			}
		}
	}

	// nil so omitempty drops the key
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return d.Step == nil && len(d.Values) == 0
}
