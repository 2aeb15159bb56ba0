package audit

import (
	"sort"

	"github.com/spf13/cast"

	"github.com/sukryu/gqpanel/pkg/apis/panel/v1alpha1"
)

// Diff lists the fields whose values differ between two snapshots, including
// fields present on only one side. Values compare by their string form.
func Diff(prev, curr map[string]interface{}) []v1alpha1.FieldChange {
	var changes []v1alpha1.FieldChange

	for k, newVal := range curr {
		oldVal, exists := prev[k]
		if !exists || !sameValue(oldVal, newVal) {
			changes = append(changes, v1alpha1.FieldChange{Name: k, Old: oldVal, New: newVal})
		}
	}
	for k, oldVal := range prev {
		if _, exists := curr[k]; !exists {
			changes = append(changes, v1alpha1.FieldChange{Name: k, Old: oldVal, New: nil})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Name < changes[j].Name })
	return changes
}

func sameValue(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return cast.ToString(a) == cast.ToString(b)
}
