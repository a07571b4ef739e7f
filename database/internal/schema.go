// Package internal holds helpers shared by the database backends.
package internal

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Column describes one column as the backend reports it.
type Column struct {
	Type     string
	Nullable bool
}

// CompareColumns checks actual against expected. Extra columns in actual
// are allowed. Types are compared case-insensitively.
func CompareColumns(table string, expected, actual map[string]Column) error {
	var missing, mismatched []string

	for _, name := range slices.Sorted(maps.Keys(expected)) {
		want := expected[name]
		got, ok := actual[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		if !strings.EqualFold(got.Type, want.Type) {
			mismatched = append(mismatched, fmt.Sprintf("%s: expected %s, got %s", name, want.Type, got.Type))
		}
		if got.Nullable != want.Nullable {
			mismatched = append(mismatched, fmt.Sprintf("%s: expected nullable=%v, got nullable=%v", name, want.Nullable, got.Nullable))
		}
	}

	if len(missing) == 0 && len(mismatched) == 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "table %s schema validation failed:\n", table)
	if len(missing) > 0 {
		fmt.Fprintf(&b, "  missing columns: %s\n", strings.Join(missing, ", "))
	}
	if len(mismatched) > 0 {
		b.WriteString("  mismatched columns:\n")
		for _, m := range mismatched {
			fmt.Fprintf(&b, "    - %s\n", m)
		}
	}
	return errors.New(b.String())
}
