// Package enums holds the closed string value sets persisted in the database
// and carried over the wire.
package enums

import (
	"fmt"
	"slices"
)

// parse matches raw exactly against the declared values of one enum.
func parse[T ~string](declared []T, raw, kind string) (T, error) {
	if v := T(raw); slices.Contains(declared, v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
