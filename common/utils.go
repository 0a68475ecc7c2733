package common

import (
	"fmt"
	"strings"
)

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// FormatMat4 renders a column-major 4x4 matrix row by row, one "%- 5.2f " cell per element.
//
// Parameters:
//   - m: the matrix
//
// Returns:
//   - []string: four lines, one per matrix row
func FormatMat4(m [16]float32) []string {
	rows := make([]string, 4)
	for r := 0; r < 4; r++ {
		var sb strings.Builder
		for c := 0; c < 4; c++ {
			fmt.Fprintf(&sb, "%- 5.2f ", m[c*4+r])
		}
		rows[r] = sb.String()
	}
	return rows
}
