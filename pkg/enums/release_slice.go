package enums

import "fmt"

// ReleaseSlice distinguishes the rows a split vendor payout produces. A full
// payout is one row; a split payout is an immediate row plus a remainder row
// held until its hold_until timestamp.
type ReleaseSlice string

const (
	ReleaseSliceFull      ReleaseSlice = "full"
	ReleaseSliceImmediate ReleaseSlice = "immediate"
	ReleaseSliceRemainder ReleaseSlice = "remainder"
)

var validReleaseSlices = []ReleaseSlice{
	ReleaseSliceFull,
	ReleaseSliceImmediate,
	ReleaseSliceRemainder,
}

// IsValid reports whether the value is a known ReleaseSlice.
func (s ReleaseSlice) IsValid() bool {
	for _, candidate := range validReleaseSlices {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseReleaseSlice converts raw input into a ReleaseSlice.
func ParseReleaseSlice(value string) (ReleaseSlice, error) {
	for _, candidate := range validReleaseSlices {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid release slice %q", value)
}
