package domain

import (
	"regexp"
	"slices"
	"strings"
	"time"
)

// Sector is a geographic partition of pincodes owning one or more slots.
type Sector struct {
	ID        int64
	Name      string
	City      string
	Pincodes  []string
	Active    bool
	CreatedAt time.Time
}

var rePincode = regexp.MustCompile(`^[0-9]{4,10}$`)

// ValidatePincode checks the pincode format.
func ValidatePincode(s string) bool {
	return rePincode.MatchString(s)
}

// NormalizePincodes trims, deduplicates and sorts pincodes.
func NormalizePincodes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// MergePincodes returns the sorted union of a and b.
func MergePincodes(a, b []string) []string {
	return NormalizePincodes(append(slices.Clone(a), b...))
}

// Overlaps reports whether a and b share at least one pincode.
func Overlaps(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, p := range a {
		set[p] = struct{}{}
	}
	for _, p := range b {
		if _, ok := set[p]; ok {
			return true
		}
	}
	return false
}
