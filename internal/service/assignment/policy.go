package assignment

import (
	"cmp"
	"slices"

	"service-fulfillment/internal/domain"
)

// Policy controls courier eligibility for automatic assignment.
type Policy struct {
	// DefaultCapacity is the per-assignment order target when none is requested.
	DefaultCapacity int
	// DailyLoadLimit caps assignments per courier per date; zero means no cap.
	DailyLoadLimit int
	// RequireVerified excludes unverified couriers.
	RequireVerified bool
}

func (p Policy) capacity(requested int) int {
	if requested > 0 {
		return requested
	}
	if p.DefaultCapacity > 0 {
		return p.DefaultCapacity
	}
	return domain.DefaultCourierCapacity
}

// eligible filters candidates and orders them by daily load ascending, then
// rating descending, then id. Couriers in bound already serve the slot.
func (p Policy) eligible(candidates []domain.CourierCandidate, bound map[int64]bool) []domain.CourierCandidate {
	out := make([]domain.CourierCandidate, 0, len(candidates))
	for _, c := range candidates {
		switch {
		case !c.Active, bound[c.CourierID]:
			continue
		case p.RequireVerified && !c.Verified:
			continue
		case p.DailyLoadLimit > 0 && c.DailyAssignmentCount >= p.DailyLoadLimit:
			continue
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.CourierCandidate) int {
		return cmp.Or(
			cmp.Compare(a.DailyAssignmentCount, b.DailyAssignmentCount),
			cmp.Compare(b.Rating, a.Rating),
			cmp.Compare(a.CourierID, b.CourierID),
		)
	})
	return out
}
