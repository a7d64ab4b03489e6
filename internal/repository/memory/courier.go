package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"service-fulfillment/internal/apperr"
	"service-fulfillment/internal/domain"
)

func (s *Store) phoneTaken(phone string, except int64) bool {
	for id, c := range s.st.couriers {
		if id != except && c.Phone == phone {
			return true
		}
	}
	return false
}

// GetCourier returns a courier by id, or nil if it does not exist.
func (s *Store) GetCourier(_ context.Context, id int64) (*domain.Courier, error) {
	defer s.lock()()
	c, ok := s.st.couriers[id]
	if !ok {
		return nil, nil
	}
	c.CoveragePincodes = slices.Clone(c.CoveragePincodes)
	return &c, nil
}

// ListCouriers returns couriers ordered by id, optionally paginated.
func (s *Store) ListCouriers(_ context.Context, limit, offset *int) ([]domain.Courier, error) {
	defer s.lock()()
	all := sortedValues(s.st.couriers, func(a, b domain.Courier) int { return cmp.Compare(a.ID, b.ID) })
	if offset != nil {
		if *offset >= len(all) {
			return []domain.Courier{}, nil
		}
		all = all[*offset:]
	}
	if limit != nil && *limit < len(all) {
		all = all[:*limit]
	}
	return all, nil
}

// CreateCourier stores c and returns its id.
func (s *Store) CreateCourier(_ context.Context, c *domain.Courier) (int64, error) {
	defer s.lock()()
	if s.phoneTaken(c.Phone, 0) {
		return 0, apperr.NewConflict("phone already registered", c.Phone)
	}
	s.st.nextCourier++
	cp := *c
	cp.ID = s.st.nextCourier
	cp.CreatedAt = s.now()
	cp.CoveragePincodes = domain.NormalizePincodes(c.CoveragePincodes)
	s.st.couriers[cp.ID] = cp
	return cp.ID, nil
}

// UpdateCourierPartial applies the non-nil fields of u.
func (s *Store) UpdateCourierPartial(_ context.Context, u domain.PartialCourierUpdate) (bool, error) {
	defer s.lock()()
	c, ok := s.st.couriers[u.ID]
	if !ok {
		return false, nil
	}
	if u.Phone != nil && s.phoneTaken(*u.Phone, u.ID) {
		return false, apperr.NewConflict("phone already registered")
	}
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Phone != nil {
		c.Phone = *u.Phone
	}
	if u.VehicleType != nil {
		c.VehicleType = *u.VehicleType
	}
	if u.Verified != nil {
		c.Verified = *u.Verified
	}
	if u.Active != nil {
		c.Active = *u.Active
	}
	if u.CoveragePincodes != nil {
		c.CoveragePincodes = domain.NormalizePincodes(*u.CoveragePincodes)
	}
	if u.Rating != nil {
		c.Rating = *u.Rating
	}
	s.st.couriers[u.ID] = c
	return true, nil
}

// MergeCourierCoverage adds pincodes to the courier's coverage.
func (s *Store) MergeCourierCoverage(_ context.Context, courierID int64, pincodes []string) error {
	defer s.lock()()
	c, ok := s.st.couriers[courierID]
	if !ok {
		return nil
	}
	c.CoveragePincodes = domain.MergePincodes(c.CoveragePincodes, pincodes)
	s.st.couriers[courierID] = c
	return nil
}

// RecordDeliveryOutcome bumps the delivery counters of a courier.
func (s *Store) RecordDeliveryOutcome(_ context.Context, courierID int64, success bool) error {
	defer s.lock()()
	c, ok := s.st.couriers[courierID]
	if !ok {
		return nil
	}
	c.TotalDeliveries++
	if success {
		c.SuccessfulDeliveries++
	}
	s.st.couriers[courierID] = c
	return nil
}

// ListEligibleCouriers returns active couriers covering the sector with their
// number of assignments on date.
func (s *Store) ListEligibleCouriers(_ context.Context, sectorID int64, date time.Time) ([]domain.CourierCandidate, error) {
	defer s.lock()()
	sec, ok := s.st.sectors[sectorID]
	if !ok {
		return nil, nil
	}
	daily := make(map[int64]int)
	for _, a := range s.st.assignments {
		if sameDate(a.Date, date) {
			daily[a.CourierID]++
		}
	}
	var out []domain.CourierCandidate
	for _, c := range sortedValues(s.st.couriers, func(a, b domain.Courier) int { return cmp.Compare(a.ID, b.ID) }) {
		if !c.Active {
			continue
		}
		if len(sec.Pincodes) > 0 && !domain.Overlaps(sec.Pincodes, c.CoveragePincodes) {
			continue
		}
		out = append(out, domain.CourierCandidate{
			CourierID:            c.ID,
			Active:               c.Active,
			Verified:             c.Verified,
			CoveragePincodes:     slices.Clone(c.CoveragePincodes),
			DailyAssignmentCount: daily[c.ID],
			Rating:               c.Rating,
		})
	}
	return out, nil
}
