package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"service-fulfillment/internal/domain"
)

func compareLines(a, b domain.OrderLine) int {
	return cmp.Or(cmp.Compare(a.SlotID, b.SlotID), strings.Compare(a.OrderID, b.OrderID), strings.Compare(a.VendorID, b.VendorID))
}

// UpsertOrderLines stores lines, replacing items of open lines that already exist.
func (s *Store) UpsertOrderLines(_ context.Context, lines []domain.OrderLine) error {
	defer s.lock()()
	now := s.now()
	for _, l := range lines {
		key := lineKey{orderID: l.OrderID, vendorID: l.VendorID}
		if cur, ok := s.st.lines[key]; ok {
			if cur.Canceled {
				continue
			}
			cur.Items = slices.Clone(l.Items)
			cur.UpdatedAt = now
			s.st.lines[key] = cur
			continue
		}
		l.Date = domain.NormalizeDate(l.Date)
		l.Items = slices.Clone(l.Items)
		l.Canceled = false
		l.UpdatedAt = now
		s.st.lines[key] = l
	}
	return nil
}

// CancelOrder marks every open line of orderID canceled and returns them.
func (s *Store) CancelOrder(_ context.Context, orderID string) ([]domain.OrderLine, error) {
	defer s.lock()()
	var out []domain.OrderLine
	for key, l := range s.st.lines {
		if key.orderID != orderID || l.Canceled {
			continue
		}
		l.Canceled = true
		l.UpdatedAt = s.now()
		s.st.lines[key] = l
		out = append(out, l)
	}
	slices.SortFunc(out, compareLines)
	return out, nil
}

// ListOpenOrderLines returns the non-canceled lines for date.
func (s *Store) ListOpenOrderLines(_ context.Context, date time.Time) ([]domain.OrderLine, error) {
	defer s.lock()()
	var out []domain.OrderLine
	for _, l := range s.st.lines {
		if !l.Canceled && sameDate(l.Date, date) {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, compareLines)
	return out, nil
}
