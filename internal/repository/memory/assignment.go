package memory

import (
	"cmp"
	"context"
	"time"

	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/ports/fulfillmenttx"
)

// InsertAssignmentIfAbsent stores a unless its key exists; otherwise the
// stored assignment is copied into a.
func (s *Store) InsertAssignmentIfAbsent(_ context.Context, a *domain.Assignment) (bool, error) {
	defer s.lock()()
	key := a.Key()
	for _, cur := range s.st.assignments {
		if cur.Key() == key {
			*a = cur
			return false, nil
		}
	}
	s.st.nextAssignment++
	a.ID = s.st.nextAssignment
	a.Date = domain.NormalizeDate(a.Date)
	if a.AssignedAt.IsZero() {
		a.AssignedAt = s.now()
	}
	s.st.assignments[a.ID] = *a
	return true, nil
}

// ListAssignments returns assignments matching f ordered by date, slot and id.
func (s *Store) ListAssignments(_ context.Context, f fulfillmenttx.AssignmentFilter) ([]domain.Assignment, error) {
	defer s.lock()()
	var out []domain.Assignment
	for _, a := range sortedValues(s.st.assignments, compareAssignments) {
		if (!f.Date.IsZero() && !sameDate(a.Date, f.Date)) ||
			(f.SlotID != 0 && a.SlotID != f.SlotID) ||
			(f.CourierID != 0 && a.CourierID != f.CourierID) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func compareAssignments(a, b domain.Assignment) int {
	return cmp.Or(a.Date.Compare(b.Date), cmp.Compare(a.SlotID, b.SlotID), cmp.Compare(a.ID, b.ID))
}

// UpdateAssignment stores status, counters and timestamps of a.
func (s *Store) UpdateAssignment(_ context.Context, a *domain.Assignment) error {
	defer s.lock()()
	cur, ok := s.st.assignments[a.ID]
	if !ok {
		return nil
	}
	cur.Status = a.Status
	cur.MaxOrders = a.MaxOrders
	cur.CurrentOrders = a.CurrentOrders
	cur.ActivatedAt = a.ActivatedAt
	cur.CompletedAt = a.CompletedAt
	s.st.assignments[a.ID] = cur
	return nil
}

// DeleteAssignmentsByDate removes every assignment of date.
func (s *Store) DeleteAssignmentsByDate(_ context.Context, date time.Time) (int, error) {
	defer s.lock()()
	n := 0
	for id, a := range s.st.assignments {
		if sameDate(a.Date, date) {
			delete(s.st.assignments, id)
			n++
		}
	}
	return n, nil
}
