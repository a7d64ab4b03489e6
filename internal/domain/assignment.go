package domain

import "time"

// AssignmentStatus is the lifecycle state of a courier binding.
type AssignmentStatus string

// Assignment states.
const (
	AssignmentAssigned  AssignmentStatus = "assigned"
	AssignmentActive    AssignmentStatus = "active"
	AssignmentCompleted AssignmentStatus = "completed"
)

var assignmentTransitions = transitionTable[AssignmentStatus]{
	AssignmentAssigned:  {AssignmentActive},
	AssignmentActive:    {AssignmentCompleted},
	AssignmentCompleted: {},
}

// CanMoveTo reports whether next is a direct successor of s.
func (s AssignmentStatus) CanMoveTo(next AssignmentStatus) bool {
	return assignmentTransitions.allowed(s, next)
}

// DefaultCourierCapacity is the per-binding order target when none is requested.
const DefaultCourierCapacity = 30

// Assignment binds one courier to one slot on one date.
type Assignment struct {
	ID            int64
	CourierID     int64
	SectorID      int64
	SlotID        int64
	Date          time.Time
	Status        AssignmentStatus
	MaxOrders     int
	CurrentOrders int
	AssignedAt    time.Time
	ActivatedAt   *time.Time
	CompletedAt   *time.Time
}

// AssignmentKey is the uniqueness key of an Assignment.
type AssignmentKey struct {
	CourierID int64
	SectorID  int64
	SlotID    int64
	Date      time.Time
}

// Key returns the uniqueness key of a.
func (a Assignment) Key() AssignmentKey {
	return AssignmentKey{CourierID: a.CourierID, SectorID: a.SectorID, SlotID: a.SlotID, Date: NormalizeDate(a.Date)}
}

// Spare is the number of orders the binding can still take.
func (a Assignment) Spare() int {
	if a.CurrentOrders >= a.MaxOrders {
		return 0
	}
	return a.MaxOrders - a.CurrentOrders
}
