package domain

import (
	"time"

	"service-fulfillment/internal/apperr"
)

// PickupStatus is the state of one vendor's share of an order.
type PickupStatus string

// Pickup states.
const (
	PickupPending  PickupStatus = "pending"
	PickupEnRoute  PickupStatus = "en_route"
	PickupPickedUp PickupStatus = "picked_up"
)

var pickupTransitions = transitionTable[PickupStatus]{
	PickupPending:  {PickupEnRoute},
	PickupEnRoute:  {PickupPickedUp},
	PickupPickedUp: {},
}

// Valid reports whether s is a known pickup state.
func (s PickupStatus) Valid() bool {
	_, ok := pickupTransitions[s]
	return ok
}

// CanMoveTo reports whether next is a direct successor of s.
func (s PickupStatus) CanMoveTo(next PickupStatus) bool {
	return pickupTransitions.allowed(s, next)
}

// PickupUnit is the per-vendor subset of an order's items.
type PickupUnit struct {
	OrderID    string
	VendorID   string
	SlotID     int64
	SectorID   int64
	Date       time.Time
	CourierID  int64
	Items      []Item
	Status     PickupStatus
	CreatedAt  time.Time
	EnRouteAt  *time.Time
	PickedUpAt *time.Time
}

// AdvanceTo moves the unit to target through every intermediate state,
// stamping each transition with at.
func (u *PickupUnit) AdvanceTo(target PickupStatus, at time.Time) error {
	steps := pickupTransitions.path(u.Status, target)
	if len(steps) == 0 {
		return &apperr.InvalidTransitionError{
			Machine: "pickup",
			ID:      u.OrderID + "/" + u.VendorID,
			From:    string(u.Status),
			To:      string(target),
		}
	}
	for _, st := range steps {
		ts := at
		switch st {
		case PickupEnRoute:
			u.EnRouteAt = &ts
		case PickupPickedUp:
			u.PickedUpAt = &ts
		}
		u.Status = st
	}
	return nil
}

// OrderPickupStatus aggregates the pickup units of an order or a vendor.
type OrderPickupStatus string

// Aggregate pickup states.
const (
	OrderPickupPending   OrderPickupStatus = "pending"
	OrderPickupEnRoute   OrderPickupStatus = "en_route"
	OrderPickupPartial   OrderPickupStatus = "partially_picked_up"
	OrderPickupCompleted OrderPickupStatus = "completed"
)

// AggregatePickup derives the combined status of a set of pickup units.
func AggregatePickup(statuses []PickupStatus) OrderPickupStatus {
	if len(statuses) == 0 {
		return OrderPickupPending
	}
	var picked, enRoute int
	for _, s := range statuses {
		switch s {
		case PickupPickedUp:
			picked++
		case PickupEnRoute:
			enRoute++
		}
	}
	switch {
	case picked == len(statuses):
		return OrderPickupCompleted
	case picked > 0:
		return OrderPickupPartial
	case enRoute > 0:
		return OrderPickupEnRoute
	default:
		return OrderPickupPending
	}
}

// MoveTo performs exactly one transition.
func (u *PickupUnit) MoveTo(next PickupStatus, at time.Time) error {
	if !u.Status.CanMoveTo(next) {
		return &apperr.InvalidTransitionError{
			Machine: "pickup",
			ID:      u.OrderID + "/" + u.VendorID,
			From:    string(u.Status),
			To:      string(next),
		}
	}
	return u.AdvanceTo(next, at)
}
