package domain

import (
	"time"

	"service-fulfillment/internal/apperr"
)

// DeliveryStatus is the single end-to-end delivery state of an order.
type DeliveryStatus string

// Delivery states.
const (
	DeliveryPending        DeliveryStatus = "pending"
	DeliveryOutForDelivery DeliveryStatus = "out_for_delivery"
	DeliveryDelivered      DeliveryStatus = "delivered"
	DeliveryFailed         DeliveryStatus = "failed"
	DeliveryReturned       DeliveryStatus = "returned"
)

var deliveryTransitions = transitionTable[DeliveryStatus]{
	DeliveryPending:        {DeliveryOutForDelivery},
	DeliveryOutForDelivery: {DeliveryDelivered, DeliveryFailed, DeliveryReturned},
	DeliveryFailed:         {DeliveryReturned},
	DeliveryDelivered:      {},
	DeliveryReturned:       {},
}

// Valid reports whether s is a known delivery state.
func (s DeliveryStatus) Valid() bool {
	_, ok := deliveryTransitions[s]
	return ok
}

// CanMoveTo reports whether next is a direct successor of s.
func (s DeliveryStatus) CanMoveTo(next DeliveryStatus) bool {
	return deliveryTransitions.allowed(s, next)
}

// Terminal reports whether no further transition is possible.
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryDelivered || s == DeliveryReturned
}

// DeliveryUnit tracks one order's delivery regardless of vendor count.
type DeliveryUnit struct {
	OrderID          string
	SlotID           int64
	SectorID         int64
	Date             time.Time
	CourierID        int64
	Status           DeliveryStatus
	FailureReason    string
	CreatedAt        time.Time
	OutForDeliveryAt *time.Time
	DeliveredAt      *time.Time
	FailedAt         *time.Time
	ReturnedAt       *time.Time
}

// AdvanceTo moves the unit to target through every intermediate state.
func (u *DeliveryUnit) AdvanceTo(target DeliveryStatus, at time.Time) error {
	steps := deliveryTransitions.path(u.Status, target)
	if len(steps) == 0 {
		return &apperr.InvalidTransitionError{
			Machine: "delivery",
			ID:      u.OrderID,
			From:    string(u.Status),
			To:      string(target),
		}
	}
	for _, st := range steps {
		ts := at
		switch st {
		case DeliveryOutForDelivery:
			u.OutForDeliveryAt = &ts
		case DeliveryDelivered:
			u.DeliveredAt = &ts
		case DeliveryFailed:
			u.FailedAt = &ts
		case DeliveryReturned:
			u.ReturnedAt = &ts
		}
		u.Status = st
	}
	return nil
}

// MoveTo performs exactly one transition.
func (u *DeliveryUnit) MoveTo(next DeliveryStatus, at time.Time) error {
	if !u.Status.CanMoveTo(next) {
		return &apperr.InvalidTransitionError{
			Machine: "delivery",
			ID:      u.OrderID,
			From:    string(u.Status),
			To:      string(next),
		}
	}
	return u.AdvanceTo(next, at)
}
