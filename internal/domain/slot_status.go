package domain

import "time"

// SlotStatus is the derived, never stored, status of a slot on a date.
type SlotStatus string

// Derived slot states.
const (
	SlotUpcoming       SlotStatus = "upcoming"
	SlotReadyForPickup SlotStatus = "ready_for_pickup"
	SlotDelivering     SlotStatus = "delivering"
	SlotCompleted      SlotStatus = "completed"
)

// OrderProgress is the state of one order bound to a slot.
type OrderProgress struct {
	Pickups  []PickupStatus
	Delivery DeliveryStatus
}

func (p OrderProgress) moving() bool {
	if p.Delivery != DeliveryPending && p.Delivery != "" {
		return true
	}
	for _, s := range p.Pickups {
		if s == PickupPickedUp {
			return true
		}
	}
	return false
}

// DeriveSlotStatus computes the slot status from the current time, the
// slot's pickup-ready time and the orders bound to it.
func DeriveSlotStatus(now, readyAt time.Time, orders []OrderProgress) SlotStatus {
	if len(orders) > 0 {
		done := true
		for _, o := range orders {
			if !o.Delivery.Terminal() {
				done = false
				break
			}
		}
		if done {
			return SlotCompleted
		}
	}
	for _, o := range orders {
		if o.moving() {
			return SlotDelivering
		}
	}
	if now.Before(readyAt) {
		return SlotUpcoming
	}
	return SlotReadyForPickup
}
