// Package notify defines the fire-and-forget notification port.
package notify

import (
	"context"
	"time"
)

// Audience selects who receives a notification.
type Audience string

// Audiences.
const (
	Customers Audience = "customers"
	Vendors   Audience = "vendors"
	Couriers  Audience = "couriers"
)

// Event names.
const (
	EventCourierEnRoute  = "courier_en_route"
	EventPickupConfirmed = "pickup_confirmed"
	EventPickupFailed    = "pickup_failed"
	EventOutForDelivery  = "out_for_delivery"
	EventDelivered       = "delivered"
	EventDeliveryFailed  = "delivery_failed"
	EventReturned        = "returned"
	EventCourierAssigned = "courier_assigned"
)

// Message is a single notification as it is published.
type Message struct {
	ID         string         `json:"id"`
	Audience   Audience       `json:"audience"`
	Event      string         `json:"event"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Notifier publishes notifications. Delivery failures are handled by the
// implementation and never returned to the caller.
type Notifier interface {
	Notify(ctx context.Context, audience Audience, event string, payload map[string]any)
}

type nop struct{}

// Nop returns a Notifier that drops every message.
func Nop() Notifier { return nop{} }

func (nop) Notify(context.Context, Audience, string, map[string]any) {}
