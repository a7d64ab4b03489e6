package kafka

import (
	"strings"
	"time"

	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/service/orders"
)

// LineDTO is the vendor part of an order event
type LineDTO struct {
	VendorID string        `json:"vendor_id"`
	Items    []domain.Item `json:"items"`
}

// EventDTO is a data transfer object for orders.Event
type EventDTO struct {
	OrderID      string    `json:"order_id"`
	Status       string    `json:"status"`
	SlotID       int64     `json:"slot_id,omitempty"`
	SectorID     int64     `json:"sector_id,omitempty"`
	DeliveryDate string    `json:"delivery_date,omitempty"`
	Lines        []LineDTO `json:"lines,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ToDomain converts EventDTO to orders.Event. A bad delivery date yields ErrMalformed.
func ToDomain(dto EventDTO) (orders.Event, error) {
	ev := orders.Event{
		OrderID:   strings.TrimSpace(dto.OrderID),
		Status:    strings.TrimSpace(dto.Status),
		SlotID:    dto.SlotID,
		SectorID:  dto.SectorID,
		CreatedAt: dto.CreatedAt,
	}
	if raw := strings.TrimSpace(dto.DeliveryDate); raw != "" {
		d, err := domain.ParseDate(raw)
		if err != nil {
			return orders.Event{}, malformed("delivery_date", err)
		}
		ev.DeliveryDate = d
	}
	for _, l := range dto.Lines {
		ev.Lines = append(ev.Lines, orders.Line{
			VendorID: strings.TrimSpace(l.VendorID),
			Items:    l.Items,
		})
	}
	return ev, nil
}
