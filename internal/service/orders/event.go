package orders

import (
	"strings"
	"time"

	"service-fulfillment/internal/domain"
)

// Line is the part of an order contributed by one vendor
type Line struct {
	VendorID string
	Items    []domain.Item
}

// Event is a single order event
type Event struct {
	OrderID      string
	Status       string
	SlotID       int64
	SectorID     int64
	DeliveryDate time.Time
	Lines        []Line
	CreatedAt    time.Time
}

func (e Event) orderLines() []domain.OrderLine {
	out := make([]domain.OrderLine, 0, len(e.Lines))
	for _, l := range e.Lines {
		out = append(out, domain.OrderLine{
			OrderID:  e.OrderID,
			VendorID: l.VendorID,
			SlotID:   e.SlotID,
			SectorID: e.SectorID,
			Date:     domain.NormalizeDate(e.DeliveryDate),
			Items:    l.Items,
		})
	}
	return out
}

// Action is what an order status asks the processor to do.
type Action int

const (
	ActionIgnore Action = iota
	ActionUpsert
	ActionCancel
)

var statusActions = map[string]Action{
	"created":   ActionUpsert,
	"updated":   ActionUpsert,
	"canceled":  ActionCancel,
	"cancelled": ActionCancel,
	"deleted":   ActionCancel,
}

// ActionFor maps an upstream order status to an Action. Matching ignores
// case and surrounding spaces; anything unknown is ignored.
func ActionFor(status string) Action {
	return statusActions[strings.ToLower(strings.TrimSpace(status))]
}
