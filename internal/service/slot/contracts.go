package slot

import (
	"context"
	"time"

	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/ports/fulfillmenttx"
)

type slotStore interface {
	GetSlot(ctx context.Context, id int64) (*domain.Slot, error)
	ListSlots(ctx context.Context, f fulfillmenttx.SlotFilter) ([]domain.Slot, error)
	WithTx(ctx context.Context, fn func(tx fulfillmenttx.Repository) error) error
}

// Clock returns the current time.
type Clock func() time.Time
