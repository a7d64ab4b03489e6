package dashboard

import (
	"context"
	"time"

	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/ports/fulfillmenttx"
)

type boardStore interface {
	GetSector(ctx context.Context, id int64) (*domain.Sector, error)
	ListSlots(ctx context.Context, f fulfillmenttx.SlotFilter) ([]domain.Slot, error)
	Committed(ctx context.Context, slotID int64, date time.Time) (int, error)
	ListAssignments(ctx context.Context, f fulfillmenttx.AssignmentFilter) ([]domain.Assignment, error)
	ListPickupUnits(ctx context.Context, f fulfillmenttx.UnitFilter) ([]domain.PickupUnit, error)
	ListDeliveryUnits(ctx context.Context, f fulfillmenttx.UnitFilter) ([]domain.DeliveryUnit, error)
}
