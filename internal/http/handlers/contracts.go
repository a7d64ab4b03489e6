package handlers

import (
	"context"
	"time"

	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/ports/fulfillmenttx"
	"service-fulfillment/internal/service/assignment"
	"service-fulfillment/internal/service/capacity"
	"service-fulfillment/internal/service/dashboard"
	"service-fulfillment/internal/service/fulfillment"
	"service-fulfillment/internal/service/sector"
)

type courierUsecase interface {
	Get(ctx context.Context, id int64) (*domain.Courier, error)
	List(ctx context.Context, limit, offset *int) ([]domain.Courier, error)
	Create(ctx context.Context, c *domain.Courier) (int64, error)
	UpdatePartial(ctx context.Context, u domain.PartialCourierUpdate) (bool, error)
}

type sectorUsecase interface {
	Create(ctx context.Context, in sector.CreateInput) (*domain.Sector, error)
	Get(ctx context.Context, id int64) (*domain.Sector, error)
	List(ctx context.Context) ([]domain.Sector, error)
	SetActive(ctx context.Context, id int64, active bool) (*domain.Sector, error)
}

type slotUsecase interface {
	Create(ctx context.Context, spec domain.SlotSpec) (*domain.Slot, error)
	Update(ctx context.Context, id int64, spec domain.SlotSpec, asOf time.Time) (*domain.Slot, error)
	Delete(ctx context.Context, id int64, asOf time.Time) error
	Get(ctx context.Context, id int64) (*domain.Slot, error)
	List(ctx context.Context, sectorID int64, activeOnly bool) ([]domain.Slot, error)
}

type capacityUsecase interface {
	Admit(ctx context.Context, slotID int64, date time.Time) (capacity.Admission, error)
	Release(ctx context.Context, slotID int64, date time.Time) (capacity.Admission, error)
	Utilization(ctx context.Context, slotID int64, date time.Time) (capacity.Utilization, error)
	ChangeCapacity(ctx context.Context, slotID int64, newMax int, asOf time.Time) (*domain.Slot, error)
}

type assignmentUsecase interface {
	Assign(ctx context.Context, req assignment.AssignRequest) (assignment.AssignResult, error)
	AutoAssign(ctx context.Context, date time.Time) (assignment.AutoAssignResult, error)
	ResetAssignments(ctx context.Context, date time.Time) (assignment.ResetResult, error)
	List(ctx context.Context, f fulfillmenttx.AssignmentFilter) ([]domain.Assignment, error)
}

type fulfillmentUsecase interface {
	MarkVendorEnRoute(ctx context.Context, slotID int64, vendorID string, date time.Time) (fulfillment.PickupResult, error)
	MarkVendorPickedUp(ctx context.Context, slotID int64, vendorID string, date time.Time) (fulfillment.PickupResult, error)
	ReportPickupFailure(ctx context.Context, slotID int64, vendorID string, date time.Time, reason string) error
	DispatchOrder(ctx context.Context, orderID string, courierID int64) (domain.DeliveryUnit, error)
	MarkOrderDelivered(ctx context.Context, orderID string, courierID int64) (domain.DeliveryUnit, error)
	MarkOrderFailed(ctx context.Context, orderID string, courierID int64, reason string) (domain.DeliveryUnit, error)
	MarkOrderReturned(ctx context.Context, orderID string, courierID int64) (domain.DeliveryUnit, error)
}

type dashboardUsecase interface {
	Board(ctx context.Context, date, now time.Time, sectorID int64) ([]dashboard.SlotView, error)
}
