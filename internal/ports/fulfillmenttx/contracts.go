package fulfillmenttx

import (
	"context"
	"time"

	"service-fulfillment/internal/domain"
)

// SlotFilter narrows ListSlots. Zero values mean "any".
type SlotFilter struct {
	SectorID   int64
	ActiveOnly bool
}

// SlotReferences counts live rows pointing at a slot.
type SlotReferences struct {
	ActiveAssignments int
	UnresolvedOrders  int
}

// AssignmentFilter narrows ListAssignments. Zero values mean "any".
type AssignmentFilter struct {
	Date      time.Time
	SlotID    int64
	CourierID int64
}

// UnitFilter narrows unit listings. Zero values mean "any".
type UnitFilter struct {
	Date      time.Time
	SlotID    int64
	VendorID  string
	OrderID   string
	CourierID int64
}

// SectorRepository is the sector catalog storage.
type SectorRepository interface {
	GetSector(ctx context.Context, id int64) (*domain.Sector, error)
	ListSectors(ctx context.Context) ([]domain.Sector, error)
	InsertSector(ctx context.Context, s *domain.Sector) error
	SetSectorActive(ctx context.Context, id int64, active bool) (bool, error)
}

// SlotRepository is the slot definition storage.
type SlotRepository interface {
	GetSlot(ctx context.Context, id int64) (*domain.Slot, error)
	ListSlots(ctx context.Context, f SlotFilter) ([]domain.Slot, error)
	InsertSlot(ctx context.Context, s *domain.Slot) error
	UpdateSlot(ctx context.Context, s *domain.Slot) error
	SoftDeleteSlot(ctx context.Context, id int64, at time.Time) error
	SlotReferences(ctx context.Context, slotID int64, from time.Time) (SlotReferences, error)
}

// CapacityRepository keeps committed order counters per (slot, date).
type CapacityRepository interface {
	// TryAdmit increments the counter only while it is below the slot ceiling.
	TryAdmit(ctx context.Context, slotID int64, date time.Time) (committed int, admitted bool, err error)
	// Release decrements the counter if it is positive.
	Release(ctx context.Context, slotID int64, date time.Time) (committed int, released bool, err error)
	Committed(ctx context.Context, slotID int64, date time.Time) (int, error)
	MaxCommittedFrom(ctx context.Context, slotID int64, from time.Time) (int, error)
}

// CourierRepository is the courier directory storage.
type CourierRepository interface {
	GetCourier(ctx context.Context, id int64) (*domain.Courier, error)
	ListCouriers(ctx context.Context, limit, offset *int) ([]domain.Courier, error)
	CreateCourier(ctx context.Context, c *domain.Courier) (int64, error)
	UpdateCourierPartial(ctx context.Context, u domain.PartialCourierUpdate) (bool, error)
	MergeCourierCoverage(ctx context.Context, courierID int64, pincodes []string) error
	RecordDeliveryOutcome(ctx context.Context, courierID int64, success bool) error
	ListEligibleCouriers(ctx context.Context, sectorID int64, date time.Time) ([]domain.CourierCandidate, error)
}

// AssignmentRepository stores courier bindings.
type AssignmentRepository interface {
	// InsertAssignmentIfAbsent creates a or, when the key exists, loads the
	// existing row into a and reports false.
	InsertAssignmentIfAbsent(ctx context.Context, a *domain.Assignment) (bool, error)
	ListAssignments(ctx context.Context, f AssignmentFilter) ([]domain.Assignment, error)
	UpdateAssignment(ctx context.Context, a *domain.Assignment) error
	DeleteAssignmentsByDate(ctx context.Context, date time.Time) (int, error)
}

// OrderLineRepository is the local projection of external orders.
type OrderLineRepository interface {
	UpsertOrderLines(ctx context.Context, lines []domain.OrderLine) error
	CancelOrder(ctx context.Context, orderID string) ([]domain.OrderLine, error)
	ListOpenOrderLines(ctx context.Context, date time.Time) ([]domain.OrderLine, error)
}

// UnitRepository stores pickup and delivery units.
type UnitRepository interface {
	InsertPickupUnitIfAbsent(ctx context.Context, u *domain.PickupUnit) (bool, error)
	InsertDeliveryUnitIfAbsent(ctx context.Context, u *domain.DeliveryUnit) (bool, error)
	GetDeliveryUnit(ctx context.Context, orderID string) (*domain.DeliveryUnit, error)
	ListPickupUnits(ctx context.Context, f UnitFilter) ([]domain.PickupUnit, error)
	ListDeliveryUnits(ctx context.Context, f UnitFilter) ([]domain.DeliveryUnit, error)
	UpdatePickupUnit(ctx context.Context, u *domain.PickupUnit) error
	UpdateDeliveryUnit(ctx context.Context, u *domain.DeliveryUnit) error
	DeleteUnitsByDate(ctx context.Context, date time.Time) (int, error)
	DeleteOrderUnits(ctx context.Context, orderID string) (int, error)
}

// Repository is everything a transaction can touch.
type Repository interface {
	SectorRepository
	SlotRepository
	CapacityRepository
	CourierRepository
	AssignmentRepository
	OrderLineRepository
	UnitRepository
}

// Runner is a transaction runner
type Runner interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}

// Store is a Repository that can also open transactions.
type Store interface {
	Repository
	Runner
}
