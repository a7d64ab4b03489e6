package assignment_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"service-fulfillment/internal/apperr"
	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/logx"
	"service-fulfillment/internal/metrics"
	"service-fulfillment/internal/notify"
	"service-fulfillment/internal/ports/fulfillmenttx"
	"service-fulfillment/internal/repository/memory"
	"service-fulfillment/internal/service/assignment"
)

var day = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type notifyCall struct {
	audience notify.Audience
	event    string
	payload  map[string]any
}

type notifierStub struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *notifierStub) Notify(_ context.Context, audience notify.Audience, event string, payload map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{audience: audience, event: event, payload: payload})
}

type fixture struct {
	store  *memory.Store
	sector domain.Sector
	slot   domain.Slot
}

func newFixture(t *testing.T, days domain.Weekdays) fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	sec := domain.Sector{Name: "North", City: "Bengaluru", Pincodes: []string{"560001"}, Active: true}
	require.NoError(t, store.InsertSector(ctx, &sec))
	slot := domain.Slot{
		SectorID: sec.ID, Name: "Morning",
		StartTime: 11 * 60, EndTime: 13 * 60, CutoffTime: 10 * 60, PickupDelayMinutes: 45,
		MaxOrders: 30, BaseMaxOrders: 30, Active: true, Days: days,
	}
	require.NoError(t, store.InsertSlot(ctx, &slot))
	return fixture{store: store, sector: sec, slot: slot}
}

func (f fixture) courier(t *testing.T, phone string, rating float64, coverage ...string) int64 {
	t.Helper()
	id, err := f.store.CreateCourier(context.Background(), &domain.Courier{
		Name: "Courier " + phone, Phone: phone, VehicleType: domain.VehicleScooter,
		Verified: true, Active: true, CoveragePincodes: coverage, Rating: rating,
	})
	require.NoError(t, err)
	return id
}

func (f fixture) orders(t *testing.T, vendor string, ids ...string) {
	t.Helper()
	lines := make([]domain.OrderLine, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, domain.OrderLine{
			OrderID: id, VendorID: vendor, SlotID: f.slot.ID, SectorID: f.sector.ID, Date: day,
			Items: []domain.Item{{SKU: "sku-" + id, Name: "Box", Quantity: 1}},
		})
	}
	require.NoError(t, f.store.UpsertOrderLines(context.Background(), lines))
}

func TestAssignCourierToSlot_IsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	courierID := f.courier(t, "+911234567890", 4.5)
	created := metrics.NewAssignmentsCreatedTotal()
	notifier := &notifierStub{}
	engine := assignment.NewEngine(f.store, assignment.Policy{}, nil, logx.Nop(), notifier, created)
	ctx := context.Background()

	first, err := engine.AssignCourierToSlot(ctx, courierID, f.sector.ID, f.slot.ID, day, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)
	require.Len(t, first.Assignments, 1)
	assert.Equal(t, domain.AssignmentAssigned, first.Assignments[0].Status)
	assert.Equal(t, domain.DefaultCourierCapacity, first.Assignments[0].MaxOrders)

	second, err := engine.AssignCourierToSlot(ctx, courierID, f.sector.ID, f.slot.ID, day, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, first.Assignments[0].ID, second.Assignments[0].ID)

	list, err := engine.List(ctx, fulfillmenttx.AssignmentFilter{Date: day})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	c, err := f.store.GetCourier(ctx, courierID)
	require.NoError(t, err)
	assert.Equal(t, []string{"560001"}, c.CoveragePincodes)

	assert.InDelta(t, 1, testutil.ToFloat64(created.WithLabelValues("manual")), 0.0001)
	require.Len(t, notifier.calls, 1)
	assert.Equal(t, notify.Couriers, notifier.calls[0].audience)
	assert.Equal(t, notify.EventCourierAssigned, notifier.calls[0].event)
}

func TestAssignCourierToSlot_ExistingBindingSurvivesDeactivation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	courierID := f.courier(t, "+911234567890", 4.5)
	engine := assignment.NewEngine(f.store, assignment.Policy{}, nil, nil, nil, nil)
	ctx := context.Background()

	first, err := engine.AssignCourierToSlot(ctx, courierID, f.sector.ID, f.slot.ID, day, 0)
	require.NoError(t, err)

	inactive := false
	_, err = f.store.UpdateCourierPartial(ctx, domain.PartialCourierUpdate{ID: courierID, Active: &inactive})
	require.NoError(t, err)

	again, err := engine.AssignCourierToSlot(ctx, courierID, f.sector.ID, f.slot.ID, day, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Created)
	assert.Equal(t, 1, again.Skipped)
	require.Len(t, again.Assignments, 1)
	assert.Equal(t, first.Assignments[0].ID, again.Assignments[0].ID)
	assert.Equal(t, domain.AssignmentAssigned, again.Assignments[0].Status)
}

func TestAssignCourierToSlot_ConcurrentCallersCreateOneBinding(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	courierID := f.courier(t, "+911234567890", 4.5)
	notifier := &notifierStub{}
	engine := assignment.NewEngine(f.store, assignment.Policy{}, nil, nil, notifier, nil)
	ctx := context.Background()

	const callers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		ids     = make(map[int64]struct{})
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := engine.AssignCourierToSlot(ctx, courierID, f.sector.ID, f.slot.ID, day, 0)
			if !assert.NoError(t, err) || !assert.Len(t, res.Assignments, 1) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			created += res.Created
			ids[res.Assignments[0].ID] = struct{}{}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, ids, 1)
	list, err := f.store.ListAssignments(ctx, fulfillmenttx.AssignmentFilter{Date: day})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Len(t, notifier.calls, 1)
}

func TestAssign_BulkCreatesAndSkips(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	a := f.courier(t, "+911234567890", 4.5)
	b := f.courier(t, "+911234567891", 4.0)
	engine := assignment.NewEngine(f.store, assignment.Policy{}, nil, nil, nil, nil)
	ctx := context.Background()

	_, err := engine.AssignCourierToSlot(ctx, a, f.sector.ID, f.slot.ID, day, 10)
	require.NoError(t, err)

	res, err := engine.Assign(ctx, assignment.AssignRequest{
		CourierIDs: []int64{a, b, b}, SectorID: f.sector.ID, SlotID: f.slot.ID, Date: day, Capacity: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Assignments, 2)
	assert.Equal(t, 10, res.Assignments[0].MaxOrders)
	assert.Equal(t, 12, res.Assignments[1].MaxOrders)
}

func TestAssign_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	engine := assignment.NewEngine(f.store, assignment.Policy{}, nil, nil, nil, nil)

	_, err := engine.Assign(context.Background(), assignment.AssignRequest{Capacity: 500})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Violations, 5)
}

func TestAssign_Rejections(t *testing.T) {
	t.Parallel()

	tuesdays, err := domain.NewWeekdays([]int{int(time.Tuesday)})
	require.NoError(t, err)

	tests := []struct {
		name  string
		days  domain.Weekdays
		setup func(t *testing.T, f fixture) (courierID, sectorID, slotID int64)
		want  error
	}{
		{
			name: "unknown courier",
			setup: func(_ *testing.T, f fixture) (int64, int64, int64) {
				return 999, f.sector.ID, f.slot.ID
			},
			want: apperr.ErrNotFound,
		},
		{
			name: "inactive courier",
			setup: func(t *testing.T, f fixture) (int64, int64, int64) {
				id := f.courier(t, "+911234567890", 4)
				inactive := false
				_, err := f.store.UpdateCourierPartial(context.Background(), domain.PartialCourierUpdate{ID: id, Active: &inactive})
				require.NoError(t, err)
				return id, f.sector.ID, f.slot.ID
			},
			want: apperr.ErrConflict,
		},
		{
			name: "unknown slot",
			setup: func(t *testing.T, f fixture) (int64, int64, int64) {
				return f.courier(t, "+911234567890", 4), f.sector.ID, 999
			},
			want: apperr.ErrNotFound,
		},
		{
			name: "slot of another sector",
			setup: func(t *testing.T, f fixture) (int64, int64, int64) {
				other := domain.Sector{Name: "South", City: "Bengaluru", Active: true}
				require.NoError(t, f.store.InsertSector(context.Background(), &other))
				return f.courier(t, "+911234567890", 4), other.ID, f.slot.ID
			},
			want: apperr.ErrInvalid,
		},
		{
			name: "slot does not run on date",
			days: tuesdays,
			setup: func(t *testing.T, f fixture) (int64, int64, int64) {
				return f.courier(t, "+911234567890", 4), f.sector.ID, f.slot.ID
			},
			want: apperr.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, tt.days)
			courierID, sectorID, slotID := tt.setup(t, f)
			engine := assignment.NewEngine(f.store, assignment.Policy{}, nil, nil, nil, nil)

			_, err := engine.AssignCourierToSlot(context.Background(), courierID, sectorID, slotID, day, 0)
			require.ErrorIs(t, err, tt.want)

			list, err := f.store.ListAssignments(context.Background(), fulfillmenttx.AssignmentFilter{Date: day})
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestAutoAssign_BindsOrdersAndIsRepeatable(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	courierID := f.courier(t, "+911234567890", 4.5, "560001")
	f.orders(t, "vendor-a", "o-1", "o-2", "o-3")
	f.orders(t, "vendor-b", "o-4", "o-5")
	created := metrics.NewAssignmentsCreatedTotal()
	engine := assignment.NewEngine(f.store, assignment.Policy{}, nil, logx.Nop(), nil, created)
	ctx := context.Background()

	res, err := engine.AutoAssign(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 1, res.AssignmentsCreated)
	assert.Equal(t, 5, res.OrdersBound)
	assert.Empty(t, res.UncoveredSlots)

	list, err := engine.List(ctx, fulfillmenttx.AssignmentFilter{Date: day, SlotID: f.slot.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, courierID, list[0].CourierID)
	assert.Equal(t, 5, list[0].CurrentOrders)

	pickups, err := f.store.ListPickupUnits(ctx, fulfillmenttx.UnitFilter{Date: day, VendorID: "vendor-a"})
	require.NoError(t, err)
	assert.Len(t, pickups, 3)
	deliveries, err := f.store.ListDeliveryUnits(ctx, fulfillmenttx.UnitFilter{Date: day})
	require.NoError(t, err)
	require.Len(t, deliveries, 5)
	for _, d := range deliveries {
		assert.Equal(t, domain.DeliveryPending, d.Status)
		assert.Equal(t, courierID, d.CourierID)
	}

	again, err := engine.AutoAssign(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, assignment.AutoAssignResult{}, again)
	assert.InDelta(t, 1, testutil.ToFloat64(created.WithLabelValues("auto")), 0.0001)
}

func TestAutoAssign_SplitsOrdersByCapacity(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	best := f.courier(t, "+911234567890", 4.9, "560001")
	second := f.courier(t, "+911234567891", 4.1, "560001")
	third := f.courier(t, "+911234567892", 3.0, "560001")
	f.orders(t, "vendor-a", "o-1", "o-2", "o-3", "o-4", "o-5")
	engine := assignment.NewEngine(f.store, assignment.Policy{DefaultCapacity: 2}, nil, nil, nil, nil)
	ctx := context.Background()

	res, err := engine.AutoAssign(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 3, res.AssignmentsCreated)
	assert.Equal(t, 5, res.OrdersBound)

	list, err := engine.List(ctx, fulfillmenttx.AssignmentFilter{Date: day})
	require.NoError(t, err)
	require.Len(t, list, 3)
	load := map[int64]int{}
	for _, a := range list {
		load[a.CourierID] = a.CurrentOrders
	}
	assert.Equal(t, map[int64]int{best: 2, second: 2, third: 1}, load)
}

func TestAutoAssign_LateOrderGetsFreshCourierAfterCompletion(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	first := f.courier(t, "+911234567890", 4.9, "560001")
	second := f.courier(t, "+911234567891", 4.0, "560001")
	f.orders(t, "vendor-a", "o-1")
	engine := assignment.NewEngine(f.store, assignment.Policy{}, nil, nil, nil, nil)
	ctx := context.Background()

	_, err := engine.AutoAssign(ctx, day)
	require.NoError(t, err)
	list, err := f.store.ListAssignments(ctx, fulfillmenttx.AssignmentFilter{Date: day})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, first, list[0].CourierID)

	done := list[0]
	done.Status = domain.AssignmentCompleted
	require.NoError(t, f.store.UpdateAssignment(ctx, &done))

	f.orders(t, "vendor-a", "o-2")
	res, err := engine.AutoAssign(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 1, res.AssignmentsCreated)
	assert.Equal(t, 1, res.OrdersBound)
	assert.Empty(t, res.UncoveredSlots)

	units, err := f.store.ListDeliveryUnits(ctx, fulfillmenttx.UnitFilter{Date: day, OrderID: "o-2"})
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, second, units[0].CourierID)

	again, err := engine.AutoAssign(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, assignment.AutoAssignResult{}, again)
}

func TestAutoAssign_ReportsUncoveredSlots(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.courier(t, "+911234567890", 4.5, "110001")
	f.orders(t, "vendor-a", "o-1")
	engine := assignment.NewEngine(f.store, assignment.Policy{}, nil, nil, nil, nil)

	res, err := engine.AutoAssign(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 0, res.AssignmentsCreated)
	assert.Equal(t, []int64{f.slot.ID}, res.UncoveredSlots)
}

func TestAutoAssign_RespectsDailyLimitAndVerification(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	unverified, err := f.store.CreateCourier(context.Background(), &domain.Courier{
		Name: "New", Phone: "+911234567899", VehicleType: domain.VehicleBicycle,
		Active: true, CoveragePincodes: []string{"560001"}, Rating: 5,
	})
	require.NoError(t, err)
	verified := f.courier(t, "+911234567890", 3, "560001")
	f.orders(t, "vendor-a", "o-1")
	engine := assignment.NewEngine(f.store, assignment.Policy{RequireVerified: true, DailyLoadLimit: 1}, nil, nil, nil, nil)

	_, err = engine.AutoAssign(context.Background(), day)
	require.NoError(t, err)

	list, err := f.store.ListAssignments(context.Background(), fulfillmenttx.AssignmentFilter{Date: day})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, verified, list[0].CourierID)
	assert.NotEqual(t, unverified, list[0].CourierID)
}

func TestResetAssignments(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.courier(t, "+911234567890", 4.5, "560001")
	f.orders(t, "vendor-a", "o-1", "o-2")
	engine := assignment.NewEngine(f.store, assignment.Policy{}, nil, nil, nil, nil)
	ctx := context.Background()

	_, err := engine.AutoAssign(ctx, day)
	require.NoError(t, err)

	pickups, err := f.store.ListPickupUnits(ctx, fulfillmenttx.UnitFilter{OrderID: "o-2"})
	require.NoError(t, err)
	require.Len(t, pickups, 1)
	pu := pickups[0]
	require.NoError(t, pu.AdvanceTo(domain.PickupPickedUp, day.Add(11*time.Hour)))
	require.NoError(t, f.store.UpdatePickupUnit(ctx, &pu))

	_, err = engine.ResetAssignments(ctx, day)
	var ce *apperr.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"o-2"}, ce.IDs)

	list, err := f.store.ListAssignments(ctx, fulfillmenttx.AssignmentFilter{Date: day})
	require.NoError(t, err)
	assert.Len(t, list, 1, "a rejected reset removes nothing")

	pu.Status = domain.PickupEnRoute
	pu.PickedUpAt = nil
	require.NoError(t, f.store.UpdatePickupUnit(ctx, &pu))

	res, err := engine.ResetAssignments(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, 2, res.UnitsRemoved)

	deliveries, err := f.store.ListDeliveryUnits(ctx, fulfillmenttx.UnitFilter{Date: day})
	require.NoError(t, err)
	assert.Empty(t, deliveries)
}

func ExampleEngine_AutoAssign() {
	store := memory.New()
	ctx := context.Background()
	sec := domain.Sector{Name: "North", City: "Bengaluru", Active: true}
	_ = store.InsertSector(ctx, &sec)
	slot := domain.Slot{SectorID: sec.ID, Name: "Morning", StartTime: 660, EndTime: 780, CutoffTime: 600, MaxOrders: 30, BaseMaxOrders: 30, Active: true}
	_ = store.InsertSlot(ctx, &slot)
	_, _ = store.CreateCourier(ctx, &domain.Courier{Name: "A", Phone: "+911234567890", VehicleType: domain.VehicleCar, Active: true, Verified: true})
	_ = store.UpsertOrderLines(ctx, []domain.OrderLine{{OrderID: "o-1", VendorID: "v-1", SlotID: slot.ID, SectorID: sec.ID, Date: day}})

	res, _ := assignment.NewEngine(store, assignment.Policy{}, nil, nil, nil, nil).AutoAssign(ctx, day)
	fmt.Println(res.AssignmentsCreated, res.OrdersBound)
	// Output: 1 1
}
