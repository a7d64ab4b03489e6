package fulfillment_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"service-fulfillment/internal/apperr"
	"service-fulfillment/internal/domain"
	ordergw "service-fulfillment/internal/gateway/orders"
	"service-fulfillment/internal/metrics"
	"service-fulfillment/internal/notify"
	"service-fulfillment/internal/ports/fulfillmenttx"
	"service-fulfillment/internal/repository/memory"
	"service-fulfillment/internal/service/assignment"
	"service-fulfillment/internal/service/fulfillment"
	testlog "service-fulfillment/internal/testutil"
)

var (
	day   = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock = func() time.Time { return time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC) }
)

type notifierStub struct {
	mu     sync.Mutex
	events []string
}

func (n *notifierStub) Notify(_ context.Context, _ notify.Audience, event string, _ map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

type env struct {
	store     *memory.Store
	slotID    int64
	courierID int64
}

// newEnv binds o-1..o-3 from vendor-a, o-4..o-5 from vendor-b and o-6 from
// both vendors to one courier.
func newEnv(t *testing.T) env {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	sec := domain.Sector{Name: "North", City: "Bengaluru", Active: true}
	require.NoError(t, store.InsertSector(ctx, &sec))
	slot := domain.Slot{
		SectorID: sec.ID, Name: "Morning",
		StartTime: 11 * 60, EndTime: 13 * 60, CutoffTime: 10 * 60, PickupDelayMinutes: 45,
		MaxOrders: 30, BaseMaxOrders: 30, Active: true,
	}
	require.NoError(t, store.InsertSlot(ctx, &slot))
	courierID, err := store.CreateCourier(ctx, &domain.Courier{
		Name: "Ravi", Phone: "+911234567890", VehicleType: domain.VehicleScooter, Verified: true, Active: true,
	})
	require.NoError(t, err)

	line := func(order, vendor string) domain.OrderLine {
		return domain.OrderLine{
			OrderID: order, VendorID: vendor, SlotID: slot.ID, SectorID: sec.ID, Date: day,
			Items: []domain.Item{{SKU: order + "-" + vendor, Name: "Box", Quantity: 1}},
		}
	}
	require.NoError(t, store.UpsertOrderLines(ctx, []domain.OrderLine{
		line("o-1", "vendor-a"), line("o-2", "vendor-a"), line("o-3", "vendor-a"),
		line("o-4", "vendor-b"), line("o-5", "vendor-b"),
		line("o-6", "vendor-a"), line("o-6", "vendor-b"),
	}))

	res, err := assignment.NewEngine(store, assignment.Policy{}, nil, nil, nil, nil).AutoAssign(ctx, day)
	require.NoError(t, err)
	require.Equal(t, 6, res.OrdersBound)
	return env{store: store, slotID: slot.ID, courierID: courierID}
}

func (e env) delivery(t *testing.T, orderID string) domain.DeliveryUnit {
	t.Helper()
	u, err := e.store.GetDeliveryUnit(context.Background(), orderID)
	require.NoError(t, err)
	require.NotNil(t, u)
	return *u
}

func (e env) assignment(t *testing.T) domain.Assignment {
	t.Helper()
	list, err := e.store.ListAssignments(context.Background(), fulfillmenttx.AssignmentFilter{Date: day, SlotID: e.slotID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	return list[0]
}

func TestMarkVendorPickedUp_StepsThroughEnRoute(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	transitions := metrics.NewStateTransitionsTotal()
	notifier := &notifierStub{}
	svc := fulfillment.NewService(e.store, nil, nil, notifier).WithClock(clock).WithMetrics(transitions, nil)
	ctx := context.Background()

	res, err := svc.MarkVendorPickedUp(ctx, e.slotID, "vendor-a", day)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Updated)
	assert.Equal(t, 0, res.Unchanged)
	assert.Equal(t, []string{"o-1", "o-2", "o-3", "o-6"}, res.OrderIDs)

	units, err := e.store.ListPickupUnits(ctx, fulfillmenttx.UnitFilter{Date: day, VendorID: "vendor-a"})
	require.NoError(t, err)
	for _, u := range units {
		assert.Equal(t, domain.PickupPickedUp, u.Status)
		require.NotNil(t, u.EnRouteAt, "en_route must not be skipped")
		require.NotNil(t, u.PickedUpAt)
	}
	others, err := e.store.ListPickupUnits(ctx, fulfillmenttx.UnitFilter{Date: day, VendorID: "vendor-b"})
	require.NoError(t, err)
	for _, u := range others {
		assert.Equal(t, domain.PickupPending, u.Status)
	}

	a := e.assignment(t)
	assert.Equal(t, domain.AssignmentActive, a.Status)
	require.NotNil(t, a.ActivatedAt)

	again, err := svc.MarkVendorPickedUp(ctx, e.slotID, "vendor-a", day)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Updated)
	assert.Equal(t, 4, again.Unchanged)

	assert.InDelta(t, 4, testutil.ToFloat64(transitions.WithLabelValues("pickup", "picked_up")), 0.0001)
	assert.Equal(t, []string{notify.EventPickupConfirmed}, notifier.events)
}

func TestMarkVendorEnRoute(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	notifier := &notifierStub{}
	svc := fulfillment.NewService(e.store, nil, nil, notifier).WithClock(clock)
	ctx := context.Background()

	_, err := svc.MarkVendorPickedUp(ctx, e.slotID, "vendor-a", day)
	require.NoError(t, err)

	res, err := svc.MarkVendorEnRoute(ctx, e.slotID, "vendor-a", day)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Updated, "picked up units never move back")

	res, err = svc.MarkVendorEnRoute(ctx, e.slotID, "vendor-b", day)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Updated)
	assert.Equal(t, []string{notify.EventPickupConfirmed, notify.EventCourierEnRoute}, notifier.events)
}

func TestVendorOperations_Validation(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	svc := fulfillment.NewService(e.store, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.MarkVendorPickedUp(ctx, 0, " ", time.Time{})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Violations, 3)

	_, err = svc.MarkVendorPickedUp(ctx, e.slotID, "vendor-z", day)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	err = svc.ReportPickupFailure(ctx, e.slotID, "vendor-a", day, "")
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestReportPickupFailure_AlertsWithoutStateChange(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	e := newEnv(t)
	alerts := NewMockcounter(ctrl)
	alerts.EXPECT().Inc().Times(1)
	rec := testlog.New()
	notifier := &notifierStub{}
	svc := fulfillment.NewService(e.store, nil, rec.Logger(), notifier).WithMetrics(nil, alerts)

	err := svc.ReportPickupFailure(context.Background(), e.slotID, "vendor-b", day, "shop closed")
	require.NoError(t, err)

	var warned bool
	for _, entry := range rec.Entries() {
		if entry.Level == "warn" && entry.Msg == "pickup failure reported" {
			warned = true
		}
	}
	assert.True(t, warned)
	assert.Equal(t, []string{notify.EventPickupFailed}, notifier.events)

	units, err := e.store.ListPickupUnits(context.Background(), fulfillmenttx.UnitFilter{VendorID: "vendor-b"})
	require.NoError(t, err)
	for _, u := range units {
		assert.Equal(t, domain.PickupPending, u.Status)
	}
}

func TestMarkOrderDelivered_RequiresCompletedPickup(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	svc := fulfillment.NewService(e.store, nil, nil, nil).WithClock(clock)
	ctx := context.Background()

	_, err := svc.MarkOrderDelivered(ctx, "o-1", e.courierID)
	var te *apperr.InvalidTransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "pending", te.From)

	_, err = svc.MarkVendorPickedUp(ctx, e.slotID, "vendor-a", day)
	require.NoError(t, err)

	_, err = svc.MarkOrderDelivered(ctx, "o-6", e.courierID)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition, "o-6 still waits for vendor-b")

	_, err = svc.DispatchOrder(ctx, "o-6", e.courierID)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Equal(t, domain.DeliveryPending, e.delivery(t, "o-6").Status)
}

func TestMarkOrderDelivered_StepsThroughDispatchAndIsIdempotent(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	transitions := metrics.NewStateTransitionsTotal()
	notifier := &notifierStub{}
	svc := fulfillment.NewService(e.store, nil, nil, notifier).WithClock(clock).WithMetrics(transitions, nil)
	ctx := context.Background()

	_, err := svc.MarkVendorPickedUp(ctx, e.slotID, "vendor-a", day)
	require.NoError(t, err)

	u, err := svc.MarkOrderDelivered(ctx, "o-1", e.courierID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryDelivered, u.Status)
	require.NotNil(t, u.OutForDeliveryAt)
	require.NotNil(t, u.DeliveredAt)

	again, err := svc.MarkOrderDelivered(ctx, "o-1", e.courierID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryDelivered, again.Status)

	c, err := e.store.GetCourier(ctx, e.courierID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.TotalDeliveries)
	assert.Equal(t, 1, c.SuccessfulDeliveries)

	assert.InDelta(t, 1, testutil.ToFloat64(transitions.WithLabelValues("delivery", "delivered")), 0.0001)
	assert.Equal(t, []string{notify.EventPickupConfirmed, notify.EventDelivered}, notifier.events)
}

func TestMoveOrder_WrongCourierAndUnknownOrder(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	svc := fulfillment.NewService(e.store, nil, nil, nil).WithClock(clock)
	ctx := context.Background()

	_, err := svc.DispatchOrder(ctx, "o-1", e.courierID+100)
	var ce *apperr.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"o-1"}, ce.IDs)

	_, err = svc.DispatchOrder(ctx, "o-404", e.courierID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.MarkOrderFailed(ctx, "o-1", e.courierID, "  ")
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestFailedThenReturned_CountsOneAttempt(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	svc := fulfillment.NewService(e.store, nil, nil, nil).WithClock(clock)
	ctx := context.Background()

	_, err := svc.MarkVendorPickedUp(ctx, e.slotID, "vendor-a", day)
	require.NoError(t, err)
	_, err = svc.DispatchOrder(ctx, "o-2", e.courierID)
	require.NoError(t, err)

	u, err := svc.MarkOrderFailed(ctx, "o-2", e.courierID, "customer absent")
	require.NoError(t, err)
	assert.Equal(t, "customer absent", u.FailureReason)

	u, err = svc.MarkOrderReturned(ctx, "o-2", e.courierID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryReturned, u.Status)

	_, err = svc.MarkOrderFailed(ctx, "o-2", e.courierID, "again")
	require.ErrorIs(t, err, apperr.ErrInvalidTransition, "returned is terminal")

	c, err := e.store.GetCourier(ctx, e.courierID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.TotalDeliveries)
	assert.Equal(t, 0, c.SuccessfulDeliveries)
}

func TestAssignmentCompletesWhenEveryOrderIsTerminal(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	svc := fulfillment.NewService(e.store, nil, nil, nil).WithClock(clock)
	ctx := context.Background()

	for _, vendor := range []string{"vendor-a", "vendor-b"} {
		_, err := svc.MarkVendorPickedUp(ctx, e.slotID, vendor, day)
		require.NoError(t, err)
	}
	orders := []string{"o-1", "o-2", "o-3", "o-4", "o-5", "o-6"}
	for i, id := range orders {
		_, err := svc.MarkOrderDelivered(ctx, id, e.courierID)
		require.NoError(t, err)
		if i < len(orders)-1 {
			assert.Equal(t, domain.AssignmentActive, e.assignment(t).Status)
		}
	}

	a := e.assignment(t)
	assert.Equal(t, domain.AssignmentCompleted, a.Status)
	require.NotNil(t, a.CompletedAt)
}

func TestMarkOrderDelivered_ChecksOrderStatus(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	e := newEnv(t)
	orders := NewMockOrderStatusSource(ctrl)
	svc := fulfillment.NewService(e.store, nil, nil, nil).WithClock(clock).WithOrderStatus(orders)
	ctx := context.Background()

	_, err := svc.MarkVendorPickedUp(ctx, e.slotID, "vendor-a", day)
	require.NoError(t, err)

	orders.EXPECT().GetByID(gomock.Any(), "o-1").Return(&ordergw.Order{ID: "o-1", Status: "canceled"}, nil)
	_, err = svc.MarkOrderDelivered(ctx, "o-1", e.courierID)
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, domain.DeliveryPending, e.delivery(t, "o-1").Status)

	orders.EXPECT().GetByID(gomock.Any(), "o-2").Return(nil, errors.New("unavailable"))
	u, err := svc.MarkOrderDelivered(ctx, "o-2", e.courierID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryDelivered, u.Status)
}
