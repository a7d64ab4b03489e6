package memory_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"service-fulfillment/internal/apperr"
	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/ports/fulfillmenttx"
	"service-fulfillment/internal/repository/memory"
)

var day = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func seedSlot(t *testing.T, s *memory.Store, maxOrders int) domain.Slot {
	t.Helper()
	ctx := context.Background()

	sec := domain.Sector{Name: "North", City: "Bengaluru", Pincodes: []string{"560001"}, Active: true}
	require.NoError(t, s.InsertSector(ctx, &sec))

	slot := domain.Slot{
		SectorID: sec.ID, Name: "Morning",
		StartTime: 11 * 60, EndTime: 13 * 60, CutoffTime: 10 * 60,
		MaxOrders: maxOrders, BaseMaxOrders: maxOrders, Active: true,
	}
	require.NoError(t, s.InsertSlot(ctx, &slot))
	return slot
}

func TestTryAdmit_ConcurrentNeverExceedsMax(t *testing.T) {
	t.Parallel()

	s := memory.New()
	slot := seedSlot(t, s, 30)

	var (
		wg       sync.WaitGroup
		admitted atomic.Int64
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := s.TryAdmit(context.Background(), slot.ID, day)
			assert.NoError(t, err)
			if ok {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 30, admitted.Load())
	committed, err := s.Committed(context.Background(), slot.ID, day)
	require.NoError(t, err)
	assert.Equal(t, 30, committed)
}

func TestRelease_StopsAtZero(t *testing.T) {
	t.Parallel()

	s := memory.New()
	slot := seedSlot(t, s, 2)
	ctx := context.Background()

	_, ok, err := s.Release(ctx, slot.ID, day)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = s.TryAdmit(ctx, slot.ID, day)
	require.NoError(t, err)
	committed, ok, err := s.Release(ctx, slot.ID, day)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, committed)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	t.Parallel()

	s := memory.New()
	slot := seedSlot(t, s, 5)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx fulfillmenttx.Repository) error {
		_, _, err := tx.TryAdmit(ctx, slot.ID, day)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	committed, err := s.Committed(ctx, slot.ID, day)
	require.NoError(t, err)
	assert.Equal(t, 0, committed)

	err = s.WithTx(ctx, func(tx fulfillmenttx.Repository) error {
		_, _, err := tx.TryAdmit(ctx, slot.ID, day)
		return err
	})
	require.NoError(t, err)
	committed, err = s.Committed(ctx, slot.ID, day)
	require.NoError(t, err)
	assert.Equal(t, 1, committed)
}

func TestInsertAssignmentIfAbsent_LoadsExisting(t *testing.T) {
	t.Parallel()

	s := memory.New()
	slot := seedSlot(t, s, 5)
	ctx := context.Background()

	courierID, err := s.CreateCourier(ctx, &domain.Courier{Name: "A", Phone: "+700000000000", Active: true})
	require.NoError(t, err)

	first := &domain.Assignment{CourierID: courierID, SectorID: slot.SectorID, SlotID: slot.ID, Date: day,
		Status: domain.AssignmentAssigned, MaxOrders: 30}
	created, err := s.InsertAssignmentIfAbsent(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	second := &domain.Assignment{CourierID: courierID, SectorID: slot.SectorID, SlotID: slot.ID,
		Date: day.Add(5 * time.Hour), Status: domain.AssignmentAssigned, MaxOrders: 10}
	created, err = s.InsertAssignmentIfAbsent(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 30, second.MaxOrders)
}

func TestCreateCourier_DuplicatePhone(t *testing.T) {
	t.Parallel()

	s := memory.New()
	ctx := context.Background()

	_, err := s.CreateCourier(ctx, &domain.Courier{Name: "A", Phone: "+700000000000"})
	require.NoError(t, err)
	_, err = s.CreateCourier(ctx, &domain.Courier{Name: "B", Phone: "+700000000000"})
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestListEligibleCouriers_CoverageAndDailyCount(t *testing.T) {
	t.Parallel()

	s := memory.New()
	slot := seedSlot(t, s, 5)
	ctx := context.Background()

	inside, err := s.CreateCourier(ctx, &domain.Courier{Name: "In", Phone: "+700000000001", Active: true,
		CoveragePincodes: []string{"560001"}})
	require.NoError(t, err)
	_, err = s.CreateCourier(ctx, &domain.Courier{Name: "Out", Phone: "+700000000002", Active: true,
		CoveragePincodes: []string{"110001"}})
	require.NoError(t, err)
	_, err = s.CreateCourier(ctx, &domain.Courier{Name: "Off", Phone: "+700000000003", Active: false,
		CoveragePincodes: []string{"560001"}})
	require.NoError(t, err)

	_, err = s.InsertAssignmentIfAbsent(ctx, &domain.Assignment{CourierID: inside, SectorID: slot.SectorID,
		SlotID: slot.ID, Date: day, Status: domain.AssignmentAssigned, MaxOrders: 30})
	require.NoError(t, err)

	list, err := s.ListEligibleCouriers(ctx, slot.SectorID, day)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, inside, list[0].CourierID)
	assert.Equal(t, 1, list[0].DailyAssignmentCount)
}

func TestUnits_DeleteByDateCascades(t *testing.T) {
	t.Parallel()

	s := memory.New()
	slot := seedSlot(t, s, 5)
	ctx := context.Background()

	_, err := s.InsertDeliveryUnitIfAbsent(ctx, &domain.DeliveryUnit{OrderID: "o-1", SlotID: slot.ID, Date: day,
		CourierID: 1, Status: domain.DeliveryPending})
	require.NoError(t, err)
	for _, v := range []string{"v-a", "v-b"} {
		_, err := s.InsertPickupUnitIfAbsent(ctx, &domain.PickupUnit{OrderID: "o-1", VendorID: v, SlotID: slot.ID,
			Date: day, CourierID: 1, Status: domain.PickupPending})
		require.NoError(t, err)
	}

	byVendor, err := s.ListDeliveryUnits(ctx, fulfillmenttx.UnitFilter{VendorID: "v-b"})
	require.NoError(t, err)
	assert.Len(t, byVendor, 1)

	removed, err := s.DeleteUnitsByDate(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	pickups, err := s.ListPickupUnits(ctx, fulfillmenttx.UnitFilter{Date: day})
	require.NoError(t, err)
	assert.Empty(t, pickups)
}

func TestSlotReferences(t *testing.T) {
	t.Parallel()

	s := memory.New()
	slot := seedSlot(t, s, 5)
	ctx := context.Background()

	require.NoError(t, s.UpsertOrderLines(ctx, []domain.OrderLine{
		{OrderID: "o-1", VendorID: "v-a", SlotID: slot.ID, Date: day},
		{OrderID: "o-1", VendorID: "v-b", SlotID: slot.ID, Date: day},
		{OrderID: "o-2", VendorID: "v-a", SlotID: slot.ID, Date: day.AddDate(0, 0, -1)},
	}))

	refs, err := s.SlotReferences(ctx, slot.ID, day)
	require.NoError(t, err)
	assert.Equal(t, 1, refs.UnresolvedOrders)
	assert.Equal(t, 0, refs.ActiveAssignments)

	canceled, err := s.CancelOrder(ctx, "o-1")
	require.NoError(t, err)
	assert.Len(t, canceled, 2)

	refs, err = s.SlotReferences(ctx, slot.ID, day)
	require.NoError(t, err)
	assert.Equal(t, 0, refs.UnresolvedOrders)
}
