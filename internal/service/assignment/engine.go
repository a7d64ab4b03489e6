package assignment

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"service-fulfillment/internal/apperr"
	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/logx"
	"service-fulfillment/internal/notify"
	"service-fulfillment/internal/ports/fulfillmenttx"
	"service-fulfillment/internal/storeretry"
)

// Engine binds couriers to slots on a date.
type Engine struct {
	store    engineStore
	policy   Policy
	retry    *storeretry.Retrier
	logger   logx.Logger
	notifier notify.Notifier
	created  labeledCounter
	now      func() time.Time
}

// NewEngine creates an Engine. notifier and created may be nil.
func NewEngine(
	store engineStore,
	policy Policy,
	retry *storeretry.Retrier,
	logger logx.Logger,
	notifier notify.Notifier,
	created labeledCounter,
) *Engine {
	if logger == nil {
		logger = logx.Nop()
	}
	if retry == nil {
		retry = storeretry.New(storeretry.Config{}, logger, nil)
	}
	if notifier == nil {
		notifier = notify.Nop()
	}
	return &Engine{
		store:    store,
		policy:   policy,
		retry:    retry,
		logger:   logger,
		notifier: notifier,
		created:  created,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for assignment and unit timestamps.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	if now != nil {
		e.now = now
	}
	return e
}

// AssignRequest binds one or more couriers to a slot on a date.
type AssignRequest struct {
	CourierIDs []int64
	SectorID   int64
	SlotID     int64
	Date       time.Time
	// Capacity is the order target of each binding; zero uses the policy default.
	Capacity int
}

// AssignResult reports which bindings were new.
type AssignResult struct {
	Created     int
	Skipped     int
	Assignments []domain.Assignment
}

// AutoAssignResult summarizes an automatic assignment run.
type AutoAssignResult struct {
	AssignmentsCreated int
	OrdersBound        int
	UncoveredSlots     []int64
}

// ResetResult reports how many assignments were removed.
type ResetResult struct {
	Removed      int
	UnitsRemoved int
}

func (r AssignRequest) validate() error {
	var violations []string
	if len(r.CourierIDs) == 0 {
		violations = append(violations, "courier_ids is required")
	}
	for _, id := range r.CourierIDs {
		if id <= 0 {
			violations = append(violations, fmt.Sprintf("courier_id %d must be positive", id))
		}
	}
	if r.SectorID <= 0 {
		violations = append(violations, "sector_id must be positive")
	}
	if r.SlotID <= 0 {
		violations = append(violations, "slot_id must be positive")
	}
	if r.Date.IsZero() {
		violations = append(violations, "date is required")
	}
	if r.Capacity < 0 || r.Capacity > domain.MaxSlotOrders {
		violations = append(violations, fmt.Sprintf("capacity must be within 1..%d", domain.MaxSlotOrders))
	}
	return apperr.NewValidationError(violations)
}

// AssignCourierToSlot binds a single courier. Re-requesting an existing
// binding returns it unchanged and counts it as skipped.
func (e *Engine) AssignCourierToSlot(ctx context.Context, courierID, sectorID, slotID int64, date time.Time, capacity int) (AssignResult, error) {
	return e.Assign(ctx, AssignRequest{
		CourierIDs: []int64{courierID},
		SectorID:   sectorID,
		SlotID:     slotID,
		Date:       date,
		Capacity:   capacity,
	})
}

// Assign binds every requested courier in one transaction.
func (e *Engine) Assign(ctx context.Context, req AssignRequest) (AssignResult, error) {
	if err := req.validate(); err != nil {
		return AssignResult{}, err
	}
	date := domain.NormalizeDate(req.Date)
	capacity := e.policy.capacity(req.Capacity)
	courierIDs := slices.Compact(slices.Sorted(slices.Values(req.CourierIDs)))

	var (
		res   AssignResult
		fresh []domain.Assignment
	)
	err := e.retry.Do(ctx, "assign couriers", func(ctx context.Context) error {
		res, fresh = AssignResult{}, nil
		return e.store.WithTx(ctx, func(tx fulfillmenttx.Repository) error {
			sec, slot, err := target(ctx, tx, req.SectorID, req.SlotID, date)
			if err != nil {
				return err
			}
			for _, id := range courierIDs {
				existing, err := tx.ListAssignments(ctx, fulfillmenttx.AssignmentFilter{Date: date, SlotID: slot.ID, CourierID: id})
				if err != nil {
					return err
				}
				if len(existing) > 0 {
					res.Skipped++
					res.Assignments = append(res.Assignments, existing[0])
					continue
				}
				c, err := tx.GetCourier(ctx, id)
				if err != nil {
					return err
				}
				if c == nil {
					return fmt.Errorf("courier %d: %w", id, apperr.ErrNotFound)
				}
				if !c.Active {
					return apperr.NewConflict("courier is inactive", strconv.FormatInt(id, 10))
				}
				a, created, err := e.bind(ctx, tx, sec, slot, id, date, capacity)
				if err != nil {
					return err
				}
				if created {
					res.Created++
					fresh = append(fresh, a)
				} else {
					res.Skipped++
				}
				res.Assignments = append(res.Assignments, a)
			}
			return nil
		})
	})
	if err != nil {
		return AssignResult{}, err
	}

	e.announce(ctx, "manual", fresh)
	e.logger.Info("couriers assigned",
		logx.String("event", "couriers_assigned"),
		logx.Int64("slot_id", req.SlotID),
		logx.Date("date", date),
		logx.Int("created", res.Created),
		logx.Int("skipped", res.Skipped),
	)
	return res, nil
}

func target(ctx context.Context, tx fulfillmenttx.Repository, sectorID, slotID int64, date time.Time) (*domain.Sector, *domain.Slot, error) {
	sec, err := tx.GetSector(ctx, sectorID)
	if err != nil {
		return nil, nil, err
	}
	if sec == nil {
		return nil, nil, fmt.Errorf("sector %d: %w", sectorID, apperr.ErrNotFound)
	}
	if !sec.Active {
		return nil, nil, apperr.NewConflict("sector is inactive").With("sector_id", sectorID)
	}
	slot, err := tx.GetSlot(ctx, slotID)
	if err != nil {
		return nil, nil, err
	}
	if slot == nil || slot.DeletedAt != nil {
		return nil, nil, fmt.Errorf("slot %d: %w", slotID, apperr.ErrNotFound)
	}
	if slot.SectorID != sectorID {
		return nil, nil, apperr.NewValidationError([]string{
			fmt.Sprintf("slot %d does not belong to sector %d", slotID, sectorID),
		})
	}
	if !slot.RunsOn(date) {
		return nil, nil, apperr.NewConflict("slot does not run on this date").
			With("slot_id", slotID).
			With("date", domain.FormatDate(date))
	}
	return sec, slot, nil
}

// bind is the single idempotent path that creates assignments. A new
// binding merges the sector pincodes into the courier's coverage and
// snapshots the orders already bound to the courier in the slot.
func (e *Engine) bind(
	ctx context.Context,
	tx fulfillmenttx.Repository,
	sec *domain.Sector,
	slot *domain.Slot,
	courierID int64,
	date time.Time,
	capacity int,
) (domain.Assignment, bool, error) {
	a := domain.Assignment{
		CourierID:  courierID,
		SectorID:   sec.ID,
		SlotID:     slot.ID,
		Date:       date,
		Status:     domain.AssignmentAssigned,
		MaxOrders:  capacity,
		AssignedAt: e.now(),
	}
	created, err := tx.InsertAssignmentIfAbsent(ctx, &a)
	if err != nil || !created {
		return a, false, err
	}
	if err := tx.MergeCourierCoverage(ctx, courierID, sec.Pincodes); err != nil {
		return a, false, err
	}
	units, err := tx.ListDeliveryUnits(ctx, fulfillmenttx.UnitFilter{Date: date, SlotID: slot.ID, CourierID: courierID})
	if err != nil {
		return a, false, err
	}
	if len(units) > 0 {
		a.CurrentOrders = len(units)
		if err := tx.UpdateAssignment(ctx, &a); err != nil {
			return a, false, err
		}
	}
	return a, true, nil
}

func (e *Engine) announce(ctx context.Context, source string, created []domain.Assignment) {
	if len(created) == 0 {
		return
	}
	if e.created != nil {
		e.created.WithLabelValues(source).Add(float64(len(created)))
	}
	for _, a := range created {
		e.notifier.Notify(ctx, notify.Couriers, notify.EventCourierAssigned, map[string]any{
			"courier_id": a.CourierID,
			"slot_id":    a.SlotID,
			"date":       domain.FormatDate(a.Date),
			"max_orders": a.MaxOrders,
		})
	}
}

// AutoAssign covers every slot that has open orders on date with enough
// courier capacity, then binds the orders to the slot's assignments by
// materializing pickup and delivery units. Running it again is a no-op.
func (e *Engine) AutoAssign(ctx context.Context, date time.Time) (AutoAssignResult, error) {
	if date.IsZero() {
		return AutoAssignResult{}, apperr.NewValidationError([]string{"date is required"})
	}
	date = domain.NormalizeDate(date)

	var (
		res     AutoAssignResult
		created []domain.Assignment
	)
	err := e.retry.Do(ctx, "auto assign", func(ctx context.Context) error {
		res, created = AutoAssignResult{}, nil
		return e.store.WithTx(ctx, func(tx fulfillmenttx.Repository) error {
			lines, err := tx.ListOpenOrderLines(ctx, date)
			if err != nil {
				return err
			}
			bySlot := groupBySlot(lines)
			for _, slotID := range slices.Sorted(maps.Keys(bySlot)) {
				c, err := e.autoAssignSlot(ctx, tx, date, slotID, bySlot[slotID], &res)
				if err != nil {
					return err
				}
				created = append(created, c...)
			}
			return nil
		})
	})
	if err != nil {
		return AutoAssignResult{}, err
	}

	e.announce(ctx, "auto", created)
	e.logger.Info("auto assignment finished",
		logx.String("event", "auto_assign"),
		logx.Date("date", date),
		logx.Int("assignments_created", res.AssignmentsCreated),
		logx.Int("orders_bound", res.OrdersBound),
		logx.Any("uncovered_slots", res.UncoveredSlots),
	)
	return res, nil
}

func groupBySlot(lines []domain.OrderLine) map[int64]map[string][]domain.OrderLine {
	out := make(map[int64]map[string][]domain.OrderLine)
	for _, l := range lines {
		orders, ok := out[l.SlotID]
		if !ok {
			orders = make(map[string][]domain.OrderLine)
			out[l.SlotID] = orders
		}
		orders[l.OrderID] = append(orders[l.OrderID], l)
	}
	return out
}

func (e *Engine) autoAssignSlot(
	ctx context.Context,
	tx fulfillmenttx.Repository,
	date time.Time,
	slotID int64,
	orders map[string][]domain.OrderLine,
	res *AutoAssignResult,
) ([]domain.Assignment, error) {
	slot, err := tx.GetSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot == nil || slot.DeletedAt != nil {
		e.logger.Warn("open orders reference a missing slot",
			logx.Int64("slot_id", slotID),
			logx.Int("orders", len(orders)),
		)
		res.UncoveredSlots = append(res.UncoveredSlots, slotID)
		return nil, nil
	}
	sec, err := tx.GetSector(ctx, slot.SectorID)
	if err != nil {
		return nil, err
	}
	if sec == nil {
		res.UncoveredSlots = append(res.UncoveredSlots, slotID)
		return nil, nil
	}

	assignments, err := tx.ListAssignments(ctx, fulfillmenttx.AssignmentFilter{Date: date, SlotID: slotID})
	if err != nil {
		return nil, err
	}
	need, coverage, err := demand(ctx, tx, slotID, date, orders, assignments)
	if err != nil {
		return nil, err
	}
	bound := make(map[int64]bool, len(assignments))
	for _, a := range assignments {
		bound[a.CourierID] = true
	}

	var created []domain.Assignment
	if coverage < need {
		candidates, err := tx.ListEligibleCouriers(ctx, sec.ID, date)
		if err != nil {
			return nil, err
		}
		for _, c := range e.policy.eligible(candidates, bound) {
			if coverage >= need {
				break
			}
			a, isNew, err := e.bind(ctx, tx, sec, slot, c.CourierID, date, e.policy.capacity(0))
			if err != nil {
				return nil, err
			}
			if isNew {
				res.AssignmentsCreated++
				created = append(created, a)
			}
			bound[c.CourierID] = true
			coverage += a.MaxOrders
			assignments = append(assignments, a)
		}
	}

	n, unbound, err := e.bindOrders(ctx, tx, slot, date, orders, assignments)
	if err != nil {
		return nil, err
	}
	res.OrdersBound += n
	if coverage < need || unbound > 0 {
		res.UncoveredSlots = append(res.UncoveredSlots, slotID)
	}
	return created, nil
}

// demand returns how many of the slot's orders still need courier capacity
// and how much capacity the unfinished assignments offer. Orders delivered
// under a completed assignment need nothing; completed assignments offer
// nothing.
func demand(
	ctx context.Context,
	tx fulfillmenttx.Repository,
	slotID int64,
	date time.Time,
	orders map[string][]domain.OrderLine,
	assignments []domain.Assignment,
) (int, int, error) {
	done := make(map[int64]bool)
	coverage := 0
	for _, a := range assignments {
		if a.Status == domain.AssignmentCompleted {
			done[a.CourierID] = true
			continue
		}
		coverage += a.MaxOrders
	}
	need := len(orders)
	if len(done) == 0 {
		return need, coverage, nil
	}
	units, err := tx.ListDeliveryUnits(ctx, fulfillmenttx.UnitFilter{Date: date, SlotID: slotID})
	if err != nil {
		return 0, 0, err
	}
	for _, u := range units {
		if _, open := orders[u.OrderID]; open && done[u.CourierID] {
			need--
		}
	}
	return need, coverage, nil
}

// bindOrders gives every unbound order of the slot to the first assignment
// with spare capacity and materializes its units. Units that already exist
// are left untouched. It returns the number of newly bound orders and the
// number of orders that found no capacity.
func (e *Engine) bindOrders(
	ctx context.Context,
	tx fulfillmenttx.Repository,
	slot *domain.Slot,
	date time.Time,
	orders map[string][]domain.OrderLine,
	assignments []domain.Assignment,
) (int, int, error) {
	units, err := tx.ListDeliveryUnits(ctx, fulfillmenttx.UnitFilter{Date: date, SlotID: slot.ID})
	if err != nil {
		return 0, 0, err
	}
	courierOf := make(map[string]int64, len(units))
	load := make(map[int64]int)
	for _, u := range units {
		courierOf[u.OrderID] = u.CourierID
		load[u.CourierID]++
	}
	slices.SortFunc(assignments, func(a, b domain.Assignment) int { return cmp.Compare(a.ID, b.ID) })

	var (
		now            = e.now()
		bound, unbound int
	)
	for _, orderID := range slices.Sorted(maps.Keys(orders)) {
		courierID, ok := courierOf[orderID]
		if !ok {
			idx := slices.IndexFunc(assignments, func(a domain.Assignment) bool {
				return a.Status != domain.AssignmentCompleted && load[a.CourierID] < a.MaxOrders
			})
			if idx < 0 {
				unbound++
				continue
			}
			courierID = assignments[idx].CourierID
			du := domain.DeliveryUnit{
				OrderID:   orderID,
				SlotID:    slot.ID,
				SectorID:  slot.SectorID,
				Date:      date,
				CourierID: courierID,
				Status:    domain.DeliveryPending,
				CreatedAt: now,
			}
			created, err := tx.InsertDeliveryUnitIfAbsent(ctx, &du)
			if err != nil {
				return 0, 0, err
			}
			if created {
				load[courierID]++
				bound++
			}
		}
		for _, l := range orders[orderID] {
			pu := domain.PickupUnit{
				OrderID:   orderID,
				VendorID:  l.VendorID,
				SlotID:    slot.ID,
				SectorID:  slot.SectorID,
				Date:      date,
				CourierID: courierID,
				Items:     l.Items,
				Status:    domain.PickupPending,
				CreatedAt: now,
			}
			if _, err := tx.InsertPickupUnitIfAbsent(ctx, &pu); err != nil {
				return 0, 0, err
			}
		}
	}

	for i := range assignments {
		a := &assignments[i]
		if a.CurrentOrders == load[a.CourierID] {
			continue
		}
		a.CurrentOrders = load[a.CourierID]
		if err := tx.UpdateAssignment(ctx, a); err != nil {
			return 0, 0, err
		}
	}
	return bound, unbound, nil
}

// ResetAssignments removes every assignment of date together with the
// units of orders still in early pickup stages. It fails with a
// ConflictError listing the orders if any order has been picked up or has
// left the pending delivery state; nothing is removed in that case.
func (e *Engine) ResetAssignments(ctx context.Context, date time.Time) (ResetResult, error) {
	if date.IsZero() {
		return ResetResult{}, apperr.NewValidationError([]string{"date is required"})
	}
	date = domain.NormalizeDate(date)

	var res ResetResult
	err := e.retry.Do(ctx, "reset assignments", func(ctx context.Context) error {
		res = ResetResult{}
		return e.store.WithTx(ctx, func(tx fulfillmenttx.Repository) error {
			filter := fulfillmenttx.UnitFilter{Date: date}
			pickups, err := tx.ListPickupUnits(ctx, filter)
			if err != nil {
				return err
			}
			deliveries, err := tx.ListDeliveryUnits(ctx, filter)
			if err != nil {
				return err
			}
			if blocked := inFlightOrders(pickups, deliveries); len(blocked) > 0 {
				return apperr.NewConflict("orders already picked up", blocked...).
					With("date", domain.FormatDate(date))
			}
			if res.UnitsRemoved, err = tx.DeleteUnitsByDate(ctx, date); err != nil {
				return err
			}
			res.Removed, err = tx.DeleteAssignmentsByDate(ctx, date)
			return err
		})
	})
	if err != nil {
		return ResetResult{}, err
	}

	e.logger.Info("assignments reset",
		logx.String("event", "assignments_reset"),
		logx.Date("date", date),
		logx.Int("removed", res.Removed),
		logx.Int("units_removed", res.UnitsRemoved),
	)
	return res, nil
}

func inFlightOrders(pickups []domain.PickupUnit, deliveries []domain.DeliveryUnit) []string {
	set := make(map[string]struct{})
	for _, p := range pickups {
		if p.Status == domain.PickupPickedUp {
			set[p.OrderID] = struct{}{}
		}
	}
	for _, d := range deliveries {
		if d.Status != domain.DeliveryPending {
			set[d.OrderID] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(set))
}

// List returns assignments of a date, optionally narrowed to a slot or courier.
func (e *Engine) List(ctx context.Context, f fulfillmenttx.AssignmentFilter) ([]domain.Assignment, error) {
	if !f.Date.IsZero() {
		f.Date = domain.NormalizeDate(f.Date)
	}
	return storeretry.Value(ctx, e.retry, "list assignments", func(ctx context.Context) ([]domain.Assignment, error) {
		return e.store.ListAssignments(ctx, f)
	})
}
