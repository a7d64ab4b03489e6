package fulfillment

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"service-fulfillment/internal/apperr"
	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/logx"
	"service-fulfillment/internal/notify"
	"service-fulfillment/internal/ports/fulfillmenttx"
	"service-fulfillment/internal/storeretry"
)

// Service drives pickup and delivery units through their state machines.
type Service struct {
	store       fulfillmentStore
	retry       *storeretry.Retrier
	logger      logx.Logger
	notifier    notify.Notifier
	orders      OrderStatusSource
	transitions labeledCounter
	alerts      counter
	now         func() time.Time
}

// NewService creates a Service. notifier may be nil.
func NewService(store fulfillmentStore, retry *storeretry.Retrier, logger logx.Logger, notifier notify.Notifier) *Service {
	if logger == nil {
		logger = logx.Nop()
	}
	if retry == nil {
		retry = storeretry.New(storeretry.Config{}, logger, nil)
	}
	if notifier == nil {
		notifier = notify.Nop()
	}
	return &Service{
		store:    store,
		retry:    retry,
		logger:   logger,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithOrderStatus enables the canceled-order check before delivery.
func (s *Service) WithOrderStatus(src OrderStatusSource) *Service {
	s.orders = src
	return s
}

// WithMetrics attaches the transition and pickup-alert counters.
func (s *Service) WithMetrics(transitions labeledCounter, alerts counter) *Service {
	s.transitions = transitions
	s.alerts = alerts
	return s
}

// WithClock replaces the clock used for transition timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// PickupResult reports the outcome of a bulk vendor pickup transition.
type PickupResult struct {
	SlotID   int64
	VendorID string
	Date     time.Time
	Status   domain.PickupStatus
	// Updated counts units moved by this call.
	Updated int
	// Unchanged counts units that were already at or past Status.
	Unchanged int
	OrderIDs  []string
}

func validateVendorTarget(slotID int64, vendorID string, date time.Time) (string, error) {
	var violations []string
	if slotID <= 0 {
		violations = append(violations, "slot_id must be positive")
	}
	vendorID = strings.TrimSpace(vendorID)
	if vendorID == "" {
		violations = append(violations, "vendor_id is required")
	}
	if date.IsZero() {
		violations = append(violations, "date is required")
	}
	return vendorID, apperr.NewValidationError(violations)
}

func vendorUnits(ctx context.Context, tx fulfillmenttx.Repository, slotID int64, vendorID string, date time.Time) ([]domain.PickupUnit, error) {
	units, err := tx.ListPickupUnits(ctx, fulfillmenttx.UnitFilter{Date: date, SlotID: slotID, VendorID: vendorID})
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("pickups of vendor %s in slot %d on %s: %w",
			vendorID, slotID, domain.FormatDate(date), apperr.ErrNotFound)
	}
	return units, nil
}

// MarkVendorEnRoute moves every pending unit of the vendor in the slot to en_route.
func (s *Service) MarkVendorEnRoute(ctx context.Context, slotID int64, vendorID string, date time.Time) (PickupResult, error) {
	res, err := s.advanceVendor(ctx, "mark vendor en route", slotID, vendorID, date, domain.PickupEnRoute)
	if err != nil {
		return PickupResult{}, err
	}
	if res.Updated > 0 {
		s.notifier.Notify(ctx, notify.Vendors, notify.EventCourierEnRoute, map[string]any{
			"slot_id":   slotID,
			"vendor_id": res.VendorID,
			"date":      domain.FormatDate(res.Date),
			"orders":    res.OrderIDs,
		})
	}
	return res, nil
}

// MarkVendorPickedUp moves every unit of the vendor in the slot to
// picked_up. Pending units step through en_route.
func (s *Service) MarkVendorPickedUp(ctx context.Context, slotID int64, vendorID string, date time.Time) (PickupResult, error) {
	res, err := s.advanceVendor(ctx, "mark vendor picked up", slotID, vendorID, date, domain.PickupPickedUp)
	if err != nil {
		return PickupResult{}, err
	}
	if res.Updated > 0 {
		s.notifier.Notify(ctx, notify.Vendors, notify.EventPickupConfirmed, map[string]any{
			"slot_id":   slotID,
			"vendor_id": res.VendorID,
			"date":      domain.FormatDate(res.Date),
			"orders":    res.OrderIDs,
		})
	}
	return res, nil
}

func (s *Service) advanceVendor(
	ctx context.Context,
	op string,
	slotID int64,
	vendorID string,
	date time.Time,
	target domain.PickupStatus,
) (PickupResult, error) {
	vendorID, err := validateVendorTarget(slotID, vendorID, date)
	if err != nil {
		return PickupResult{}, err
	}
	date = domain.NormalizeDate(date)

	var res PickupResult
	err = s.retry.Do(ctx, op, func(ctx context.Context) error {
		res = PickupResult{SlotID: slotID, VendorID: vendorID, Date: date, Status: target}
		return s.store.WithTx(ctx, func(tx fulfillmenttx.Repository) error {
			units, err := vendorUnits(ctx, tx, slotID, vendorID, date)
			if err != nil {
				return err
			}
			now := s.now()
			couriers := make(map[int64]struct{})
			for i := range units {
				u := &units[i]
				if reached(u.Status, target) {
					res.Unchanged++
					continue
				}
				if err := u.AdvanceTo(target, now); err != nil {
					return err
				}
				if err := tx.UpdatePickupUnit(ctx, u); err != nil {
					return err
				}
				res.Updated++
				res.OrderIDs = append(res.OrderIDs, u.OrderID)
				couriers[u.CourierID] = struct{}{}
			}
			return activateAssignments(ctx, tx, slotID, date, slices.Sorted(maps.Keys(couriers)), now)
		})
	})
	if err != nil {
		return PickupResult{}, err
	}

	if s.transitions != nil && res.Updated > 0 {
		s.transitions.WithLabelValues("pickup", string(target)).Add(float64(res.Updated))
	}
	s.logger.Info("vendor pickup advanced",
		logx.String("event", "vendor_"+string(target)),
		logx.Int64("slot_id", slotID),
		logx.String("vendor_id", vendorID),
		logx.Date("date", date),
		logx.Int("updated", res.Updated),
		logx.Int("unchanged", res.Unchanged),
	)
	return res, nil
}

// reached reports whether cur is at or past target. picked_up is the last
// pickup state.
func reached(cur, target domain.PickupStatus) bool {
	return cur == target || cur == domain.PickupPickedUp
}

// activateAssignments moves the couriers' assigned bindings for the slot to active.
func activateAssignments(ctx context.Context, tx fulfillmenttx.Repository, slotID int64, date time.Time, courierIDs []int64, now time.Time) error {
	for _, courierID := range courierIDs {
		list, err := tx.ListAssignments(ctx, fulfillmenttx.AssignmentFilter{Date: date, SlotID: slotID, CourierID: courierID})
		if err != nil {
			return err
		}
		for i := range list {
			a := &list[i]
			if a.Status != domain.AssignmentAssigned {
				continue
			}
			a.Status = domain.AssignmentActive
			a.ActivatedAt = &now
			if err := tx.UpdateAssignment(ctx, a); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReportPickupFailure raises an operator alert for a vendor pickup problem.
// Unit states are left unchanged.
func (s *Service) ReportPickupFailure(ctx context.Context, slotID int64, vendorID string, date time.Time, reason string) error {
	vendorID, err := validateVendorTarget(slotID, vendorID, date)
	if err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperr.NewValidationError([]string{"reason is required"})
	}
	date = domain.NormalizeDate(date)

	var orderIDs []string
	err = s.retry.Do(ctx, "report pickup failure", func(ctx context.Context) error {
		orderIDs = nil
		return s.store.WithTx(ctx, func(tx fulfillmenttx.Repository) error {
			units, err := vendorUnits(ctx, tx, slotID, vendorID, date)
			if err != nil {
				return err
			}
			for _, u := range units {
				orderIDs = append(orderIDs, u.OrderID)
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	if s.alerts != nil {
		s.alerts.Inc()
	}
	s.logger.Warn("pickup failure reported",
		logx.String("event", "pickup_failure"),
		logx.Int64("slot_id", slotID),
		logx.String("vendor_id", vendorID),
		logx.Date("date", date),
		logx.String("reason", reason),
		logx.Any("orders", orderIDs),
	)
	s.notifier.Notify(ctx, notify.Vendors, notify.EventPickupFailed, map[string]any{
		"slot_id":   slotID,
		"vendor_id": vendorID,
		"date":      domain.FormatDate(date),
		"reason":    reason,
		"orders":    orderIDs,
	})
	return nil
}
