package fulfillment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"service-fulfillment/internal/apperr"
	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/logx"
	"service-fulfillment/internal/notify"
	"service-fulfillment/internal/ports/fulfillmenttx"
)

var deliveryEvents = map[domain.DeliveryStatus]string{
	domain.DeliveryOutForDelivery: notify.EventOutForDelivery,
	domain.DeliveryDelivered:      notify.EventDelivered,
	domain.DeliveryFailed:         notify.EventDeliveryFailed,
	domain.DeliveryReturned:       notify.EventReturned,
}

// DispatchOrder moves a fully picked up order out for delivery.
func (s *Service) DispatchOrder(ctx context.Context, orderID string, courierID int64) (domain.DeliveryUnit, error) {
	return s.moveOrder(ctx, orderID, courierID, domain.DeliveryOutForDelivery, "")
}

// MarkOrderDelivered completes an order, dispatching it first if needed.
// Repeating the call for a delivered order is a no-op.
func (s *Service) MarkOrderDelivered(ctx context.Context, orderID string, courierID int64) (domain.DeliveryUnit, error) {
	return s.moveOrder(ctx, orderID, courierID, domain.DeliveryDelivered, "")
}

// MarkOrderFailed records a failed delivery attempt.
func (s *Service) MarkOrderFailed(ctx context.Context, orderID string, courierID int64, reason string) (domain.DeliveryUnit, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.DeliveryUnit{}, apperr.NewValidationError([]string{"reason is required"})
	}
	return s.moveOrder(ctx, orderID, courierID, domain.DeliveryFailed, reason)
}

// MarkOrderReturned records that an undelivered order went back to the vendor.
func (s *Service) MarkOrderReturned(ctx context.Context, orderID string, courierID int64) (domain.DeliveryUnit, error) {
	return s.moveOrder(ctx, orderID, courierID, domain.DeliveryReturned, "")
}

func validateOrderTarget(orderID string, courierID int64) (string, error) {
	var violations []string
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		violations = append(violations, "order_id is required")
	}
	if courierID <= 0 {
		violations = append(violations, "courier_id must be positive")
	}
	return orderID, apperr.NewValidationError(violations)
}

func (s *Service) moveOrder(
	ctx context.Context,
	orderID string,
	courierID int64,
	target domain.DeliveryStatus,
	reason string,
) (domain.DeliveryUnit, error) {
	orderID, err := validateOrderTarget(orderID, courierID)
	if err != nil {
		return domain.DeliveryUnit{}, err
	}
	if target == domain.DeliveryDelivered {
		if err := s.ensureNotCanceled(ctx, orderID); err != nil {
			return domain.DeliveryUnit{}, err
		}
	}

	var (
		unit    domain.DeliveryUnit
		from    domain.DeliveryStatus
		changed bool
	)
	err = s.retry.Do(ctx, "move order to "+string(target), func(ctx context.Context) error {
		changed = false
		return s.store.WithTx(ctx, func(tx fulfillmenttx.Repository) error {
			u, err := tx.GetDeliveryUnit(ctx, orderID)
			if err != nil {
				return err
			}
			if u == nil {
				return fmt.Errorf("delivery of order %s: %w", orderID, apperr.ErrNotFound)
			}
			if u.CourierID != courierID {
				return apperr.NewConflict("courier is not bound to the order", orderID).
					With("courier_id", u.CourierID)
			}
			unit, from = *u, u.Status
			if u.Status == target {
				return nil
			}
			if err := requirePickupCompleted(ctx, tx, u, target); err != nil {
				return err
			}

			now := s.now()
			if target == domain.DeliveryDelivered {
				err = u.AdvanceTo(target, now)
			} else {
				err = u.MoveTo(target, now)
			}
			if err != nil {
				return err
			}
			if target == domain.DeliveryFailed {
				u.FailureReason = reason
			}
			if err := tx.UpdateDeliveryUnit(ctx, u); err != nil {
				return err
			}
			if err := recordOutcome(ctx, tx, courierID, from, target); err != nil {
				return err
			}
			if err := settleAssignment(ctx, tx, u, now); err != nil {
				return err
			}
			unit, changed = *u, true
			return nil
		})
	})
	if err != nil {
		return domain.DeliveryUnit{}, err
	}
	if !changed {
		return unit, nil
	}

	if s.transitions != nil {
		s.transitions.WithLabelValues("delivery", string(target)).Inc()
	}
	s.logger.Info("order delivery advanced",
		logx.String("event", "order_"+string(target)),
		logx.String("order_id", orderID),
		logx.Int64("courier_id", courierID),
		logx.String("from", string(from)),
		logx.String("to", string(target)),
	)
	payload := map[string]any{
		"order_id":   orderID,
		"courier_id": courierID,
		"status":     string(target),
	}
	if reason != "" {
		payload["reason"] = reason
	}
	s.notifier.Notify(ctx, notify.Customers, deliveryEvents[target], payload)
	return unit, nil
}

// ensureNotCanceled consults the orders service when one is configured.
// Lookup failures are logged and do not block the delivery.
func (s *Service) ensureNotCanceled(ctx context.Context, orderID string) error {
	if s.orders == nil {
		return nil
	}
	ord, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Warn("order status lookup failed",
			logx.String("order_id", orderID),
			logx.Err(err),
		)
		return nil
	}
	if ord != nil && ord.Canceled() {
		return apperr.NewConflict("order is canceled", orderID).With("status", ord.Status)
	}
	return nil
}

// requirePickupCompleted rejects leaving pending before every vendor share
// of the order has been picked up.
func requirePickupCompleted(ctx context.Context, tx fulfillmenttx.Repository, u *domain.DeliveryUnit, target domain.DeliveryStatus) error {
	if u.Status != domain.DeliveryPending {
		return nil
	}
	pickups, err := tx.ListPickupUnits(ctx, fulfillmenttx.UnitFilter{OrderID: u.OrderID})
	if err != nil {
		return err
	}
	statuses := make([]domain.PickupStatus, 0, len(pickups))
	for _, p := range pickups {
		statuses = append(statuses, p.Status)
	}
	if len(statuses) == 0 || domain.AggregatePickup(statuses) != domain.OrderPickupCompleted {
		return &apperr.InvalidTransitionError{
			Machine: "delivery",
			ID:      u.OrderID,
			From:    string(u.Status),
			To:      string(target),
		}
	}
	return nil
}

// recordOutcome updates courier counters: a delivery counts as a success,
// a failure or a return without a prior failure counts as an attempt.
func recordOutcome(ctx context.Context, tx fulfillmenttx.Repository, courierID int64, from, to domain.DeliveryStatus) error {
	switch {
	case to == domain.DeliveryDelivered:
		return tx.RecordDeliveryOutcome(ctx, courierID, true)
	case to == domain.DeliveryFailed:
		return tx.RecordDeliveryOutcome(ctx, courierID, false)
	case to == domain.DeliveryReturned && from == domain.DeliveryOutForDelivery:
		return tx.RecordDeliveryOutcome(ctx, courierID, false)
	default:
		return nil
	}
}

// settleAssignment completes the courier's binding once every order it
// carries in the slot is terminal.
func settleAssignment(ctx context.Context, tx fulfillmenttx.Repository, u *domain.DeliveryUnit, now time.Time) error {
	if !u.Status.Terminal() {
		return nil
	}
	units, err := tx.ListDeliveryUnits(ctx, fulfillmenttx.UnitFilter{Date: u.Date, SlotID: u.SlotID, CourierID: u.CourierID})
	if err != nil {
		return err
	}
	for _, other := range units {
		if !other.Status.Terminal() {
			return nil
		}
	}
	list, err := tx.ListAssignments(ctx, fulfillmenttx.AssignmentFilter{Date: u.Date, SlotID: u.SlotID, CourierID: u.CourierID})
	if err != nil {
		return err
	}
	for i := range list {
		a := &list[i]
		if a.Status == domain.AssignmentCompleted {
			continue
		}
		if a.ActivatedAt == nil {
			a.ActivatedAt = &now
		}
		a.Status = domain.AssignmentCompleted
		a.CompletedAt = &now
		if err := tx.UpdateAssignment(ctx, a); err != nil {
			return fmt.Errorf("complete assignment %d: %w", a.ID, err)
		}
	}
	return nil
}
