package orders

import (
	"context"
	"fmt"
	"strings"

	"service-fulfillment/internal/apperr"
	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/logx"
	"service-fulfillment/internal/ports/fulfillmenttx"
	"service-fulfillment/internal/storeretry"
)

// Processor projects order events into the order-line store
type Processor struct {
	repo   TxRunner
	retry  *storeretry.Retrier
	logger logx.Logger
}

// NewProcessor creates a new orders.Processor
func NewProcessor(repo TxRunner, retry *storeretry.Retrier, logger logx.Logger) *Processor {
	if logger == nil {
		logger = logx.Nop()
	}
	if retry == nil {
		retry = storeretry.New(storeretry.Config{}, logger, nil)
	}
	return &Processor{repo: repo, retry: retry, logger: logger}
}

// Handle processes a single orders.Event. Unknown statuses are ignored.
func (p *Processor) Handle(ctx context.Context, e Event) error {
	switch ActionFor(e.Status) {
	case ActionUpsert:
		return p.onCreated(ctx, e)
	case ActionCancel:
		return p.onCanceled(ctx, e)
	default:
		p.logger.Debug("order event ignored",
			logx.String("order_id", e.OrderID),
			logx.String("status", e.Status),
		)
		return nil
	}
}

func validateCreated(e Event) error {
	var violations []string
	if strings.TrimSpace(e.OrderID) == "" {
		violations = append(violations, "order_id is required")
	}
	if e.SlotID <= 0 {
		violations = append(violations, "slot_id must be positive")
	}
	if e.SectorID <= 0 {
		violations = append(violations, "sector_id must be positive")
	}
	if e.DeliveryDate.IsZero() {
		violations = append(violations, "delivery_date is required")
	}
	if len(e.Lines) == 0 {
		violations = append(violations, "lines must not be empty")
	}
	for i, l := range e.Lines {
		if strings.TrimSpace(l.VendorID) == "" {
			violations = append(violations, fmt.Sprintf("lines[%d].vendor_id is required", i))
		}
	}
	return apperr.NewValidationError(violations)
}

func (p *Processor) onCreated(ctx context.Context, e Event) error {
	if err := validateCreated(e); err != nil {
		return err
	}
	err := p.retry.Do(ctx, "upsert order lines", func(ctx context.Context) error {
		return p.repo.WithTx(ctx, func(tx fulfillmenttx.Repository) error {
			return tx.UpsertOrderLines(ctx, e.orderLines())
		})
	})
	if err != nil {
		return err
	}
	p.logger.Info("order projected",
		logx.String("event", "order_upserted"),
		logx.String("order_id", e.OrderID),
		logx.Int64("slot_id", e.SlotID),
		logx.Date("date", e.DeliveryDate),
		logx.Int("lines", len(e.Lines)),
	)
	return nil
}

// onCanceled closes the order lines, gives the slot capacity back and drops
// units that have not started moving. Repeated events are no-ops.
func (p *Processor) onCanceled(ctx context.Context, e Event) error {
	var (
		canceled []domain.OrderLine
		dropped  bool
	)
	err := p.retry.Do(ctx, "cancel order", func(ctx context.Context) error {
		canceled, dropped = nil, false
		return p.repo.WithTx(ctx, func(tx fulfillmenttx.Repository) error {
			lines, err := tx.CancelOrder(ctx, e.OrderID)
			if err != nil || len(lines) == 0 {
				return err
			}
			canceled = lines
			if _, _, err := tx.Release(ctx, lines[0].SlotID, lines[0].Date); err != nil {
				return err
			}
			dropped, err = dropEarlyUnits(ctx, tx, e.OrderID)
			return err
		})
	})
	if err != nil {
		return err
	}
	if len(canceled) == 0 {
		return nil
	}
	if !dropped {
		p.logger.Warn("canceled order is already moving",
			logx.String("order_id", e.OrderID),
			logx.Int64("slot_id", canceled[0].SlotID),
		)
	}
	p.logger.Info("order canceled",
		logx.String("event", "order_canceled"),
		logx.String("order_id", e.OrderID),
		logx.Int64("slot_id", canceled[0].SlotID),
		logx.Date("date", canceled[0].Date),
	)
	return nil
}

// dropEarlyUnits deletes the order's units unless a vendor share has been
// picked up or the delivery left pending. It reports whether the order is
// now free of units.
func dropEarlyUnits(ctx context.Context, tx fulfillmenttx.Repository, orderID string) (bool, error) {
	du, err := tx.GetDeliveryUnit(ctx, orderID)
	if err != nil || du == nil {
		return du == nil, err
	}
	if du.Status != domain.DeliveryPending {
		return false, nil
	}
	pickups, err := tx.ListPickupUnits(ctx, fulfillmenttx.UnitFilter{OrderID: orderID})
	if err != nil {
		return false, err
	}
	for _, pu := range pickups {
		if pu.Status == domain.PickupPickedUp {
			return false, nil
		}
	}
	if _, err := tx.DeleteOrderUnits(ctx, orderID); err != nil {
		return false, err
	}
	list, err := tx.ListAssignments(ctx, fulfillmenttx.AssignmentFilter{Date: du.Date, SlotID: du.SlotID, CourierID: du.CourierID})
	if err != nil {
		return false, err
	}
	for i := range list {
		a := &list[i]
		if a.CurrentOrders == 0 {
			continue
		}
		a.CurrentOrders--
		if err := tx.UpdateAssignment(ctx, a); err != nil {
			return false, err
		}
	}
	return true, nil
}
