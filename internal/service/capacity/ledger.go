package capacity

import (
	"context"
	"fmt"
	"math"
	"time"

	"service-fulfillment/internal/apperr"
	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/logx"
	"service-fulfillment/internal/ports/fulfillmenttx"
	"service-fulfillment/internal/storeretry"
)

// Utilization thresholds reported to operators; not enforced here.
const (
	NearCapacityThreshold = 0.90
	AutoPauseThreshold    = 0.95
)

// Ledger is the authoritative count of committed orders per slot and date.
type Ledger struct {
	store      ledgerStore
	retry      *storeretry.Retrier
	logger     logx.Logger
	admissions labeledCounter
}

// NewLedger creates a Ledger. admissions may be nil.
func NewLedger(store ledgerStore, retry *storeretry.Retrier, logger logx.Logger, admissions labeledCounter) *Ledger {
	if logger == nil {
		logger = logx.Nop()
	}
	if retry == nil {
		retry = storeretry.New(storeretry.Config{}, logger, nil)
	}
	return &Ledger{store: store, retry: retry, logger: logger, admissions: admissions}
}

// Admission is the counter state after a successful admit or release.
type Admission struct {
	SlotID    int64
	Date      time.Time
	Committed int
	MaxOrders int
}

// Utilization describes how full a slot is on a date.
type Utilization struct {
	SlotID            int64
	Date              time.Time
	Committed         int
	MaxOrders         int
	Utilization       float64
	NearCapacity      bool
	AutoPauseEligible bool
}

func (l *Ledger) openSlot(ctx context.Context, slotID int64) (*domain.Slot, error) {
	slot, err := storeretry.Value(ctx, l.retry, "get slot", func(ctx context.Context) (*domain.Slot, error) {
		return l.store.GetSlot(ctx, slotID)
	})
	if err != nil {
		return nil, err
	}
	if slot == nil || slot.DeletedAt != nil {
		return nil, fmt.Errorf("slot %d: %w", slotID, apperr.ErrNotFound)
	}
	return slot, nil
}

func (l *Ledger) count(result string) {
	if l.admissions != nil {
		l.admissions.WithLabelValues(result).Inc()
	}
}

// Admit commits one order to the slot on date. The check against max_orders
// and the increment happen in one atomic store operation.
func (l *Ledger) Admit(ctx context.Context, slotID int64, date time.Time) (Admission, error) {
	date = domain.NormalizeDate(date)
	slot, err := l.openSlot(ctx, slotID)
	if err != nil {
		return Admission{}, err
	}
	if !slot.RunsOn(date) {
		return Admission{}, apperr.NewConflict("slot does not accept orders on this date").
			With("slot_id", slotID).
			With("date", domain.FormatDate(date)).
			With("active", slot.Active)
	}

	type outcome struct {
		committed int
		admitted  bool
	}
	res, err := storeretry.Value(ctx, l.retry, "admit", func(ctx context.Context) (outcome, error) {
		committed, admitted, err := l.store.TryAdmit(ctx, slotID, date)
		return outcome{committed: committed, admitted: admitted}, err
	})
	if err != nil {
		return Admission{}, err
	}
	if !res.admitted {
		l.count("rejected")
		l.logger.Info("slot admission rejected",
			logx.String("event", "admission_rejected"),
			logx.Int64("slot_id", slotID),
			logx.Date("date", date),
			logx.Int("committed", res.committed),
			logx.Int("max_orders", slot.MaxOrders),
		)
		return Admission{}, &apperr.CapacityExceededError{
			SlotID:    slotID,
			Date:      date,
			Committed: res.committed,
			MaxOrders: slot.MaxOrders,
		}
	}
	l.count("admitted")
	return Admission{SlotID: slotID, Date: date, Committed: res.committed, MaxOrders: slot.MaxOrders}, nil
}

// Release gives one committed order back. Releasing an empty counter is a no-op.
func (l *Ledger) Release(ctx context.Context, slotID int64, date time.Time) (Admission, error) {
	date = domain.NormalizeDate(date)
	slot, err := storeretry.Value(ctx, l.retry, "get slot", func(ctx context.Context) (*domain.Slot, error) {
		return l.store.GetSlot(ctx, slotID)
	})
	if err != nil {
		return Admission{}, err
	}
	if slot == nil {
		return Admission{}, fmt.Errorf("slot %d: %w", slotID, apperr.ErrNotFound)
	}
	committed, err := storeretry.Value(ctx, l.retry, "release", func(ctx context.Context) (int, error) {
		committed, _, err := l.store.Release(ctx, slotID, date)
		return committed, err
	})
	if err != nil {
		return Admission{}, err
	}
	return Admission{SlotID: slotID, Date: date, Committed: committed, MaxOrders: slot.MaxOrders}, nil
}

// Utilization reports committed/max for the slot on date.
func (l *Ledger) Utilization(ctx context.Context, slotID int64, date time.Time) (Utilization, error) {
	date = domain.NormalizeDate(date)
	slot, err := l.openSlot(ctx, slotID)
	if err != nil {
		return Utilization{}, err
	}
	committed, err := storeretry.Value(ctx, l.retry, "committed", func(ctx context.Context) (int, error) {
		return l.store.Committed(ctx, slotID, date)
	})
	if err != nil {
		return Utilization{}, err
	}
	return NewUtilization(slotID, date, committed, slot.MaxOrders), nil
}

// NewUtilization derives utilization and threshold flags from raw counts.
func NewUtilization(slotID int64, date time.Time, committed, maxOrders int) Utilization {
	u := Utilization{SlotID: slotID, Date: date, Committed: committed, MaxOrders: maxOrders}
	if maxOrders > 0 {
		u.Utilization = math.Min(1, float64(committed)/float64(maxOrders))
	}
	u.NearCapacity = u.Utilization > NearCapacityThreshold
	u.AutoPauseEligible = u.Utilization > AutoPauseThreshold
	return u
}

// ChangeCapacity sets max_orders of a slot at runtime. Raising is bounded by
// 1.5 times the slot's defined max_orders and by MaxSlotOrders; lowering may
// not go below the highest count committed on asOf or later.
func (l *Ledger) ChangeCapacity(ctx context.Context, slotID int64, newMax int, asOf time.Time) (*domain.Slot, error) {
	if newMax < domain.MinSlotOrders {
		return nil, apperr.NewValidationError([]string{fmt.Sprintf("max_orders must be at least %d", domain.MinSlotOrders)})
	}
	asOf = domain.NormalizeDate(asOf)

	var (
		updated  domain.Slot
		previous int
	)
	err := l.retry.Do(ctx, "change capacity", func(ctx context.Context) error {
		return l.store.WithTx(ctx, func(tx fulfillmenttx.Repository) error {
			slot, err := tx.GetSlot(ctx, slotID)
			if err != nil {
				return err
			}
			if slot == nil || slot.DeletedAt != nil {
				return fmt.Errorf("slot %d: %w", slotID, apperr.ErrNotFound)
			}
			if ceiling := slot.CapacityCeiling(); newMax > ceiling {
				return apperr.NewConflict("max_orders above the allowed ceiling").
					With("slot_id", slotID).
					With("requested", newMax).
					With("ceiling", ceiling)
			}
			if newMax < slot.MaxOrders {
				committed, err := tx.MaxCommittedFrom(ctx, slotID, asOf)
				if err != nil {
					return err
				}
				if newMax < committed {
					return apperr.NewConflict("max_orders below committed orders").
						With("slot_id", slotID).
						With("requested", newMax).
						With("committed", committed)
				}
			}
			previous = slot.MaxOrders
			slot.MaxOrders = newMax
			if err := tx.UpdateSlot(ctx, slot); err != nil {
				return err
			}
			updated = *slot
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("slot capacity changed",
		logx.String("event", "capacity_changed"),
		logx.Int64("slot_id", slotID),
		logx.Int("from", previous),
		logx.Int("to", newMax),
	)
	return &updated, nil
}
