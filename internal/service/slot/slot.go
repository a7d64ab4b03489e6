package slot

import (
	"context"
	"fmt"
	"time"

	"service-fulfillment/internal/apperr"
	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/logx"
	"service-fulfillment/internal/ports/fulfillmenttx"
	"service-fulfillment/internal/storeretry"
)

// Service manages slot definitions.
type Service struct {
	store  slotStore
	retry  *storeretry.Retrier
	logger logx.Logger
	now    Clock
}

// NewService creates a slot Service.
func NewService(store slotStore, retry *storeretry.Retrier, logger logx.Logger) *Service {
	if logger == nil {
		logger = logx.Nop()
	}
	if retry == nil {
		retry = storeretry.New(storeretry.Config{}, logger, nil)
	}
	return &Service{
		store:  store,
		retry:  retry,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for audit timestamps.
func (s *Service) WithClock(now Clock) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

func checkSector(ctx context.Context, tx fulfillmenttx.Repository, sectorID int64) error {
	sec, err := tx.GetSector(ctx, sectorID)
	if err != nil {
		return err
	}
	if sec == nil {
		return apperr.NewValidationError([]string{fmt.Sprintf("sector_id %d does not exist", sectorID)})
	}
	return nil
}

func liveSlot(ctx context.Context, tx fulfillmenttx.Repository, id int64) (*domain.Slot, error) {
	cur, err := tx.GetSlot(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur == nil || cur.DeletedAt != nil {
		return nil, fmt.Errorf("slot %d: %w", id, apperr.ErrNotFound)
	}
	return cur, nil
}

// Create validates spec and stores a new slot. Every violated constraint is
// reported in a single apperr.ValidationError and nothing is written.
func (s *Service) Create(ctx context.Context, spec domain.SlotSpec) (*domain.Slot, error) {
	slot, violations := spec.Build()
	if err := apperr.NewValidationError(violations); err != nil {
		return nil, err
	}

	err := s.retry.Do(ctx, "create slot", func(ctx context.Context) error {
		return s.store.WithTx(ctx, func(tx fulfillmenttx.Repository) error {
			if err := checkSector(ctx, tx, slot.SectorID); err != nil {
				return err
			}
			return tx.InsertSlot(ctx, &slot)
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("slot created",
		logx.String("event", "slot_created"),
		logx.Int64("slot_id", slot.ID),
		logx.Int64("sector_id", slot.SectorID),
		logx.Int("max_orders", slot.MaxOrders),
	)
	return &slot, nil
}

// Update redefines a slot. The new max_orders becomes the base for later
// capacity changes and may not drop below orders already committed on asOf
// or later.
func (s *Service) Update(ctx context.Context, id int64, spec domain.SlotSpec, asOf time.Time) (*domain.Slot, error) {
	slot, violations := spec.Build()
	if err := apperr.NewValidationError(violations); err != nil {
		return nil, err
	}
	asOf = domain.NormalizeDate(asOf)

	err := s.retry.Do(ctx, "update slot", func(ctx context.Context) error {
		return s.store.WithTx(ctx, func(tx fulfillmenttx.Repository) error {
			cur, err := liveSlot(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := checkSector(ctx, tx, slot.SectorID); err != nil {
				return err
			}
			committed, err := tx.MaxCommittedFrom(ctx, id, asOf)
			if err != nil {
				return err
			}
			if slot.MaxOrders < committed {
				return apperr.NewConflict("max_orders below committed orders").
					With("slot_id", id).
					With("committed", committed).
					With("max_orders", slot.MaxOrders)
			}
			slot.ID = cur.ID
			slot.CreatedAt = cur.CreatedAt
			if spec.Active == nil {
				slot.Active = cur.Active
			}
			return tx.UpdateSlot(ctx, &slot)
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("slot updated",
		logx.String("event", "slot_updated"),
		logx.Int64("slot_id", id),
		logx.Int("max_orders", slot.MaxOrders),
	)
	return &slot, nil
}

// Delete soft-deletes a slot that has no unfinished assignments and no
// unresolved orders on asOf or later.
func (s *Service) Delete(ctx context.Context, id int64, asOf time.Time) error {
	asOf = domain.NormalizeDate(asOf)
	err := s.retry.Do(ctx, "delete slot", func(ctx context.Context) error {
		return s.store.WithTx(ctx, func(tx fulfillmenttx.Repository) error {
			if _, err := liveSlot(ctx, tx, id); err != nil {
				return err
			}
			refs, err := tx.SlotReferences(ctx, id, asOf)
			if err != nil {
				return err
			}
			if refs.ActiveAssignments > 0 || refs.UnresolvedOrders > 0 {
				return apperr.NewConflict("slot is referenced by active assignments or unresolved orders").
					With("slot_id", id).
					With("active_assignments", refs.ActiveAssignments).
					With("unresolved_orders", refs.UnresolvedOrders)
			}
			return tx.SoftDeleteSlot(ctx, id, s.now())
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("slot deleted", logx.String("event", "slot_deleted"), logx.Int64("slot_id", id))
	return nil
}

// Get returns a slot, deleted or not, or apperr.ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Slot, error) {
	slot, err := storeretry.Value(ctx, s.retry, "get slot", func(ctx context.Context) (*domain.Slot, error) {
		return s.store.GetSlot(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, fmt.Errorf("slot %d: %w", id, apperr.ErrNotFound)
	}
	return slot, nil
}

// List returns live slots, optionally of one sector.
func (s *Service) List(ctx context.Context, sectorID int64, activeOnly bool) ([]domain.Slot, error) {
	return storeretry.Value(ctx, s.retry, "list slots", func(ctx context.Context) ([]domain.Slot, error) {
		return s.store.ListSlots(ctx, fulfillmenttx.SlotFilter{SectorID: sectorID, ActiveOnly: activeOnly})
	})
}
