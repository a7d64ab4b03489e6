package dashboard

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

// Projector reads the stored state of a date and projects it. It never writes.
type Projector struct {
	store  boardStore
	retry  *storeretry.Retrier
	logger logx.Logger
	loc    *time.Location
}

// NewProjector creates a Projector. Slot times are interpreted in loc.
func NewProjector(store boardStore, retry *storeretry.Retrier, logger logx.Logger, loc *time.Location) *Projector {
	if logger == nil {
		logger = logx.Nop()
	}
	if retry == nil {
		retry = storeretry.New(storeretry.Config{}, logger, nil)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Projector{store: store, retry: retry, logger: logger, loc: loc}
}

// Board returns the views of every slot of date, optionally limited to a
// sector. Slots that do not run on date are listed only when they still
// carry units or assignments for it.
func (p *Projector) Board(ctx context.Context, date, now time.Time, sectorID int64) ([]SlotView, error) {
	if date.IsZero() {
		return nil, apperr.NewValidationError([]string{"date is required"})
	}
	date = domain.NormalizeDate(date)

	data, err := storeretry.Value(ctx, p.retry, "dashboard board", func(ctx context.Context) ([]SlotData, error) {
		if sectorID > 0 {
			sec, err := p.store.GetSector(ctx, sectorID)
			if err != nil {
				return nil, err
			}
			if sec == nil {
				return nil, fmt.Errorf("sector %d: %w", sectorID, apperr.ErrNotFound)
			}
		}
		slots, err := p.store.ListSlots(ctx, fulfillmenttx.SlotFilter{SectorID: sectorID})
		if err != nil {
			return nil, err
		}
		var data []SlotData
		for _, s := range slots {
			d, err := load(ctx, p.store, s, date)
			if err != nil {
				return nil, err
			}
			if s.RunsOn(date) || len(d.Deliveries) > 0 || len(d.Assignments) > 0 {
				data = append(data, d)
			}
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	views := Project(date, now, p.loc, data)
	p.logger.Debug("dashboard projected",
		logx.Date("date", date),
		logx.Int64("sector_id", sectorID),
		logx.Int("slots", len(views)),
	)
	return views, nil
}

func load(ctx context.Context, tx boardStore, s domain.Slot, date time.Time) (SlotData, error) {
	d := SlotData{Slot: s}
	var err error
	if d.Committed, err = tx.Committed(ctx, s.ID, date); err != nil {
		return d, err
	}
	if d.Assignments, err = tx.ListAssignments(ctx, fulfillmenttx.AssignmentFilter{Date: date, SlotID: s.ID}); err != nil {
		return d, err
	}
	filter := fulfillmenttx.UnitFilter{Date: date, SlotID: s.ID}
	if d.Pickups, err = tx.ListPickupUnits(ctx, filter); err != nil {
		return d, err
	}
	d.Deliveries, err = tx.ListDeliveryUnits(ctx, filter)
	return d, err
}
