package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/ports/fulfillmenttx"
)

const slotColumns = `id, sector_id, name, start_time, end_time, cutoff_time, pickup_delay_minutes,
        max_orders, base_max_orders, active, days, created_at, updated_at, deleted_at`

func toPgTime(t domain.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t.Duration() / time.Microsecond), Valid: true}
}

func fromPgTime(t pgtype.Time) domain.TimeOfDay {
	return domain.TimeOfDay(time.Duration(t.Microseconds) * time.Microsecond / time.Minute)
}

func scanSlot(row interface{ Scan(...any) error }) (domain.Slot, error) {
	var (
		s                  domain.Slot
		start, end, cutoff pgtype.Time
		days               int16
	)
	err := row.Scan(&s.ID, &s.SectorID, &s.Name, &start, &end, &cutoff, &s.PickupDelayMinutes,
		&s.MaxOrders, &s.BaseMaxOrders, &s.Active, &days, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt)
	if err != nil {
		return s, err
	}
	s.StartTime, s.EndTime, s.CutoffTime = fromPgTime(start), fromPgTime(end), fromPgTime(cutoff)
	s.Days = domain.Weekdays(days)
	return s, nil
}

// GetSlot returns a slot by id, including soft-deleted ones, or nil if it does not exist.
func (s *Store) GetSlot(ctx context.Context, id int64) (*domain.Slot, error) {
	slot, err := scanSlot(s.db.QueryRow(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = $1`+s.lockClause(), id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, wrap(fmt.Sprintf("get slot %d", id), err)
	}
	return &slot, nil
}

// ListSlots returns live (not deleted) slots ordered by sector, start time and id.
func (s *Store) ListSlots(ctx context.Context, f fulfillmenttx.SlotFilter) ([]domain.Slot, error) {
	conds := []string{"deleted_at IS NULL"}
	args := make([]any, 0, 1)
	if f.SectorID != 0 {
		args = append(args, f.SectorID)
		conds = append(conds, fmt.Sprintf("sector_id = $%d", len(args)))
	}
	if f.ActiveOnly {
		conds = append(conds, "active")
	}
	q := `SELECT ` + slotColumns + ` FROM slots WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY sector_id, start_time, id`

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, wrap("list slots", err)
	}
	defer rows.Close()

	var out []domain.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, wrap("scan slot", err)
		}
		out = append(out, slot)
	}
	return out, wrap("list slots", rows.Err())
}

// InsertSlot creates a slot and fills its id and timestamps.
func (s *Store) InsertSlot(ctx context.Context, slot *domain.Slot) error {
	err := s.db.QueryRow(ctx, `
        INSERT INTO slots (sector_id, name, start_time, end_time, cutoff_time, pickup_delay_minutes,
                           max_orders, base_max_orders, active, days)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, created_at, updated_at
    `, slot.SectorID, slot.Name, toPgTime(slot.StartTime), toPgTime(slot.EndTime), toPgTime(slot.CutoffTime),
		slot.PickupDelayMinutes, slot.MaxOrders, slot.BaseMaxOrders, slot.Active, int16(slot.Days),
	).Scan(&slot.ID, &slot.CreatedAt, &slot.UpdatedAt)
	return wrap("insert slot", err)
}

// UpdateSlot overwrites every mutable column of a live slot.
func (s *Store) UpdateSlot(ctx context.Context, slot *domain.Slot) error {
	err := s.db.QueryRow(ctx, `
        UPDATE slots
        SET
            sector_id            = $2,
            name                 = $3,
            start_time           = $4,
            end_time             = $5,
            cutoff_time          = $6,
            pickup_delay_minutes = $7,
            max_orders           = $8,
            base_max_orders      = $9,
            active               = $10,
            days                 = $11,
            updated_at           = now()
        WHERE id = $1 AND deleted_at IS NULL
        RETURNING updated_at
    `, slot.ID, slot.SectorID, slot.Name, toPgTime(slot.StartTime), toPgTime(slot.EndTime), toPgTime(slot.CutoffTime),
		slot.PickupDelayMinutes, slot.MaxOrders, slot.BaseMaxOrders, slot.Active, int16(slot.Days),
	).Scan(&slot.UpdatedAt)
	return wrap(fmt.Sprintf("update slot %d", slot.ID), err)
}

// SoftDeleteSlot marks a slot deleted and inactive.
func (s *Store) SoftDeleteSlot(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.Exec(ctx, `
        UPDATE slots SET deleted_at = $2, active = FALSE, updated_at = now()
        WHERE id = $1 AND deleted_at IS NULL
    `, id, at)
	return wrap(fmt.Sprintf("delete slot %d", id), err)
}

// SlotReferences counts unfinished assignments and unresolved orders of a slot on or after from.
func (s *Store) SlotReferences(ctx context.Context, slotID int64, from time.Time) (fulfillmenttx.SlotReferences, error) {
	var refs fulfillmenttx.SlotReferences
	err := s.db.QueryRow(ctx, `
        SELECT
            (SELECT count(*) FROM assignments
              WHERE slot_id = $1 AND delivery_date >= $2 AND status <> $3),
            (SELECT count(DISTINCT ol.order_id) FROM order_lines ol
              WHERE ol.slot_id = $1 AND ol.delivery_date >= $2 AND NOT ol.canceled
                AND NOT EXISTS (
                    SELECT 1 FROM delivery_units du
                     WHERE du.order_id = ol.order_id AND du.status IN ($4, $5)))
    `, slotID, from, string(domain.AssignmentCompleted),
		string(domain.DeliveryDelivered), string(domain.DeliveryReturned),
	).Scan(&refs.ActiveAssignments, &refs.UnresolvedOrders)
	if err != nil {
		return refs, wrap(fmt.Sprintf("slot %d references", slotID), err)
	}
	return refs, nil
}
