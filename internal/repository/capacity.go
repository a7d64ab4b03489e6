package repository

import (
	"context"
	"fmt"
	"time"
)

// TryAdmit increments the committed counter of (slotID, date) in a single
// statement that refuses to pass the slot's current max_orders.
// A missing slot is reported as not admitted with zero committed.
func (s *Store) TryAdmit(ctx context.Context, slotID int64, date time.Time) (int, bool, error) {
	var committed int
	err := s.db.QueryRow(ctx, `
        WITH s AS (
            SELECT max_orders FROM slots WHERE id = $1 AND deleted_at IS NULL
        )
        INSERT INTO slot_capacity (slot_id, delivery_date, committed)
        SELECT $1, $2, 1 FROM s
        ON CONFLICT (slot_id, delivery_date) DO UPDATE
            SET committed = slot_capacity.committed + 1, updated_at = now()
            WHERE slot_capacity.committed < (SELECT max_orders FROM s)
        RETURNING committed
    `, slotID, date).Scan(&committed)
	if err != nil {
		if IsNotFound(err) {
			current, cerr := s.Committed(ctx, slotID, date)
			return current, false, cerr
		}
		return 0, false, wrap(fmt.Sprintf("admit slot %d", slotID), err)
	}
	return committed, true, nil
}

// Release decrements the committed counter if it is positive.
func (s *Store) Release(ctx context.Context, slotID int64, date time.Time) (int, bool, error) {
	var committed int
	err := s.db.QueryRow(ctx, `
        UPDATE slot_capacity
        SET committed = committed - 1, updated_at = now()
        WHERE slot_id = $1 AND delivery_date = $2 AND committed > 0
        RETURNING committed
    `, slotID, date).Scan(&committed)
	if err != nil {
		if IsNotFound(err) {
			return 0, false, nil
		}
		return 0, false, wrap(fmt.Sprintf("release slot %d", slotID), err)
	}
	return committed, true, nil
}

// Committed returns the counter of (slotID, date); missing rows count as zero.
func (s *Store) Committed(ctx context.Context, slotID int64, date time.Time) (int, error) {
	var committed int
	err := s.db.QueryRow(ctx, `
        SELECT COALESCE(MAX(committed), 0) FROM slot_capacity
        WHERE slot_id = $1 AND delivery_date = $2
    `, slotID, date).Scan(&committed)
	if err != nil {
		return 0, wrap(fmt.Sprintf("committed slot %d", slotID), err)
	}
	return committed, nil
}

// MaxCommittedFrom returns the highest counter of slotID on or after from.
func (s *Store) MaxCommittedFrom(ctx context.Context, slotID int64, from time.Time) (int, error) {
	var committed int
	err := s.db.QueryRow(ctx, `
        SELECT COALESCE(MAX(committed), 0) FROM slot_capacity
        WHERE slot_id = $1 AND delivery_date >= $2
    `, slotID, from).Scan(&committed)
	if err != nil {
		return 0, wrap(fmt.Sprintf("max committed slot %d", slotID), err)
	}
	return committed, nil
}
