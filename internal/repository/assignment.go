package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/ports/fulfillmenttx"
)

const assignmentColumns = `id, courier_id, sector_id, slot_id, delivery_date, status,
        max_orders, current_orders, assigned_at, activated_at, completed_at`

func scanAssignment(row interface{ Scan(...any) error }) (domain.Assignment, error) {
	var a domain.Assignment
	err := row.Scan(&a.ID, &a.CourierID, &a.SectorID, &a.SlotID, &a.Date, &a.Status,
		&a.MaxOrders, &a.CurrentOrders, &a.AssignedAt, &a.ActivatedAt, &a.CompletedAt)
	return a, err
}

// InsertAssignmentIfAbsent creates a unless its key already exists, in which
// case the stored row is loaded into a.
func (s *Store) InsertAssignmentIfAbsent(ctx context.Context, a *domain.Assignment) (bool, error) {
	row := s.db.QueryRow(ctx, `
        INSERT INTO assignments (courier_id, sector_id, slot_id, delivery_date, status, max_orders, current_orders, assigned_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (courier_id, sector_id, slot_id, delivery_date) DO NOTHING
        RETURNING `+assignmentColumns,
		a.CourierID, a.SectorID, a.SlotID, a.Date, a.Status, a.MaxOrders, a.CurrentOrders, a.AssignedAt)
	created, err := scanAssignment(row)
	if err == nil {
		*a = created
		return true, nil
	}
	if !IsNotFound(err) {
		return false, wrap("insert assignment", err)
	}

	existing, err := scanAssignment(s.db.QueryRow(ctx, `
        SELECT `+assignmentColumns+` FROM assignments
        WHERE courier_id = $1 AND sector_id = $2 AND slot_id = $3 AND delivery_date = $4
    `, a.CourierID, a.SectorID, a.SlotID, a.Date))
	if err != nil {
		return false, wrap("load existing assignment", err)
	}
	*a = existing
	return false, nil
}

// ListAssignments returns assignments matching f ordered by slot and id.
func (s *Store) ListAssignments(ctx context.Context, f fulfillmenttx.AssignmentFilter) ([]domain.Assignment, error) {
	var (
		conds []string
		args  []any
	)
	if !f.Date.IsZero() {
		args = append(args, f.Date)
		conds = append(conds, fmt.Sprintf("delivery_date = $%d", len(args)))
	}
	if f.SlotID != 0 {
		args = append(args, f.SlotID)
		conds = append(conds, fmt.Sprintf("slot_id = $%d", len(args)))
	}
	if f.CourierID != 0 {
		args = append(args, f.CourierID)
		conds = append(conds, fmt.Sprintf("courier_id = $%d", len(args)))
	}
	q := `SELECT ` + assignmentColumns + ` FROM assignments` + where(conds) +
		` ORDER BY delivery_date, slot_id, id` + s.lockClause()

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, wrap("list assignments", err)
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, wrap("scan assignment", err)
		}
		out = append(out, a)
	}
	return out, wrap("list assignments", rows.Err())
}

// UpdateAssignment stores status, counters and timestamps of a.
func (s *Store) UpdateAssignment(ctx context.Context, a *domain.Assignment) error {
	_, err := s.db.Exec(ctx, `
        UPDATE assignments
        SET status = $2, max_orders = $3, current_orders = $4, activated_at = $5, completed_at = $6
        WHERE id = $1
    `, a.ID, a.Status, a.MaxOrders, a.CurrentOrders, a.ActivatedAt, a.CompletedAt)
	return wrap(fmt.Sprintf("update assignment %d", a.ID), err)
}

// DeleteAssignmentsByDate removes every assignment of date.
func (s *Store) DeleteAssignmentsByDate(ctx context.Context, date time.Time) (int, error) {
	ct, err := s.db.Exec(ctx, `DELETE FROM assignments WHERE delivery_date = $1`, date)
	if err != nil {
		return 0, wrap("delete assignments", err)
	}
	return int(ct.RowsAffected()), nil
}

func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}
