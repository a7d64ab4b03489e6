package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"service-fulfillment/internal/domain"
)

const orderLineColumns = `order_id, vendor_id, slot_id, sector_id, delivery_date, items, canceled, updated_at`

func scanOrderLine(row interface{ Scan(...any) error }) (domain.OrderLine, error) {
	var l domain.OrderLine
	err := row.Scan(&l.OrderID, &l.VendorID, &l.SlotID, &l.SectorID, &l.Date, &l.Items, &l.Canceled, &l.UpdatedAt)
	return l, err
}

// UpsertOrderLines stores the vendor lines of orders, replacing items of lines
// that already exist. Canceled lines stay canceled.
func (s *Store) UpsertOrderLines(ctx context.Context, lines []domain.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, l := range lines {
		items := l.Items
		if items == nil {
			items = []domain.Item{}
		}
		batch.Queue(`
            INSERT INTO order_lines (order_id, vendor_id, slot_id, sector_id, delivery_date, items)
            VALUES ($1, $2, $3, $4, $5, $6)
            ON CONFLICT (order_id, vendor_id) DO UPDATE
                SET items = EXCLUDED.items, updated_at = now()
                WHERE NOT order_lines.canceled
        `, l.OrderID, l.VendorID, l.SlotID, l.SectorID, l.Date, items)
	}
	br := s.db.SendBatch(ctx, batch)
	for range lines {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return wrap("upsert order lines", err)
		}
	}
	return wrap("upsert order lines", br.Close())
}

// CancelOrder marks every line of orderID canceled and returns the lines that were open.
func (s *Store) CancelOrder(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	rows, err := s.db.Query(ctx, `
        UPDATE order_lines SET canceled = TRUE, updated_at = now()
        WHERE order_id = $1 AND NOT canceled
        RETURNING `+orderLineColumns, orderID)
	if err != nil {
		return nil, wrap(fmt.Sprintf("cancel order %s", orderID), err)
	}
	defer rows.Close()

	var out []domain.OrderLine
	for rows.Next() {
		l, err := scanOrderLine(rows)
		if err != nil {
			return nil, wrap("scan order line", err)
		}
		out = append(out, l)
	}
	return out, wrap(fmt.Sprintf("cancel order %s", orderID), rows.Err())
}

// ListOpenOrderLines returns the non-canceled lines for date.
func (s *Store) ListOpenOrderLines(ctx context.Context, date time.Time) ([]domain.OrderLine, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+orderLineColumns+` FROM order_lines
        WHERE delivery_date = $1 AND NOT canceled
        ORDER BY slot_id, order_id, vendor_id
    `, date)
	if err != nil {
		return nil, wrap("list open order lines", err)
	}
	defer rows.Close()

	var out []domain.OrderLine
	for rows.Next() {
		l, err := scanOrderLine(rows)
		if err != nil {
			return nil, wrap("scan order line", err)
		}
		out = append(out, l)
	}
	return out, wrap("list open order lines", rows.Err())
}
