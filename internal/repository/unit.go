package repository

import (
	"context"
	"fmt"
	"time"

	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/ports/fulfillmenttx"
)

const (
	pickupColumns = `order_id, vendor_id, slot_id, sector_id, delivery_date, courier_id, items,
        status, created_at, en_route_at, picked_up_at`
	deliveryColumns = `order_id, slot_id, sector_id, delivery_date, courier_id, status, failure_reason,
        created_at, out_for_delivery_at, delivered_at, failed_at, returned_at`
)

func scanPickup(row interface{ Scan(...any) error }) (domain.PickupUnit, error) {
	var u domain.PickupUnit
	err := row.Scan(&u.OrderID, &u.VendorID, &u.SlotID, &u.SectorID, &u.Date, &u.CourierID, &u.Items,
		&u.Status, &u.CreatedAt, &u.EnRouteAt, &u.PickedUpAt)
	return u, err
}

func scanDelivery(row interface{ Scan(...any) error }) (domain.DeliveryUnit, error) {
	var u domain.DeliveryUnit
	err := row.Scan(&u.OrderID, &u.SlotID, &u.SectorID, &u.Date, &u.CourierID, &u.Status, &u.FailureReason,
		&u.CreatedAt, &u.OutForDeliveryAt, &u.DeliveredAt, &u.FailedAt, &u.ReturnedAt)
	return u, err
}

// InsertPickupUnitIfAbsent stores u unless (order, vendor) already exists.
func (s *Store) InsertPickupUnitIfAbsent(ctx context.Context, u *domain.PickupUnit) (bool, error) {
	items := u.Items
	if items == nil {
		items = []domain.Item{}
	}
	ct, err := s.db.Exec(ctx, `
        INSERT INTO pickup_units (order_id, vendor_id, slot_id, sector_id, delivery_date, courier_id, items, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (order_id, vendor_id) DO NOTHING
    `, u.OrderID, u.VendorID, u.SlotID, u.SectorID, u.Date, u.CourierID, items, u.Status, u.CreatedAt)
	if err != nil {
		return false, wrap(fmt.Sprintf("insert pickup unit %s/%s", u.OrderID, u.VendorID), err)
	}
	return ct.RowsAffected() > 0, nil
}

// InsertDeliveryUnitIfAbsent stores u unless the order already has a delivery unit.
func (s *Store) InsertDeliveryUnitIfAbsent(ctx context.Context, u *domain.DeliveryUnit) (bool, error) {
	ct, err := s.db.Exec(ctx, `
        INSERT INTO delivery_units (order_id, slot_id, sector_id, delivery_date, courier_id, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (order_id) DO NOTHING
    `, u.OrderID, u.SlotID, u.SectorID, u.Date, u.CourierID, u.Status, u.CreatedAt)
	if err != nil {
		return false, wrap(fmt.Sprintf("insert delivery unit %s", u.OrderID), err)
	}
	return ct.RowsAffected() > 0, nil
}

// GetDeliveryUnit returns the delivery unit of an order, or nil if it does not exist.
func (s *Store) GetDeliveryUnit(ctx context.Context, orderID string) (*domain.DeliveryUnit, error) {
	u, err := scanDelivery(s.db.QueryRow(ctx,
		`SELECT `+deliveryColumns+` FROM delivery_units WHERE order_id = $1`+s.lockClause(), orderID))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, wrap(fmt.Sprintf("get delivery unit %s", orderID), err)
	}
	return &u, nil
}

func unitConds(f fulfillmenttx.UnitFilter, withVendor bool) ([]string, []any) {
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
	if withVendor && f.VendorID != "" {
		args = append(args, f.VendorID)
		conds = append(conds, fmt.Sprintf("vendor_id = $%d", len(args)))
	}
	if f.OrderID != "" {
		args = append(args, f.OrderID)
		conds = append(conds, fmt.Sprintf("order_id = $%d", len(args)))
	}
	if f.CourierID != 0 {
		args = append(args, f.CourierID)
		conds = append(conds, fmt.Sprintf("courier_id = $%d", len(args)))
	}
	return conds, args
}

// ListPickupUnits returns pickup units matching f ordered by order and vendor.
func (s *Store) ListPickupUnits(ctx context.Context, f fulfillmenttx.UnitFilter) ([]domain.PickupUnit, error) {
	conds, args := unitConds(f, true)
	rows, err := s.db.Query(ctx, `SELECT `+pickupColumns+` FROM pickup_units`+where(conds)+
		` ORDER BY order_id, vendor_id`+s.lockClause(), args...)
	if err != nil {
		return nil, wrap("list pickup units", err)
	}
	defer rows.Close()

	var out []domain.PickupUnit
	for rows.Next() {
		u, err := scanPickup(rows)
		if err != nil {
			return nil, wrap("scan pickup unit", err)
		}
		out = append(out, u)
	}
	return out, wrap("list pickup units", rows.Err())
}

// ListDeliveryUnits returns delivery units matching f ordered by order.
// A vendor filter selects the orders that vendor contributes to.
func (s *Store) ListDeliveryUnits(ctx context.Context, f fulfillmenttx.UnitFilter) ([]domain.DeliveryUnit, error) {
	conds, args := unitConds(f, false)
	if f.VendorID != "" {
		args = append(args, f.VendorID)
		conds = append(conds, fmt.Sprintf(
			"order_id IN (SELECT p.order_id FROM pickup_units p WHERE p.vendor_id = $%d)", len(args)))
	}
	rows, err := s.db.Query(ctx, `SELECT `+deliveryColumns+` FROM delivery_units`+where(conds)+
		` ORDER BY order_id`+s.lockClause(), args...)
	if err != nil {
		return nil, wrap("list delivery units", err)
	}
	defer rows.Close()

	var out []domain.DeliveryUnit
	for rows.Next() {
		u, err := scanDelivery(rows)
		if err != nil {
			return nil, wrap("scan delivery unit", err)
		}
		out = append(out, u)
	}
	return out, wrap("list delivery units", rows.Err())
}

// UpdatePickupUnit stores status and timestamps of u.
func (s *Store) UpdatePickupUnit(ctx context.Context, u *domain.PickupUnit) error {
	_, err := s.db.Exec(ctx, `
        UPDATE pickup_units
        SET status = $3, courier_id = $4, en_route_at = $5, picked_up_at = $6
        WHERE order_id = $1 AND vendor_id = $2
    `, u.OrderID, u.VendorID, u.Status, u.CourierID, u.EnRouteAt, u.PickedUpAt)
	return wrap(fmt.Sprintf("update pickup unit %s/%s", u.OrderID, u.VendorID), err)
}

// UpdateDeliveryUnit stores status, failure reason and timestamps of u.
func (s *Store) UpdateDeliveryUnit(ctx context.Context, u *domain.DeliveryUnit) error {
	_, err := s.db.Exec(ctx, `
        UPDATE delivery_units
        SET status = $2, courier_id = $3, failure_reason = $4,
            out_for_delivery_at = $5, delivered_at = $6, failed_at = $7, returned_at = $8
        WHERE order_id = $1
    `, u.OrderID, u.Status, u.CourierID, u.FailureReason,
		u.OutForDeliveryAt, u.DeliveredAt, u.FailedAt, u.ReturnedAt)
	return wrap(fmt.Sprintf("update delivery unit %s", u.OrderID), err)
}

// DeleteUnitsByDate removes every delivery unit of date; pickup units follow by cascade.
func (s *Store) DeleteUnitsByDate(ctx context.Context, date time.Time) (int, error) {
	ct, err := s.db.Exec(ctx, `DELETE FROM delivery_units WHERE delivery_date = $1`, date)
	if err != nil {
		return 0, wrap("delete units", err)
	}
	return int(ct.RowsAffected()), nil
}

// DeleteOrderUnits removes the delivery unit of an order and its pickup units.
func (s *Store) DeleteOrderUnits(ctx context.Context, orderID string) (int, error) {
	ct, err := s.db.Exec(ctx, `DELETE FROM delivery_units WHERE order_id = $1`, orderID)
	if err != nil {
		return 0, wrap(fmt.Sprintf("delete units of order %s", orderID), err)
	}
	return int(ct.RowsAffected()), nil
}
