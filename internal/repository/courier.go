package repository

import (
	"context"
	"fmt"
	"time"

	"service-fulfillment/internal/apperr"
	"service-fulfillment/internal/domain"
)

const courierColumns = `id, profile_ref, name, phone, vehicle_type, verified, active,
        coverage_pincodes, rating, total_deliveries, successful_deliveries, created_at`

func scanCourier(row interface{ Scan(...any) error }) (domain.Courier, error) {
	var c domain.Courier
	err := row.Scan(&c.ID, &c.ProfileRef, &c.Name, &c.Phone, &c.VehicleType, &c.Verified, &c.Active,
		&c.CoveragePincodes, &c.Rating, &c.TotalDeliveries, &c.SuccessfulDeliveries, &c.CreatedAt)
	return c, err
}

// GetCourier - returns courier by its ID.
func (s *Store) GetCourier(ctx context.Context, id int64) (*domain.Courier, error) {
	c, err := scanCourier(s.db.QueryRow(ctx, `SELECT `+courierColumns+` FROM couriers WHERE id=$1`, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, wrap(fmt.Sprintf("get courier %d", id), err)
	}
	return &c, nil
}

// ListCouriers returns couriers ordered by id. If limit/offset are nil, returns the full list.
func (s *Store) ListCouriers(ctx context.Context, limit, offset *int) ([]domain.Courier, error) {
	q := `SELECT ` + courierColumns + ` FROM couriers ORDER BY id`
	args := make([]any, 0, 2)
	if limit != nil {
		q += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, *limit)
	}
	if offset != nil {
		q += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, *offset)
	}

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, wrap("list couriers", err)
	}
	defer rows.Close()
	capacity := 0
	if limit != nil && *limit > 0 {
		capacity = *limit
	}
	out := make([]domain.Courier, 0, capacity)
	for rows.Next() {
		c, err := scanCourier(rows)
		if err != nil {
			return nil, wrap("scan courier", err)
		}
		out = append(out, c)
	}
	return out, wrap("list couriers", rows.Err())
}

// CreateCourier - creates a new courier.
func (s *Store) CreateCourier(ctx context.Context, c *domain.Courier) (int64, error) {
	var id int64
	pincodes := c.CoveragePincodes
	if pincodes == nil {
		pincodes = []string{}
	}
	err := s.db.QueryRow(ctx, `
        INSERT INTO couriers (profile_ref, name, phone, vehicle_type, verified, active, coverage_pincodes, rating)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id`,
		c.ProfileRef, c.Name, c.Phone, c.VehicleType, c.Verified, c.Active, pincodes, c.Rating,
	).Scan(&id)
	if err != nil {
		if IsDuplicate(err) {
			return 0, apperr.NewConflict("phone already registered", c.Phone)
		}
		return 0, wrap("create courier", err)
	}
	return id, nil
}

// UpdateCourierPartial applies a partial update to a courier and returns true if a row was affected.
func (s *Store) UpdateCourierPartial(ctx context.Context, u domain.PartialCourierUpdate) (bool, error) {
	var pincodes []string
	if u.CoveragePincodes != nil {
		pincodes = *u.CoveragePincodes
		if pincodes == nil {
			pincodes = []string{}
		}
	}
	ct, err := s.db.Exec(ctx, `
        UPDATE couriers
        SET
            name              = COALESCE($2, name),
            phone             = COALESCE($3, phone),
            vehicle_type      = COALESCE($4, vehicle_type),
            verified          = COALESCE($5, verified),
            active            = COALESCE($6, active),
            coverage_pincodes = COALESCE($7, coverage_pincodes),
            rating            = COALESCE($8, rating),
            updated_at        = now()
        WHERE id = $1
    `, u.ID, u.Name, u.Phone, u.VehicleType, u.Verified, u.Active, pincodes, u.Rating)

	if err != nil {
		if IsDuplicate(err) {
			return false, apperr.NewConflict("phone already registered")
		}
		return false, wrap(fmt.Sprintf("update courier %d", u.ID), err)
	}
	return ct.RowsAffected() > 0, nil
}

// MergeCourierCoverage adds pincodes to the courier's coverage without duplicates.
func (s *Store) MergeCourierCoverage(ctx context.Context, courierID int64, pincodes []string) error {
	if len(pincodes) == 0 {
		return nil
	}
	_, err := s.db.Exec(ctx, `
        UPDATE couriers
        SET coverage_pincodes = ARRAY(
                SELECT DISTINCT p FROM unnest(coverage_pincodes || $2::text[]) AS p ORDER BY p),
            updated_at = now()
        WHERE id = $1
    `, courierID, pincodes)
	return wrap(fmt.Sprintf("merge coverage of courier %d", courierID), err)
}

// RecordDeliveryOutcome bumps the delivery counters of a courier.
func (s *Store) RecordDeliveryOutcome(ctx context.Context, courierID int64, success bool) error {
	_, err := s.db.Exec(ctx, `
        UPDATE couriers
        SET total_deliveries      = total_deliveries + 1,
            successful_deliveries = successful_deliveries + CASE WHEN $2 THEN 1 ELSE 0 END,
            updated_at            = now()
        WHERE id = $1
    `, courierID, success)
	return wrap(fmt.Sprintf("record outcome of courier %d", courierID), err)
}

// ListEligibleCouriers returns active couriers that cover the sector, with their
// number of assignments on date. A sector without pincodes is covered by everyone.
func (s *Store) ListEligibleCouriers(ctx context.Context, sectorID int64, date time.Time) ([]domain.CourierCandidate, error) {
	rows, err := s.db.Query(ctx, `
        SELECT c.id, c.active, c.verified, c.coverage_pincodes, c.rating,
               (SELECT count(*) FROM assignments a WHERE a.courier_id = c.id AND a.delivery_date = $2)
        FROM couriers c, sectors sec
        WHERE sec.id = $1
          AND c.active
          AND (cardinality(sec.pincodes) = 0 OR c.coverage_pincodes && sec.pincodes)
        ORDER BY c.id
    `, sectorID, date)
	if err != nil {
		return nil, wrap(fmt.Sprintf("eligible couriers for sector %d", sectorID), err)
	}
	defer rows.Close()

	var out []domain.CourierCandidate
	for rows.Next() {
		var c domain.CourierCandidate
		if err := rows.Scan(&c.CourierID, &c.Active, &c.Verified, &c.CoveragePincodes, &c.Rating, &c.DailyAssignmentCount); err != nil {
			return nil, wrap("scan candidate", err)
		}
		out = append(out, c)
	}
	return out, wrap("eligible couriers", rows.Err())
}
