package repository

import (
	"context"
	"fmt"

	"service-fulfillment/internal/domain"
)

const sectorColumns = `id, name, city, pincodes, active, created_at`

func scanSector(row interface{ Scan(...any) error }) (domain.Sector, error) {
	var s domain.Sector
	err := row.Scan(&s.ID, &s.Name, &s.City, &s.Pincodes, &s.Active, &s.CreatedAt)
	return s, err
}

// GetSector returns a sector by id, or nil if it does not exist.
func (s *Store) GetSector(ctx context.Context, id int64) (*domain.Sector, error) {
	sec, err := scanSector(s.db.QueryRow(ctx, `SELECT `+sectorColumns+` FROM sectors WHERE id = $1`, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, wrap(fmt.Sprintf("get sector %d", id), err)
	}
	return &sec, nil
}

// ListSectors returns all sectors ordered by id.
func (s *Store) ListSectors(ctx context.Context) ([]domain.Sector, error) {
	rows, err := s.db.Query(ctx, `SELECT `+sectorColumns+` FROM sectors ORDER BY id`)
	if err != nil {
		return nil, wrap("list sectors", err)
	}
	defer rows.Close()

	var out []domain.Sector
	for rows.Next() {
		sec, err := scanSector(rows)
		if err != nil {
			return nil, wrap("scan sector", err)
		}
		out = append(out, sec)
	}
	return out, wrap("list sectors", rows.Err())
}

// InsertSector creates a sector and fills its id.
func (s *Store) InsertSector(ctx context.Context, sec *domain.Sector) error {
	err := s.db.QueryRow(ctx, `
        INSERT INTO sectors (name, city, pincodes, active)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `, sec.Name, sec.City, sec.Pincodes, sec.Active).Scan(&sec.ID, &sec.CreatedAt)
	return wrap("insert sector", err)
}

// SetSectorActive toggles activation and reports whether the sector exists.
func (s *Store) SetSectorActive(ctx context.Context, id int64, active bool) (bool, error) {
	ct, err := s.db.Exec(ctx, `UPDATE sectors SET active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return false, wrap(fmt.Sprintf("set sector %d active", id), err)
	}
	return ct.RowsAffected() > 0, nil
}
