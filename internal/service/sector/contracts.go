//go:generate mockgen -source=contracts.go -destination=sector_mocks_test.go -package=sector_test

package sector

import (
	"context"

	"service-fulfillment/internal/domain"
)

type sectorRepository interface {
	GetSector(ctx context.Context, id int64) (*domain.Sector, error)
	ListSectors(ctx context.Context) ([]domain.Sector, error)
	InsertSector(ctx context.Context, s *domain.Sector) error
	SetSectorActive(ctx context.Context, id int64, active bool) (bool, error)
}
