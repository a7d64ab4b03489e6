package courier

import (
	"context"

	"service-fulfillment/internal/domain"
)

// courierRepository defines storage operations required by the business layer.
type courierRepository interface {
	GetCourier(ctx context.Context, id int64) (*domain.Courier, error)
	ListCouriers(ctx context.Context, limit, offset *int) ([]domain.Courier, error)
	CreateCourier(ctx context.Context, c *domain.Courier) (int64, error)
	UpdateCourierPartial(ctx context.Context, u domain.PartialCourierUpdate) (bool, error)
}
