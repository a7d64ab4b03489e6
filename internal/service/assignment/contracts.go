package assignment

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/ports/fulfillmenttx"
)

type engineStore interface {
	ListAssignments(ctx context.Context, f fulfillmenttx.AssignmentFilter) ([]domain.Assignment, error)
	WithTx(ctx context.Context, fn func(tx fulfillmenttx.Repository) error) error
}

type labeledCounter interface {
	WithLabelValues(lvs ...string) prometheus.Counter
}
