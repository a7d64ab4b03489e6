package capacity

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/ports/fulfillmenttx"
)

type ledgerStore interface {
	GetSlot(ctx context.Context, id int64) (*domain.Slot, error)
	TryAdmit(ctx context.Context, slotID int64, date time.Time) (int, bool, error)
	Release(ctx context.Context, slotID int64, date time.Time) (int, bool, error)
	Committed(ctx context.Context, slotID int64, date time.Time) (int, error)
	WithTx(ctx context.Context, fn func(tx fulfillmenttx.Repository) error) error
}

type labeledCounter interface {
	WithLabelValues(lvs ...string) prometheus.Counter
}
