package orders

import (
	"context"

	"service-fulfillment/internal/ports/fulfillmenttx"
)

// TxRunner abstracts running a function within a store transaction
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx fulfillmenttx.Repository) error) error
}
