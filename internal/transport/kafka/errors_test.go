package kafka

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"service-fulfillment/internal/apperr"
)

func TestRetryable(t *testing.T) {
	t.Parallel()

	require.True(t, retryable(fmt.Errorf("admit: %w", apperr.ErrStoreUnavailable)))
	require.False(t, retryable(errors.New("boom")))
	require.False(t, retryable(apperr.ErrConflict))
	require.False(t, retryable(malformed("slot_id", apperr.ErrStoreUnavailable)), "malformed wins")
}

func TestMalformed_KeepsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("bad date")
	err := malformed("delivery_date", cause)

	require.ErrorIs(t, err, ErrMalformed)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "malformed order event: delivery_date: bad date", err.Error())
}
