package apperr_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"service-fulfillment/internal/apperr"
)

func TestNewValidationError_Empty(t *testing.T) {
	require.NoError(t, apperr.NewValidationError(nil))
}

func TestValidationError_ListsAllViolations(t *testing.T) {
	err := apperr.NewValidationError([]string{"a is required", "b must be positive"})

	require.ErrorIs(t, err, apperr.ErrInvalid)
	assert.Equal(t, "invalid input: a is required; b must be positive", err.Error())

	var ve *apperr.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Violations, 2)
}

func TestConflictError(t *testing.T) {
	err := apperr.NewConflict("orders already picked up", "o-1", "o-2").With("date", "2024-01-01")

	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "conflict: orders already picked up [o-1,o-2]", err.Error())
	assert.Equal(t, "2024-01-01", err.Details["date"])
	assert.Equal(t, "conflict: no ids", apperr.NewConflict("no ids").Error())
}

func TestCapacityExceededError(t *testing.T) {
	err := &apperr.CapacityExceededError{
		SlotID:    7,
		Date:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Committed: 30,
		MaxOrders: 30,
	}
	require.ErrorIs(t, err, apperr.ErrCapacityExceeded)
	assert.Equal(t, "capacity exceeded: slot 7 on 2024-01-01 has 30/30 orders", err.Error())
}

func TestInvalidTransitionError(t *testing.T) {
	err := &apperr.InvalidTransitionError{Machine: "delivery", ID: "o-1", From: "pending", To: "delivered"}
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Contains(t, err.Error(), `from "pending" to "delivered"`)
}

func TestStoreUnavailable(t *testing.T) {
	require.NoError(t, apperr.StoreUnavailable(nil))

	cause := errors.New("conn reset")
	err := apperr.StoreUnavailable(cause)
	require.ErrorIs(t, err, apperr.ErrStoreUnavailable)
	require.ErrorIs(t, err, cause)
}
