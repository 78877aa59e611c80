package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelsWrapWithErrorsIs(t *testing.T) {
	wrapped := fmt.Errorf("opening account: %w", ErrValidation)
	require.ErrorIs(t, wrapped, ErrValidation)
	require.False(t, errors.Is(wrapped, ErrNotFound))
}

func TestSentinelsAreDistinct(t *testing.T) {
	all := []error{
		ErrValidation, ErrInsufficientFunds, ErrUnbalancedJournal,
		ErrStorageUnavailable, ErrLedgerWriteFailed, ErrOverloaded, ErrNotFound,
	}
	for i, a := range all {
		for j, b := range all {
			if i == j {
				continue
			}
			require.NotErrorIs(t, a, b)
		}
	}
}
