package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageOmitsCause(t *testing.T) {
	err := ErrLedgerUnavailable(fmt.Errorf("UPDATE `users` SET credits = credits - 1: database is locked"))
	require.Equal(t, "credit ledger unavailable", Message(err))
	require.Contains(t, err.Error(), "database is locked")

	wrapped := fmt.Errorf("deduct: %w", ErrDescribeFailed("ideogram", fmt.Errorf("status 403")))
	require.Equal(t, "ideogram describe failed", Message(wrapped))

	require.Equal(t, "Processing failed", Message(ErrProcessingFailed(fmt.Errorf("nil map"))))
	require.Equal(t, "plain failure", Message(fmt.Errorf("plain failure")))
	require.Empty(t, Message(nil))
}
