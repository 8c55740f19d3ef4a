package browser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClosePageOnIdleManager(t *testing.T) {
	m := NewManager(true, time.Second, 0)
	// Nothing launched yet, so there is nothing to release.
	assert.NoError(t, m.ClosePage("https://example.com"))
	require.NoError(t, m.Close())
}

func TestOperationsAfterCloseFail(t *testing.T) {
	m := NewManager(true, time.Second, 0)
	require.NoError(t, m.Close())

	assert.ErrorIs(t, m.Page("https://example.com", false), ErrManagerClosed)

	_, err := m.Eval("https://example.com", "() => 1", nil)
	assert.ErrorIs(t, err, ErrManagerClosed)

	// Closed is terminal for every operation, ClosePage included.
	assert.ErrorIs(t, m.ClosePage("https://example.com"), ErrManagerClosed)
}

func TestCloseIsIdempotent(t *testing.T) {
	m := NewManager(true, time.Second, 0)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}
