package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledRecorder_ReturnsSentinel(t *testing.T) {
	r := Disabled()

	id, err := r.Record(context.Background(), FileEvent{
		Filename:         "photo.jpg",
		FileType:         "jpg",
		OriginalBackedUp: true,
		Sanitized:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, DisabledID, id)
	assert.False(t, r.Enabled())
}

func TestDisabledRecorder_RecentIsEmpty(t *testing.T) {
	r := Disabled()

	events, err := r.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestDisabledRecorder_CloseIsSafe(t *testing.T) {
	r := Disabled()
	assert.NoError(t, r.Close())
}

func TestLogError_Unwrap(t *testing.T) {
	inner := assert.AnError
	err := &LogError{Op: "record", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "record")
}
