package webhooks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplayProtector_WindowExpiry(t *testing.T) {
	t.Parallel()

	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := NewInmemReplayProtector(time.Minute)
	p.now = func() time.Time { return current }

	body := []byte(`{"envelopeId":"env-1"}`)
	require.NoError(t, p.Check(context.Background(), nil, body))
	require.ErrorIs(t, p.Check(context.Background(), nil, body), ErrReplayDetected)

	// Outside the window the same payload is a fresh delivery again.
	current = current.Add(2 * time.Minute)
	assert.NoError(t, p.Check(context.Background(), nil, body))
}

func TestReplayProtector_DistinctBodiesPass(t *testing.T) {
	t.Parallel()

	p := NewInmemReplayProtector(time.Minute)
	require.NoError(t, p.Check(context.Background(), nil, []byte(`{"a":1}`)))
	require.NoError(t, p.Check(context.Background(), nil, []byte(`{"a":2}`)))
}
