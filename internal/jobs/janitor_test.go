package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartJanitor_SweepsExpiredTerminalJobs(t *testing.T) {
	store := NewStore()

	expired := store.Create("user-1", 1)
	require.NoError(t, store.Complete(expired, nil, 0, 0))

	processing := store.Create("user-1", 1)

	// Move the store's clock past the retention window before the
	// janitor starts ticking.
	store.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.StartJanitor(ctx, 5*time.Millisecond, 24*time.Hour)

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, err := store.Query(expired)
		if errors.Is(err, ErrNotFound) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("janitor did not sweep the expired job in time")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// In-flight jobs survive every sweep regardless of age.
	job, err := store.Query(processing)
	require.NoError(t, err)
	assert.Equal(t, processing, job.ID)
}

func TestStartJanitor_StopsOnContextCancel(t *testing.T) {
	store := NewStore()

	id := store.Create("user-1", 1)
	require.NoError(t, store.Complete(id, nil, 0, 0))
	store.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	// A canceled context stops the sweeper before its first tick, so the
	// job outlives its retention window.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store.StartJanitor(ctx, 50*time.Millisecond, 24*time.Hour)
	time.Sleep(20 * time.Millisecond)

	_, err := store.Query(id)
	assert.NoError(t, err)
}
