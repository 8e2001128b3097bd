package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/polywhales/internal/model"
)

func TestPeriodic_RunsUntilCancelled(t *testing.T) {
	store := storeWith(t, w1)
	source := newFakeSource(func(string, int) ([]model.Trade, error) { return nil, nil })
	s := New(fastConfig(), store, source, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Periodic(ctx, 10*time.Millisecond) }()

	require.Eventually(t, func() bool { return source.callsFor(w1) >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Periodic did not return after cancel")
	}
}

func TestPeriodic_RejectsZeroInterval(t *testing.T) {
	s := New(fastConfig(), nil, nil, nil, nil)
	assert.Error(t, s.Periodic(context.Background(), 0))
}
