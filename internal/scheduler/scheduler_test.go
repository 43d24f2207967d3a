package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	runs atomic.Int32
	err  error
}

func (r *countingRunner) Run(ctx context.Context) (bool, error) {
	r.runs.Add(1)
	return false, r.err
}

func TestRunKicksImmediately(t *testing.T) {
	runner := &countingRunner{}
	s := &Scheduler{Runner: runner, Interval: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runner.runs.Load() == 1 },
		time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRunTicks(t *testing.T) {
	runner := &countingRunner{}
	s := &Scheduler{Runner: runner, Interval: 10 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	require.Eventually(t, func() bool { return runner.runs.Load() >= 3 },
		time.Second, 5*time.Millisecond)
}

func TestRunSurvivesCycleErrors(t *testing.T) {
	runner := &countingRunner{err: errors.New("cycle boom")}
	s := &Scheduler{Runner: runner, Interval: 10 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	require.Eventually(t, func() bool { return runner.runs.Load() >= 2 },
		time.Second, 5*time.Millisecond)
}
