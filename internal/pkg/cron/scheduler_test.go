package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduler_RunOnce(t *testing.T) {
	s := NewScheduler()
	var a, b atomic.Int32

	s.AddJob("a", time.Hour, func(ctx context.Context) error { a.Add(1); return nil })
	s.AddJob("b", time.Hour, func(ctx context.Context) error { b.Add(1); return errors.New("boom") })
	s.AddJob("disabled", 0, func(ctx context.Context) error { t.Fatal("disabled job ran"); return nil })

	s.RunOnce(context.Background())

	assert.Equal(t, int32(1), a.Load())
	assert.Equal(t, int32(1), b.Load())
}

func TestScheduler_StartRunsImmediatelyAndStops(t *testing.T) {
	s := NewScheduler()
	ran := make(chan struct{}, 1)

	s.AddJob("tick", time.Hour, func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})
	s.Start()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run on start")
	}
	s.Stop()
}

func TestScheduler_TimeoutCancelsRun(t *testing.T) {
	s := NewScheduler()
	var deadlineHit atomic.Bool

	s.Add(&Job{
		Name:     "slow",
		Interval: time.Hour,
		Timeout:  20 * time.Millisecond,
		Fn: func(ctx context.Context) error {
			<-ctx.Done()
			deadlineHit.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
			return ctx.Err()
		},
	})

	s.RunOnce(context.Background())
	assert.True(t, deadlineHit.Load())
}
