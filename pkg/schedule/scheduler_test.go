package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeLocker struct {
	held  atomic.Bool
	calls atomic.Int32
}

func (l *fakeLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	l.calls.Add(1)
	if !l.held.CompareAndSwap(false, true) {
		return nil, false, nil
	}
	return func() { l.held.Store(false) }, true, nil
}

func TestIntervalSchedule(t *testing.T) {
	s := &IntervalSchedule{InitialDelay: time.Second, Interval: time.Minute}
	now := time.Now()
	assert.Equal(t, now.Add(time.Second), s.Next(now))
	assert.Equal(t, now.Add(time.Minute), s.Next(now))
}

func TestRunExclusive(t *testing.T) {
	locker := &fakeLocker{}
	s := NewScheduler(zap.S(), WithLocker(locker)).(*DefaultScheduler)

	var runs atomic.Int32
	task := &Task{
		Name:      "cleanup",
		Interval:  time.Hour,
		Exclusive: true,
		Do: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	}

	s.run(task)
	assert.EqualValues(t, 1, runs.Load())
	assert.False(t, locker.held.Load())

	// another node holds the lease
	locker.held.Store(true)
	s.run(task)
	assert.EqualValues(t, 1, runs.Load())
	assert.EqualValues(t, 2, locker.calls.Load())
}

func TestRunWithoutLocker(t *testing.T) {
	s := NewScheduler(zap.S()).(*DefaultScheduler)
	var runs atomic.Int32
	task := &Task{
		Name:      "reload",
		Exclusive: true,
		Do: func(ctx context.Context) error {
			runs.Add(1)
			return errors.New("boom")
		},
	}
	s.run(task)
	assert.EqualValues(t, 1, runs.Load())
}

func TestScheduler(t *testing.T) {
	s := NewScheduler(zap.S())
	done := make(chan struct{}, 1)
	s.AddTask(&Task{
		Name:         "tick",
		InitialDelay: 10 * time.Millisecond,
		Interval:     time.Hour,
		Do: func(ctx context.Context) error {
			select {
			case done <- struct{}{}:
			default:
			}
			return nil
		},
	})
	assert.NotNil(t, s.GetTask("tick"))
	assert.PanicsWithValue(t, ErrTaskAdded, func() {
		s.AddTask(&Task{Name: "tick"})
	})

	s.Start()
	defer s.Stop()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("task did not run")
	}
}
