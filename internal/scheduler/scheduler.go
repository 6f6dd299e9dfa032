package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler triggers a dispatch pass on a fixed cadence. The pass itself
// is bounded work, so overlapping triggers (tick plus an on-demand run)
// are safe and coordinated by the store, not by the scheduler.
type Scheduler struct {
	interval time.Duration
	pass     func(context.Context)

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(interval time.Duration, pass func(context.Context)) (*Scheduler, error) {
	if interval <= 0 {
		return nil, errors.New("interval must be > 0")
	}
	if pass == nil {
		return nil, errors.New("pass must not be nil")
	}
	return &Scheduler{
		interval: interval,
		pass:     pass,
		done:     make(chan struct{}),
	}, nil
}

func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running.Store(true)

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		slog.Info("dispatch scheduler started", "interval", s.interval.String())

		s.safePass(ctx)

		for {
			select {
			case <-ctx.Done():
				slog.Info("dispatch scheduler stopping")
				return
			case <-ticker.C:
				s.safePass(ctx)
			}
		}
	}()

	return true
}

func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return false
	}

	s.cancel()
	<-s.done
	s.running.Store(false)

	slog.Info("dispatch scheduler stopped")
	return true
}

func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

func (s *Scheduler) safePass(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatch pass panic recovered", "panic", r)
		}
	}()

	start := time.Now()
	s.pass(ctx)
	slog.Info("dispatch pass completed", "duration_ms", time.Since(start).Milliseconds())
}
