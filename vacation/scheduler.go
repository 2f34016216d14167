/*
scheduler.go - Automated year opening

PURPOSE:
  Periodically ensures every employee has a bucket for the current year, so
  January leave requests find their new entitlement without an admin run.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on Start
  - Idempotent: OpenYear skips existing buckets, so repeated ticks are cheap
    and employees added mid-year get their bucket on the next tick
  - A bucket an admin deleted stays deleted; ticks never reopen the year

USAGE:
  scheduler := vacation.NewYearOpeningScheduler(engine)
  scheduler.Start()
  defer scheduler.Stop()
*/
package vacation

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/vacation-engine/logging"
)

type YearOpeningScheduler struct {
	Engine        *Engine
	CheckInterval time.Duration
	Enabled       bool

	log    logrus.FieldLogger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	runMu  sync.Mutex
}

// NewYearOpeningScheduler creates a scheduler with an hourly interval.
func NewYearOpeningScheduler(engine *Engine) *YearOpeningScheduler {
	return &YearOpeningScheduler{
		Engine:        engine,
		CheckInterval: time.Hour,
		Enabled:       true,
		log:           engine.Log.WithField(logging.FieldComponent, logging.ComponentScheduler),
	}
}

// Start begins the scheduler. Calling Start twice is a no-op.
func (s *YearOpeningScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.log.Info("disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run(s.ticker, s.stop)

	s.log.WithField("interval", s.CheckInterval).Info("started")
}

// Stop stops the scheduler and waits for an in-flight run.
func (s *YearOpeningScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.log.Info("stopped")
}

func (s *YearOpeningScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	s.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-stop:
			return
		}
	}
}

// RunOnce opens the current year.
func (s *YearOpeningScheduler) RunOnce(ctx context.Context) *YearOpening {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	year := s.Engine.CurrentYear()
	result, err := s.Engine.OpenYear(ctx, year)
	if err != nil {
		s.log.WithField(logging.FieldYear, year).WithError(err).Error("open year")
		return nil
	}
	return result
}
