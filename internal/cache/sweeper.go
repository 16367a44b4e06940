package cache

import (
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Purger is a cache that can drop its expired entries.
type Purger interface {
	PurgeExpired() int
}

// Sweeper periodically purges expired entries from registered caches.
type Sweeper struct {
	cron   *cron.Cron
	logger *slog.Logger
	mu     sync.Mutex
	caches map[string]Purger
}

// NewSweeper creates a sweeper. It does nothing until Start is called.
func NewSweeper(logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sweeper{
		cron:   cron.New(),
		logger: logger,
		caches: make(map[string]Purger),
	}
}

// Register schedules name's cache to be swept on schedule, a robfig/cron
// spec such as "@every 1m".
func (s *Sweeper) Register(name, schedule string, c Purger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.cron.AddFunc(schedule, func() { s.sweep(name, c) }); err != nil {
		return err
	}
	s.caches[name] = c
	s.logger.Info("cache sweep scheduled", "cache", name, "schedule", schedule)
	return nil
}

// SweepAll purges every registered cache immediately.
func (s *Sweeper) SweepAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, c := range s.caches {
		s.sweep(name, c)
	}
}

func (s *Sweeper) sweep(name string, c Purger) {
	if n := c.PurgeExpired(); n > 0 {
		s.logger.Debug("expired cache entries purged", "cache", name, "count", n)
	}
}

// Start begins running scheduled sweeps.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
