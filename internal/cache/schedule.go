package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"rcnpulse/internal/infrastructure"
)

// Invalidator clears cache namespaces on a cron schedule. The spec is a
// standard five-field expression or a descriptor such as "@daily".
type Invalidator struct {
	cron       *cron.Cron
	cache      *Cache
	namespaces []string
	logger     *slog.Logger
}

// NewInvalidator registers a job that drops namespaces from c on spec.
// With no namespaces the whole cache is cleared.
func NewInvalidator(c *Cache, spec string, namespaces []string, logger *slog.Logger) (*Invalidator, error) {
	inv := &Invalidator{
		cron:       cron.New(),
		cache:      c,
		namespaces: namespaces,
		logger:     infrastructure.WithComponent(logger, "cache-invalidator"),
	}
	if _, err := inv.cron.AddFunc(spec, inv.RunNow); err != nil {
		return nil, fmt.Errorf("register cache invalidation %q: %w", spec, err)
	}
	return inv, nil
}

// Start runs the schedule in the background
func (i *Invalidator) Start() {
	i.cron.Start()
	i.logger.Info("cache invalidation scheduled", slog.Any("namespaces", i.namespaces))
}

// Stop halts the schedule and waits for a running job
func (i *Invalidator) Stop(ctx context.Context) {
	done := i.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RunNow performs one invalidation immediately
func (i *Invalidator) RunNow() {
	if len(i.namespaces) == 0 {
		i.cache.Clear()
		i.logger.Info("cache cleared")
		return
	}
	for _, ns := range i.namespaces {
		n := i.cache.InvalidateNamespace(ns)
		i.logger.Info("cache namespace invalidated",
			slog.String("namespace", ns),
			slog.Int("removed", n))
	}
}
