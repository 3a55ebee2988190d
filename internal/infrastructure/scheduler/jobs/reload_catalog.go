// Package jobs contains the scheduled jobs of the learning journey engine.
package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alem-hub/learning-journey/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RELOAD CATALOG JOB
// ══════════════════════════════════════════════════════════════════════════════

// CatalogReloader is the part of the catalog provider this job drives.
type CatalogReloader interface {
	Reload(ctx context.Context) error
	Stats() (plans, activities int)
}

// ReloadCatalogStats describes the last reload.
type ReloadCatalogStats struct {
	StartedAt  time.Time
	Duration   time.Duration
	Plans      int
	Activities int
}

// ReloadCatalogJob re-reads the activity catalog so that plan changes
// published for the next period are picked up without a restart.
// A broken catalog keeps the previous one in service.
type ReloadCatalogJob struct {
	catalog CatalogReloader
	log     *logger.Logger

	lastStats atomic.Value // ReloadCatalogStats
}

// NewReloadCatalogJob creates the job.
func NewReloadCatalogJob(catalog CatalogReloader, log *logger.Logger) *ReloadCatalogJob {
	if log == nil {
		log = logger.Nop()
	}
	return &ReloadCatalogJob{catalog: catalog, log: log}
}

// Name returns the job name.
func (j *ReloadCatalogJob) Name() string {
	return "reload_catalog"
}

// Description returns a human-readable description.
func (j *ReloadCatalogJob) Description() string {
	return "Reloads plans, activities and answer keys from the catalog directory"
}

// Run executes the reload.
func (j *ReloadCatalogJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	if err := j.catalog.Reload(ctx); err != nil {
		return fmt.Errorf("reload catalog: %w", err)
	}

	plans, activities := j.catalog.Stats()
	stats := ReloadCatalogStats{
		StartedAt:  startedAt,
		Duration:   time.Since(startedAt),
		Plans:      plans,
		Activities: activities,
	}
	j.lastStats.Store(stats)

	j.log.Info("catalog reloaded",
		logger.Int("plans", plans),
		logger.Int("activities", activities),
		logger.Duration("duration", stats.Duration),
	)
	return nil
}

// LastStats returns the stats of the last successful run.
func (j *ReloadCatalogJob) LastStats() (ReloadCatalogStats, bool) {
	s, ok := j.lastStats.Load().(ReloadCatalogStats)
	return s, ok
}
