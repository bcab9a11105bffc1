package redimap

import (
	"context"
	"log"
	"time"

	"golang.org/x/time/rate"
)

// RebuildConfig controls an index rebuild run.
type RebuildConfig struct {
	// Rate caps instance reindexes per second, so a rebuild over a large
	// model does not starve live traffic.
	Rate int `yaml:"rate" json:"rate"`

	// ContinueOnError keeps walking after a per-instance failure instead
	// of aborting the run.
	ContinueOnError bool `yaml:"continue_on_error" json:"continue_on_error"`
}

// DefaultRebuildConfig returns the defaults: 100 instances/sec, abort on
// first error.
func DefaultRebuildConfig() RebuildConfig {
	return RebuildConfig{Rate: 100}
}

// RebuildStats summarizes one rebuild run.
type RebuildStats struct {
	Scanned  int
	Repaired int
	Failed   int
	Elapsed  time.Duration
}

// RebuildIndexes walks every instance of the model and re-adds its pk to
// the index entries for the values its indexed fields currently hold. Use
// it to repair indexes after a partial failure left memberships missing.
// Additions are idempotent, so a rebuild over a healthy model is a no-op
// and it is safe to run while the model is live.
func (m *Model) RebuildIndexes(ctx context.Context, config RebuildConfig) (RebuildStats, error) {
	if config.Rate <= 0 {
		config.Rate = DefaultRebuildConfig().Rate
	}
	limiter := rate.NewLimiter(rate.Limit(config.Rate), 1)

	ids, err := m.client.store.SMembers(ctx, m.client.namer.CollectionKey(m.def.Name))
	if err != nil {
		return RebuildStats{}, err
	}

	log.Printf("[REBUILD:%s] Started - %d instances, rate: %d/sec", m.def.Name, len(ids), config.Rate)
	start := time.Now()

	var stats RebuildStats
	for _, id := range ids {
		if err := limiter.Wait(ctx); err != nil {
			stats.Elapsed = time.Since(start)
			return stats, err
		}
		stats.Scanned++
		if err := m.Handle(id).inst.Reindex(ctx); err != nil {
			stats.Failed++
			if !config.ContinueOnError {
				stats.Elapsed = time.Since(start)
				log.Printf("[REBUILD:%s] Aborted at %s[%s]: %v", m.def.Name, m.def.Name, id, err)
				return stats, err
			}
			log.Printf("[REBUILD:%s] Skipping %s[%s]: %v", m.def.Name, m.def.Name, id, err)
			continue
		}
		stats.Repaired++
	}

	stats.Elapsed = time.Since(start)
	log.Printf("[REBUILD:%s] Done - scanned: %d, repaired: %d, failed: %d in %v",
		m.def.Name, stats.Scanned, stats.Repaired, stats.Failed, stats.Elapsed)
	return stats, nil
}
