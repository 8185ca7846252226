package flow

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Reaper sweeps the conversation store on a fixed interval and cancels
// conversations idle past the engine's timeout. The interval is below
// one minute, hence a plain ticker instead of the cron scheduler used
// for the slower jobs.
type Reaper struct {
	engine   *Engine
	interval time.Duration
	log      zerolog.Logger
}

// NewReaper builds the idle sweep around the engine.
func NewReaper(engine *Engine, interval time.Duration, log zerolog.Logger) *Reaper {
	return &Reaper{
		engine:   engine,
		interval: interval,
		log:      log.With().Str("component", "idle_reaper").Logger(),
	}
}

// Run blocks until the context is cancelled, sweeping every interval.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info().Dur("interval", r.interval).Msg("idle reaper started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("idle reaper stopped")
			return nil
		case <-ticker.C:
			r.engine.ExpireIdle(ctx)
		}
	}
}
