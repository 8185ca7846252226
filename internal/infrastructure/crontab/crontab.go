package crontab

import (
	"context"
	"time"

	"github.com/mileusna/crontab"
	"github.com/rs/zerolog"

	"github.com/extruline/report-bot/internal/domain/report"
	"github.com/extruline/report-bot/internal/infrastructure/sheets"
)

const jobTimeout = 2 * time.Minute

// Crontab owns the slow periodic jobs: keeping the reference pick-lists
// warm and re-asserting the log worksheet schemas once a day. The idle
// sweep is not here; it runs on a sub-minute ticker in the flow package.
type Crontab struct {
	ctab *crontab.Crontab
	refs *report.ReferenceService
	sink *sheets.Client
	log  zerolog.Logger
}

// New wires the job runner.
func New(refs *report.ReferenceService, sink *sheets.Client, log zerolog.Logger) *Crontab {
	return &Crontab{
		ctab: crontab.New(),
		refs: refs,
		sink: sink,
		log:  log.With().Str("component", "crontab").Logger(),
	}
}

// Run registers the jobs, executes the reference warmup once, and blocks
// until the context is cancelled.
func (c *Crontab) Run(ctx context.Context) error {
	c.refreshReferences()

	if err := c.ctab.AddJob("* * * * *", c.refreshReferences); err != nil {
		return err
	}
	if err := c.ctab.AddJob("0 3 * * *", c.assertSchemas); err != nil {
		return err
	}

	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

func (c *Crontab) refreshReferences() {
	jobCtx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if err := c.refs.Refresh(jobCtx); err != nil {
		c.log.Warn().Err(err).Msg("reference list warmup failed")
	}
}

func (c *Crontab) assertSchemas() {
	jobCtx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if err := c.sink.EnsureSchema(jobCtx); err != nil {
		c.log.Warn().Err(err).Msg("sheet schema assert failed")
	}
}
