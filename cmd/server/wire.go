//go:build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/extruline/report-bot/internal/config"
	"github.com/extruline/report-bot/internal/domain/flow"
	"github.com/extruline/report-bot/internal/domain/report"
	"github.com/extruline/report-bot/internal/infrastructure/crontab"
	"github.com/extruline/report-bot/internal/infrastructure/dedup"
	"github.com/extruline/report-bot/internal/infrastructure/logger"
	repo "github.com/extruline/report-bot/internal/infrastructure/repository/conversation"
	"github.com/extruline/report-bot/internal/infrastructure/sheets"
	"github.com/extruline/report-bot/internal/infrastructure/telegram"
	"github.com/extruline/report-bot/internal/interfaces/httpserver"
	"github.com/extruline/report-bot/internal/interfaces/httpserver/handlers"
)

var domainSet = wire.NewSet(
	repo.NewInMemoryStore,
	wire.Bind(new(flow.Store), new(*repo.InMemoryStore)),
	newReferenceService,
	wire.Bind(new(flow.ReferenceLists), new(*report.ReferenceService)),
	newEngine,
	newReaper,
)

// BuildApplication demonstrates how to assemble the bot with Wire.
func BuildApplication() (*Application, error) {
	wire.Build(
		config.Load,
		newLogger,
		newTokenSource,
		newSink,
		wire.Bind(new(report.Sink), new(*sheets.Client)),
		newMessenger,
		wire.Bind(new(flow.Messenger), new(*telegram.Client)),
		newDedup,
		newWebhookHandler,
		handlers.NewProvider,
		httpserver.New,
		crontab.New,
		domainSet,
		NewApplication,
	)
	return nil, nil
}

func newLogger(cfg *config.Config) (zerolog.Logger, error) {
	return logger.New(cfg.LogLevel, cfg.LogFormat)
}

func newTokenSource(cfg *config.Config) (*sheets.TokenSource, error) {
	return sheets.NewTokenSource(cfg.GoogleCredsPath, cfg.SheetsTokenURL)
}

func newSink(cfg *config.Config, tokens *sheets.TokenSource, log zerolog.Logger) *sheets.Client {
	return sheets.NewClient(cfg.SheetsAPIBase, cfg.SpreadsheetID, tokens, log)
}

func newMessenger(cfg *config.Config, log zerolog.Logger) *telegram.Client {
	return telegram.NewClient(cfg.TelegramToken, cfg.TelegramAPIBase, log)
}

func newReferenceService(cfg *config.Config, sink report.Sink, log zerolog.Logger) *report.ReferenceService {
	return report.NewReferenceService(sink, cfg.ReferenceCacheTTL, log)
}

func newEngine(store flow.Store, sink report.Sink, refs flow.ReferenceLists, messenger flow.Messenger, cfg *config.Config, log zerolog.Logger) *flow.Engine {
	return flow.NewEngine(store, sink, refs, messenger, flow.Config{
		IdleTimeout:          cfg.IdleTimeout,
		PrevPeriodOffsetDays: cfg.PrevPeriodOffsetDays,
	}, log)
}

func newReaper(engine *flow.Engine, cfg *config.Config, log zerolog.Logger) *flow.Reaper {
	return flow.NewReaper(engine, cfg.SweepInterval, log)
}

func newDedup(cfg *config.Config) (*dedup.Cache, error) {
	return dedup.New(cfg.DedupCapacity)
}

func newWebhookHandler(engine *flow.Engine, seen *dedup.Cache, cfg *config.Config, log zerolog.Logger) *handlers.WebhookHandler {
	return handlers.NewWebhookHandler(engine, seen, cfg.TelegramToken, cfg.WebhookSecret, log)
}
