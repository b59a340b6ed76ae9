//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/searchcal/internal/bootstrap"
	"github.com/yanqian/searchcal/internal/domain/calendar"
	"github.com/yanqian/searchcal/internal/domain/calendarview"
	"github.com/yanqian/searchcal/internal/domain/ingest"
	"github.com/yanqian/searchcal/internal/infra/config"
	httpiface "github.com/yanqian/searchcal/internal/interface/http"
	"github.com/yanqian/searchcal/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		bootstrap.ProvideCalendarConfig,
		bootstrap.ProvideIngestConfig,
		bootstrap.ProvideSearchIndex,
		bootstrap.ProvideSearcher,
		bootstrap.ProvideIndexer,
		bootstrap.ProvideYearCache,
		bootstrap.ProvideCalendarCache,
		bootstrap.ProvideInvalidator,
		bootstrap.ProvideSnapshot,
		bootstrap.ProvideWidgetFactory,
		calendar.NewService,
		ingest.NewService,
		calendarview.NewAttacher,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
