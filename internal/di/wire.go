//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"SignalForge/internal/usecase"
	"SignalForge/pkg/config"
	"SignalForge/pkg/server"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideRegistry,
	ProvideMetrics,
	ProvideClickHouseClient,
	ProvideRedisCache,
	ProvideCache,
	ProvideKafkaProducer,
)

var repositorySet = wire.NewSet(
	ProvideCooldownStore,
	ProvideBarRepository,
	ProvideSignalStore,
	ProvideAlertPublisher,
)

var usecaseSet = wire.NewSet(
	ProvideQuoteBook,
	ProvideMarketData,
	ProvideInstitutionalClient,
	ProvideMacroProvider,
	ProvideGateway,
	ProvideTracker,
	ProvidePipeline,
	ProvideAlertRouter,
	ProvideAlertPipeline,
	ProvideSignalBook,
	ProvideScanner,
	ProvideQuoteCollector,
	ProvideBacktestUseCase,
	ProvideSinkConsumer,
)

// InitializeApp wires the live service. The returned cleanup closes every
// connection opened while wiring.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		infraSet,
		repositorySet,
		usecaseSet,
		ProvideHTTPHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeBacktest wires only what a replay needs.
func InitializeBacktest(cfg *config.Config) (*usecase.BacktestUseCase, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,
		ProvideClickHouseClient,
		ProvideBacktestUseCase,
	)
	return nil, nil, nil
}
