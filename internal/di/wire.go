//go:build wireinject
// +build wireinject

package di

import (
	"FinBrief/pkg/config"
	"FinBrief/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvideCache,

		// Repositories
		ProvideEventPublisher,
		ProvideCorpusStore,

		// Collaborators
		ProvideGenerator,
		ProvideTranscriber,
		ProvideIntentExtractor,
		ProvideMarketFetcher,
		ProvideBriefGenerator,
		ProvideSynthesizer,
		ProvideCollaborators,

		// Use cases
		ProvidePipelineConfig,
		ProvideOrchestrator,

		// Transport
		ProvideRateLimiter,
		ProvideBriefHandler,
		ProvideHTTPServer,
		ProvideKafkaConsumer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
