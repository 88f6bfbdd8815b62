//go:build wireinject
// +build wireinject

package di

import (
	"PersonalQT/pkg/config"
	"PersonalQT/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideDomainMetrics,
		ProvideCache,
		ProvideHTTPClient,

		// Backend and state
		ProvideBackend,
		ProvideStore,
		ProvideLoader,
		ProvideKafkaConsumer,
		ProvideScheduler,

		// Web
		ProvideRouter,
		ProvideStreamer,
		ProvideWebHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
