//go:build wireinject
// +build wireinject

package di

import (
	"TradeDash/pkg/config"
	"TradeDash/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvidePairs,

		// Feed and dashboard
		ProvideFeed,
		ProvideDashboard,

		// Handlers
		ProvideHub,
		ProvideAPIHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
