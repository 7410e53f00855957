package di

import (
	"fmt"

	"TradeDash/internal/domain/models"
	"TradeDash/internal/domain/repository"
	"TradeDash/internal/handler/api"
	"TradeDash/internal/handler/ws"
	"TradeDash/internal/service/mockfeed"
	"TradeDash/internal/service/wsfeed"
	"TradeDash/internal/usecase"
	"TradeDash/pkg/config"
	xhttp "TradeDash/pkg/http"
	applogger "TradeDash/pkg/logger"
	"TradeDash/pkg/metrics"
	"TradeDash/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: "stdout",
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvidePairs resolves the configured symbol list. An empty list means
// every known pair.
func ProvidePairs(cfg *config.Config) ([]models.TradingPair, error) {
	if len(cfg.Feed.Symbols) == 0 {
		return models.AllPairs(), nil
	}
	pairs := make([]models.TradingPair, 0, len(cfg.Feed.Symbols))
	for _, s := range cfg.Feed.Symbols {
		p, err := models.ParsePair(s)
		if err != nil {
			return nil, fmt.Errorf("config symbols: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

// ProvideFeed selects the feed implementation by config mode: "mock" runs
// the local generator, "ws" relays from a remote instance.
func ProvideFeed(
	cfg *config.Config,
	log *applogger.Logger,
	m repository.Metrics,
	pairs []models.TradingPair,
) (repository.FeedConnection, error) {
	switch cfg.Feed.Mode {
	case "mock":
		return mockfeed.New(log, m,
			mockfeed.WithTickInterval(cfg.Feed.TickInterval),
			mockfeed.WithSetupProbability(cfg.Feed.SetupProbability),
			mockfeed.WithQueueSize(cfg.Feed.QueueSize),
			mockfeed.WithPairs(pairs),
		), nil
	case "ws":
		return wsfeed.New(log, m, cfg.Feed.URL,
			wsfeed.WithPingInterval(cfg.Feed.PingInterval),
			wsfeed.WithQueueSize(cfg.Feed.QueueSize),
		), nil
	default:
		return nil, fmt.Errorf("unknown feed mode %q", cfg.Feed.Mode)
	}
}

// ProvideDashboard creates the dashboard controller.
func ProvideDashboard(
	feed repository.FeedConnection,
	m repository.Metrics,
	log *applogger.Logger,
	pairs []models.TradingPair,
) *usecase.Dashboard {
	return usecase.NewDashboard(feed, m, log, pairs)
}

// ProvideHub creates the websocket relay hub.
func ProvideHub(cfg *config.Config, log *applogger.Logger, m repository.Metrics) *ws.Hub {
	return ws.NewHub(log, m,
		ws.WithSendBuffer(cfg.WS.SendBuffer),
		ws.WithMessageRate(cfg.WS.MessageRate, cfg.WS.MessageBurst),
	)
}

// ProvideAPIHandler creates the REST handler.
func ProvideAPIHandler(log *applogger.Logger, dash *usecase.Dashboard) xhttp.Handler {
	return api.NewDashboardEchoHandler(log, dash)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	feed repository.FeedConnection,
	dash *usecase.Dashboard,
	hub *ws.Hub,
	apiHandler xhttp.Handler,
) *server.App {
	return server.New(cfg, log, feed, dash, hub, apiHandler)
}
