// Package server ties the feed, dashboard, websocket hub, and HTTP API into
// one process lifecycle.
package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"

	domrepo "TradeDash/internal/domain/repository"
	"TradeDash/internal/handler/ws"
	"TradeDash/internal/usecase"
	"TradeDash/pkg/config"
	xhttp "TradeDash/pkg/http"
	applogger "TradeDash/pkg/logger"
)

// App owns every long-lived component. Run blocks until SIGINT or SIGTERM.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	feed       domrepo.FeedConnection
	dash       *usecase.Dashboard
	hub        *ws.Hub
	apiHandler xhttp.Handler

	httpServer *xhttp.Server
	hubSub     domrepo.SubscriptionID
}

// New assembles the application from wired dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	feed domrepo.FeedConnection,
	dash *usecase.Dashboard,
	hub *ws.Hub,
	apiHandler xhttp.Handler,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		feed:       feed,
		dash:       dash,
		hub:        hub,
		apiHandler: apiHandler,
	}
}

// routes registers both the REST API and the websocket endpoint on one Echo.
type routes struct {
	api xhttp.Handler
	hub *ws.Hub
}

func (r routes) RegisterRoutes(e *echo.Echo) {
	r.api.RegisterRoutes(e)
	r.hub.RegisterRoutes(e)
}

// Run starts the dashboard and HTTP server and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.dash.Start(ctx); err != nil {
		a.log.Error("dashboard start", applogger.Error(err))
		return err
	}
	a.log.Info("dashboard streaming",
		applogger.String("client_id", a.dash.ClientID()),
		applogger.Strings("symbols", a.cfg.Feed.Symbols))

	// Everything the feed emits is also relayed to browser clients.
	a.hubSub = a.feed.Subscribe(a.hub.Broadcast)

	a.httpServer = xhttp.NewServer(a.log, routes{api: a.apiHandler, hub: a.hub},
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) shutdown(ctx context.Context) error {
	a.feed.Unsubscribe(a.hubSub)
	a.dash.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown", applogger.Error(err))
		return err
	}

	a.log.Info("shutdown complete")
	return nil
}
