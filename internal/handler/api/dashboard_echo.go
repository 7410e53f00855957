// Package api exposes the dashboard's symbol state over HTTP for pollers
// that do not hold a websocket open.
package api

import (
	"time"

	"github.com/labstack/echo/v4"

	models "TradeDash/internal/domain/models"
	"TradeDash/internal/service/cache"
	"TradeDash/internal/usecase"
	xhttp "TradeDash/pkg/http"
	xlogger "TradeDash/pkg/logger"
)

// displayTTL bounds how stale a cached display view may get. The feed ticks
// once per second, so anything shorter just burns CPU.
const displayTTL = time.Second

// DashboardEchoHandler serves market state read endpoints from the
// dashboard's symbol state store.
type DashboardEchoHandler struct {
	logger *xlogger.Logger
	dash   *usecase.Dashboard
	cache  *cache.TTLCache
}

func NewDashboardEchoHandler(logger *xlogger.Logger, dash *usecase.Dashboard) *DashboardEchoHandler {
	return &DashboardEchoHandler{
		logger: logger,
		dash:   dash,
		cache:  cache.NewTTLCache(),
	}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/market")
	g.GET("/pairs", h.Pairs)
	g.GET("/state", h.State)
	g.GET("/display", h.Display)
	e.GET("/healthz", h.Health)
}

// Pairs lists the tracked trading pairs.
func (h *DashboardEchoHandler) Pairs(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.dash.View().Pairs())
}

type stateResponse struct {
	Symbol   models.TradingPair `json:"symbol"`
	Snapshot *models.MarketData `json:"snapshot,omitempty"`
	Setup    *models.TradeSetup `json:"setup,omitempty"`
}

// State returns the raw last-seen snapshot and setup for one symbol.
func (h *DashboardEchoHandler) State(c echo.Context) error {
	req := &models.StateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	pair, err := models.ParsePair(req.Symbol)
	if err != nil {
		h.logger.Debug("state request for unknown pair", xlogger.String("symbol", req.Symbol))
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	view := h.dash.View()
	res := stateResponse{Symbol: pair}
	if md, ok := view.Snapshot(pair); ok {
		res.Snapshot = &md
	}
	if setup, ok := view.Setup(pair); ok {
		res.Setup = &setup
	}
	if res.Snapshot == nil && res.Setup == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no data for %s yet", pair))
	}
	return xhttp.SuccessResponse(c, res)
}

// Display returns the formatted view for one symbol, cached briefly.
func (h *DashboardEchoHandler) Display(c echo.Context) error {
	req := &models.DisplayRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	pair, err := models.ParsePair(req.Symbol)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	key := "display:" + string(pair)
	if v, ok := h.cache.Get(key); ok {
		return xhttp.SuccessResponse(c, v)
	}

	view := h.dash.View()
	md, ok := view.Snapshot(pair)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no data for %s yet", pair))
	}
	var setupPtr *models.TradeSetup
	if setup, ok := view.Setup(pair); ok {
		setupPtr = &setup
	}

	display := usecase.BuildDisplay(md, setupPtr)
	h.cache.Set(key, display, displayTTL)
	return xhttp.SuccessResponse(c, display)
}

type healthResponse struct {
	Status   string `json:"status"`
	Dash     string `json:"dashboard_state"`
	ClientID string `json:"client_id,omitempty"`
}

// Health reports the dashboard lifecycle state.
func (h *DashboardEchoHandler) Health(c echo.Context) error {
	state := h.dash.State()
	res := healthResponse{Status: "ok", Dash: state.String()}
	if state == usecase.StateStreaming {
		res.ClientID = h.dash.ClientID()
	}
	return xhttp.SuccessResponse(c, res)
}

var _ xhttp.Handler = (*DashboardEchoHandler)(nil)
