package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"TradeDash/internal/domain/models"
	"TradeDash/internal/service/mockfeed"
	"TradeDash/internal/usecase"
	applogger "TradeDash/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordEnvelope(kind, symbol string)           {}
func (nopMetrics) RecordError(kind string)                      {}
func (nopMetrics) RecordLastPrice(symbol string, price float64) {}
func (nopMetrics) RecordLatency(op string, seconds float64)     {}
func (nopMetrics) SetSubscribers(n int)                         {}
func (nopMetrics) SetWSClients(n int)                           {}

// startDashboard runs a dashboard over a quiet mock feed and injects one
// deterministic BTC snapshot.
func startDashboard(t *testing.T) (*usecase.Dashboard, *echo.Echo) {
	t.Helper()
	feed := mockfeed.New(applogger.Nop(), nopMetrics{},
		mockfeed.WithTickInterval(time.Hour),
		mockfeed.WithSetupProbability(0),
	)
	dash := usecase.NewDashboard(feed, nopMetrics{}, applogger.Nop(), models.AllPairs())
	if err := dash.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(dash.Stop)

	if err := feed.Publish(models.NewMarketEnvelope(&models.MarketData{
		Symbol:    models.PairBTCUSD,
		Price:     50000,
		Volume:    1000,
		Timestamp: time.Now().UTC(),
	})); err != nil {
		t.Fatalf("publish: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := dash.View().Snapshot(models.PairBTCUSD); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("snapshot never arrived")
		}
		time.Sleep(5 * time.Millisecond)
	}

	e := echo.New()
	NewDashboardEchoHandler(applogger.Nop(), dash).RegisterRoutes(e)
	return dash, e
}

func get(t *testing.T, e *echo.Echo, url string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %s: %v (%s)", url, err, rec.Body.String())
	}
	return rec, body
}

func TestPairsEndpoint(t *testing.T) {
	_, e := startDashboard(t)
	rec, body := get(t, e, "/api/market/pairs")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	pairs, ok := body["data"].([]any)
	if !ok || len(pairs) != len(models.AllPairs()) {
		t.Fatalf("data = %v", body["data"])
	}
}

func TestStateEndpoint(t *testing.T) {
	_, e := startDashboard(t)
	rec, body := get(t, e, "/api/market/state?symbol=BTCUSD")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%v", rec.Code, body)
	}
	data := body["data"].(map[string]any)
	snap := data["snapshot"].(map[string]any)
	if snap["price"].(float64) != 50000 {
		t.Fatalf("price = %v", snap["price"])
	}
	if _, present := data["setup"]; present {
		t.Fatalf("setup present without alert")
	}
}

func TestStateEndpointValidation(t *testing.T) {
	_, e := startDashboard(t)

	_, body := get(t, e, "/api/market/state")
	if body["status"].(float64) != http.StatusBadRequest {
		t.Fatalf("missing symbol: status = %v", body["status"])
	}

	_, body = get(t, e, "/api/market/state?symbol=DOGEUSD")
	if body["status"].(float64) != http.StatusBadRequest {
		t.Fatalf("unknown symbol: status = %v", body["status"])
	}

	// known pair with no data yet
	_, body = get(t, e, "/api/market/state?symbol=ETHUSD")
	if body["status"].(float64) != http.StatusNotFound {
		t.Fatalf("no data: status = %v", body["status"])
	}
}

func TestDisplayEndpointFormats(t *testing.T) {
	_, e := startDashboard(t)
	rec, body := get(t, e, "/api/market/display?symbol=BTCUSD")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := body["data"].(map[string]any)
	if data["price"] != "$50,000.00" {
		t.Fatalf("price = %v", data["price"])
	}
	if data["volume"] != "1,000" {
		t.Fatalf("volume = %v", data["volume"])
	}

	// cached response must be identical
	_, body2 := get(t, e, "/api/market/display?symbol=BTCUSD")
	if data2 := body2["data"].(map[string]any); data2["price"] != "$50,000.00" {
		t.Fatalf("cached price = %v", data2["price"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	dash, e := startDashboard(t)
	rec, body := get(t, e, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := body["data"].(map[string]any)
	if data["dashboard_state"] != "streaming" {
		t.Fatalf("dashboard_state = %v", data["dashboard_state"])
	}
	if !strings.HasPrefix(data["client_id"].(string), "client_") {
		t.Fatalf("client_id = %v", data["client_id"])
	}
	if data["client_id"] != dash.ClientID() {
		t.Fatalf("client id mismatch")
	}
}
