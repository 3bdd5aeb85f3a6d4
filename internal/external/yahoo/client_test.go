package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/demandzone/screener/pkg/config"
	"github.com/demandzone/screener/pkg/httputil"
	"github.com/demandzone/screener/pkg/logger"
)

// Five consecutive UTC days starting 2025-06-02; the middle bar is a
// null bar the API emits for market holidays.
const chartJSON = `{
	"chart": {
		"result": [{
			"meta": {"symbol": "AAPL"},
			"timestamp": [1748822400, 1748908800, 1748995200, 1749081600, 1749168000],
			"indicators": {
				"quote": [{
					"open":   [100.0, 100.8, null, 99.5, 101.0],
					"high":   [101.0, 101.2, null, 101.5, 102.5],
					"low":    [99.5, 98.7, null, 99.0, 100.9],
					"close":  [100.5, 99.0, null, 101.25, 102.0],
					"volume": [1200000, 1500000, null, 1350000, 1800000]
				}]
			}
		}],
		"error": null
	}
}`

const chartErrorJSON = `{
	"chart": {
		"result": null,
		"error": {"code": "Not Found", "description": "No data found, symbol may be delisted"}
	}
}`

func testClient(baseURL string) *Client {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "error",
		LogFormat: "json",
		Yahoo: config.YahooConfig{
			BaseURL:    baseURL,
			RatePerSec: 1000, // no throttling in tests
			RateBurst:  1000,
		},
	}
	log := logger.New(cfg)
	return NewClient(cfg, httputil.New(cfg, log), log)
}

func TestParseChart(t *testing.T) {
	series, err := parseChart([]byte(chartJSON))
	if err != nil {
		t.Fatalf("parseChart() error = %v", err)
	}

	if len(series) != 4 {
		t.Fatalf("Expected 4 bars (null bar skipped), got %d", len(series))
	}

	first := series[0]
	wantDate := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	if !first.Date.Equal(wantDate) {
		t.Errorf("First bar date = %v, want %v", first.Date, wantDate)
	}
	if first.Close != 100.5 {
		t.Errorf("First bar close = %v, want 100.5", first.Close)
	}
	if first.Volume != 1_200_000 {
		t.Errorf("First bar volume = %d, want 1200000", first.Volume)
	}

	last := series[3]
	if last.Close != 102.0 {
		t.Errorf("Last bar close = %v, want 102.0", last.Close)
	}

	if err := series.Validate(); err != nil {
		t.Errorf("Parsed series failed validation: %v", err)
	}
}

func TestParseChartAPIError(t *testing.T) {
	_, err := parseChart([]byte(chartErrorJSON))
	if err == nil {
		t.Fatal("Expected error for API error payload")
	}
	if !strings.Contains(err.Error(), "delisted") {
		t.Errorf("Expected API description in error, got %v", err)
	}
}

func TestParseChartNoData(t *testing.T) {
	_, err := parseChart([]byte(`{"chart":{"result":[],"error":null}}`))
	if err == nil {
		t.Error("Expected error for empty result")
	}

	_, err = parseChart([]byte(`not json`))
	if err == nil {
		t.Error("Expected error for malformed payload")
	}
}

func TestRangeForDays(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{10, "1mo"},
		{30, "1mo"},
		{90, "3mo"},
		{120, "6mo"},
		{300, "1y"},
		{500, "2y"},
	}

	for _, tt := range tests {
		if got := rangeForDays(tt.days); got != tt.want {
			t.Errorf("rangeForDays(%d) = %q, want %q", tt.days, got, tt.want)
		}
	}
}

func TestToUTCDay(t *testing.T) {
	// 2025-06-02 13:30 UTC (market open, US eastern) maps to the
	// 2025-06-02 UTC day
	got := toUTCDay(1748871000)
	want := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("toUTCDay() = %v, want %v", got, want)
	}
}

func TestFetchHistory(t *testing.T) {
	var gotPath string
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(chartJSON))
	}))
	defer server.Close()

	client := testClient(server.URL)

	series, err := client.FetchHistory(context.Background(), "AAPL", 90)
	if err != nil {
		t.Fatalf("FetchHistory() error = %v", err)
	}

	if len(series) != 4 {
		t.Errorf("Expected 4 bars, got %d", len(series))
	}
	if gotPath != "/v8/finance/chart/AAPL" {
		t.Errorf("Unexpected request path %q", gotPath)
	}
	if !strings.Contains(gotQuery, "range=3mo") || !strings.Contains(gotQuery, "interval=1d") {
		t.Errorf("Unexpected query %q", gotQuery)
	}
}

func TestFetchHistoryTrimsToLookback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chartJSON))
	}))
	defer server.Close()

	client := testClient(server.URL)

	series, err := client.FetchHistory(context.Background(), "AAPL", 3)
	if err != nil {
		t.Fatalf("FetchHistory() error = %v", err)
	}

	if len(series) != 3 {
		t.Fatalf("Expected series trimmed to 3 bars, got %d", len(series))
	}
	// Trimming keeps the most recent bars
	if series[2].Close != 102.0 {
		t.Errorf("Expected last close 102.0 after trim, got %v", series[2].Close)
	}
	if series[0].Close != 99.0 {
		t.Errorf("Expected first close 99.0 after trim, got %v", series[0].Close)
	}
}

func TestFetchHistoryHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(server.URL)

	if _, err := client.FetchHistory(context.Background(), "GONE", 90); err == nil {
		t.Error("Expected error on 404 response")
	}
}
