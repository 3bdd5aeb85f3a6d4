package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/demandzone/screener/internal/contracts"
	"github.com/demandzone/screener/pkg/config"
	"github.com/demandzone/screener/pkg/httputil"
	"github.com/demandzone/screener/pkg/logger"
)

// Client fetches daily OHLCV history from the Yahoo Finance chart API.
// Requests pass through an in-process token bucket so a full S&P 500
// screen cannot burst past the provider's tolerance.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	limiter    *rate.Limiter
}

// NewClient creates a Yahoo Finance chart client
func NewClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Client {
	rps := cfg.Yahoo.RatePerSec
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Yahoo.RateBurst
	if burst <= 0 {
		burst = 5
	}

	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    cfg.Yahoo.BaseURL,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// chartResponse is the chart API payload. Bar columns are pointers:
// Yahoo emits null entries for holidays and halts.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchHistory fetches roughly lookbackDays of daily bars for a symbol,
// oldest first. Implements the screening worker's history provider.
func (c *Client) FetchHistory(ctx context.Context, symbol string, lookbackDays int) (contracts.PriceSeries, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	chartURL := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		c.baseURL, url.PathEscape(symbol), rangeForDays(lookbackDays))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, chartURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chart request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chart body failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart status %d for %s", resp.StatusCode, symbol)
	}

	series, err := parseChart(body)
	if err != nil {
		return nil, fmt.Errorf("parse chart for %s: %w", symbol, err)
	}

	if len(series) > lookbackDays {
		series = series[len(series)-lookbackDays:]
	}

	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("chart series for %s: %w", symbol, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"bars":   len(series),
	}).Debug("Fetched price history")

	return series, nil
}

// parseChart converts the chart payload into a clean daily series:
// null and non-positive bars dropped, dates normalized to UTC days,
// duplicates collapsed, ascending order.
func parseChart(body []byte) (contracts.PriceSeries, error) {
	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}

	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("api error %s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no chart data returned")
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	series := make(contracts.PriceSeries, 0, len(result.Timestamp))
	seen := make(map[time.Time]bool, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		closePrice := fval(quote.Close, i)
		if closePrice <= 0 {
			// null bars (holidays, halts) and corrupt zero closes
			continue
		}

		date := toUTCDay(ts)
		if seen[date] {
			continue
		}
		seen[date] = true

		series = append(series, contracts.PricePoint{
			Date:   date,
			Open:   fval(quote.Open, i),
			High:   fval(quote.High, i),
			Low:    fval(quote.Low, i),
			Close:  closePrice,
			Volume: ival(quote.Volume, i),
		})
	}

	if len(series) == 0 {
		return nil, fmt.Errorf("no usable bars in chart data")
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series, nil
}

// rangeForDays maps a lookback to the narrowest chart API range
func rangeForDays(days int) string {
	switch {
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	default:
		return "2y"
	}
}

// toUTCDay truncates an epoch timestamp to its UTC calendar day
func toUTCDay(ts int64) time.Time {
	t := time.Unix(ts, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func fval(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return 0
	}
	return *values[i]
}

func ival(values []*int64, i int) int64 {
	if i >= len(values) || values[i] == nil {
		return 0
	}
	return *values[i]
}
