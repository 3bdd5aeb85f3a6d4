package wikipedia

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/PuerkitoBio/goquery"

	"github.com/demandzone/screener/internal/universe"
	"github.com/demandzone/screener/pkg/httputil"
	"github.com/demandzone/screener/pkg/logger"
)

const defaultPageURL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"

// Client scrapes the S&P 500 constituents table from Wikipedia. The
// page lists current index members in a stable order, which downstream
// code treats as the prior ranking for topN selection.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	pageURL    string
}

// NewClient creates a Wikipedia constituents client
func NewClient(httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		pageURL:    defaultPageURL,
	}
}

// WithPageURL overrides the constituents page URL (tests, mirrors)
func (c *Client) WithPageURL(pageURL string) *Client {
	c.pageURL = pageURL
	return c
}

// Discover fetches and parses the constituents list in page order.
// Implements universe.Discoverer.
func (c *Client) Discover(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	symbols, err := parseConstituents(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse constituents page: %w", err)
	}

	c.logger.WithField("symbols", len(symbols)).Debug("Fetched S&P 500 constituents")
	return symbols, nil
}

// parseConstituents extracts ticker symbols from the constituents
// table, first column, one row per member.
func parseConstituents(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find("table#constituents")
	if table.Length() == 0 {
		// Page layout changes occasionally; the constituents table is
		// the first wikitable either way
		table = doc.Find("table.wikitable").First()
	}
	if table.Length() == 0 {
		return nil, errors.New("constituents table not found")
	}

	var symbols []string
	table.Find("tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			// header row
			return
		}

		symbol := cleanSymbol(cells.Eq(0).Text())
		if symbol == "" {
			return
		}
		symbols = append(symbols, symbol)
	})

	if len(symbols) == 0 {
		return nil, errors.New("no symbols in constituents table")
	}
	return symbols, nil
}

// cleanSymbol normalizes an index symbol to provider notation: class
// shares use a dash (BRK.B -> BRK-B)
func cleanSymbol(s string) string {
	return universe.NormalizeSymbol(s)
}
