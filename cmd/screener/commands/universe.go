package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/demandzone/screener/internal/external/wikipedia"
	"github.com/demandzone/screener/internal/universe"
	"github.com/demandzone/screener/pkg/httputil"
	"github.com/demandzone/screener/pkg/logger"
	"github.com/demandzone/screener/pkg/redis"
)

// universeCmd represents the universe command
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "Show the screening universe",
	Long: `Resolves and prints the current S&P 500 constituents.

The list is scraped from Wikipedia in page order and cached for an
hour. When discovery fails a static large-cap fallback is used.

Example:
  go run ./cmd/screener universe
  go run ./cmd/screener universe --refresh
  go run ./cmd/screener universe --json`,
	RunE: runUniverse,
}

var (
	// Universe flags
	universeRefresh bool
	universeJSON    bool
)

func init() {
	rootCmd.AddCommand(universeCmd)

	// Flags
	universeCmd.Flags().BoolVar(&universeRefresh, "refresh", false, "bypass the constituents cache")
	universeCmd.Flags().BoolVar(&universeJSON, "json", false, "print the snapshot as JSON")
}

func runUniverse(cmd *cobra.Command, args []string) error {
	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Keep stdout machine-readable in json mode
	if universeJSON && !verbose {
		cfg.LogLevel = "error"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Create Redis client (optional, distributed rate limiting)
	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	limiter := redis.NewRateLimiter(redisClient, "screener")

	// 4. Create universe cache
	httpClient := httputil.New(cfg, log).
		WithRateLimiter(limiter, redis.WikipediaRateLimit)
	wikiClient := wikipedia.NewClient(httpClient, log).
		WithPageURL(cfg.Universe.SourceURL)
	cache := universe.NewCache(wikiClient, log)

	// 5. Resolve the snapshot
	maxAge := cfg.Screen.UniverseMaxAge
	if universeRefresh {
		maxAge = 0
	}
	snap := cache.Snapshot(context.Background(), maxAge)

	if universeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	if snap.Source == universe.SourceFallback {
		PrintWarning("Constituents discovery failed, using the static fallback universe")
	}

	fmt.Printf("S&P 500 universe: %d symbols (source: %s, fetched %s)\n\n",
		snap.Size(), snap.Source, snap.FetchedAt.Format("2006-01-02 15:04:05"))

	// 10 symbols per row
	for i, symbol := range snap.Symbols {
		fmt.Printf("%-8s", symbol)
		if (i+1)%10 == 0 {
			fmt.Println()
		}
	}
	if len(snap.Symbols)%10 != 0 {
		fmt.Println()
	}

	return nil
}
