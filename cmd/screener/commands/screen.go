package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/demandzone/screener/internal/contracts"
	"github.com/demandzone/screener/internal/external/wikipedia"
	"github.com/demandzone/screener/internal/external/yahoo"
	"github.com/demandzone/screener/internal/screen"
	"github.com/demandzone/screener/internal/strategy"
	"github.com/demandzone/screener/internal/universe"
	"github.com/demandzone/screener/pkg/httputil"
	"github.com/demandzone/screener/pkg/logger"
	"github.com/demandzone/screener/pkg/redis"
)

// screenCmd represents the screen command
var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Run a demand-zone screen",
	Long: `Runs one demand-zone screen over the S&P 500 universe.

The screen:
- Resolves the current constituents (cached for an hour)
- Fetches daily history for the top N symbols concurrently
- Computes RSI, distance from the 30-session low and volume
- Ranks demand-zone candidates first

Thresholds come from the environment, then an optional strategy
profile, then explicit flags, in that order of precedence.

Example:
  go run ./cmd/screener screen
  go run ./cmd/screener screen --rsi-max 30 --distance-max 3 --top-n 100
  go run ./cmd/screener screen --profile strategies/conservative.yaml
  go run ./cmd/screener screen --symbols AAPL,MSFT,BRK.B
  go run ./cmd/screener screen --json > report.json
  go run ./cmd/screener screen --symbols-only`,
	RunE: runScreen,
}

var (
	// Screen flags
	screenRSIMax      float64
	screenDistanceMax float64
	screenVolumeMin   int64
	screenTopN        int
	screenLookback    int
	screenWorkers     int
	screenRefresh     bool
	screenProfile     string
	screenSymbols     []string
	screenJSON        bool
	screenSymbolsOnly bool
)

func init() {
	rootCmd.AddCommand(screenCmd)

	// Flags
	screenCmd.Flags().Float64Var(&screenRSIMax, "rsi-max", 0, "RSI upper bound, 10-50 (default from config)")
	screenCmd.Flags().Float64Var(&screenDistanceMax, "distance-max", 0, "max distance above the 30-session low in percent, 1-15 (default from config)")
	screenCmd.Flags().Int64Var(&screenVolumeMin, "volume-min", 0, "minimum latest session volume, 100K-10M (default from config)")
	screenCmd.Flags().IntVar(&screenTopN, "top-n", 0, "how many ranked symbols to screen, 0 for the whole universe (default from config)")
	screenCmd.Flags().IntVar(&screenLookback, "lookback", 0, "history lookback in calendar days (default from config)")
	screenCmd.Flags().IntVar(&screenWorkers, "workers", 0, "concurrent fetch workers (default from config)")
	screenCmd.Flags().BoolVar(&screenRefresh, "refresh-universe", false, "bypass the constituents cache")
	screenCmd.Flags().StringVar(&screenProfile, "profile", "", "strategy profile YAML file")
	screenCmd.Flags().StringSliceVar(&screenSymbols, "symbols", nil, "screen exactly these symbols instead of the universe")
	screenCmd.Flags().BoolVar(&screenJSON, "json", false, "print the full report as JSON")
	screenCmd.Flags().BoolVar(&screenSymbolsOnly, "symbols-only", false, "print only the in-zone symbols, one per line")
}

func runScreen(cmd *cobra.Command, args []string) error {
	quiet := screenJSON || screenSymbolsOnly

	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Keep stdout machine-readable in json/symbols-only mode
	if quiet && !verbose {
		cfg.LogLevel = "error"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Resolve thresholds and run settings: config, then profile, then flags
	thresholds := contracts.ThresholdConfig{
		RSIMax:                cfg.Screen.RSIMax,
		DistanceFromLowMaxPct: cfg.Screen.DistanceFromLowMaxPct,
		VolumeMin:             cfg.Screen.VolumeMin,
	}
	topN := cfg.Screen.TopN
	lookback := 0
	workers := 0

	profilePath := screenProfile
	if profilePath == "" {
		profilePath = cfg.Screen.StrategyProfile
	}
	if profilePath != "" {
		profile, _, err := strategy.Load(profilePath)
		if err != nil {
			return fmt.Errorf("load strategy profile: %w", err)
		}
		hash, err := strategy.Hash(profile)
		if err != nil {
			return fmt.Errorf("hash strategy profile: %w", err)
		}

		thresholds = profile.Thresholds
		topN = profile.Run.TopN
		lookback = profile.Run.LookbackDays
		workers = profile.Run.MaxWorkers

		if !quiet {
			PrintSuccess(fmt.Sprintf("Loaded profile %q v%s (%s)",
				profile.Meta.Name, profile.Meta.Version, hash[:12]))
		}
	}

	if cmd.Flags().Changed("rsi-max") {
		thresholds.RSIMax = screenRSIMax
	}
	if cmd.Flags().Changed("distance-max") {
		thresholds.DistanceFromLowMaxPct = screenDistanceMax
	}
	if cmd.Flags().Changed("volume-min") {
		thresholds.VolumeMin = screenVolumeMin
	}
	if cmd.Flags().Changed("top-n") {
		topN = screenTopN
	}
	if cmd.Flags().Changed("lookback") {
		lookback = screenLookback
	}
	if cmd.Flags().Changed("workers") {
		workers = screenWorkers
	}

	// 4. Create Redis client (optional, distributed rate limiting)
	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	limiter := redis.NewRateLimiter(redisClient, "screener")

	// 5. Create HTTP clients
	wikiHTTP := httputil.New(cfg, log).
		WithRateLimiter(limiter, redis.WikipediaRateLimit)
	yahooHTTP := httputil.New(cfg, log).
		WithRateLimiter(limiter, redis.YahooRateLimit)

	// 6. Create universe cache
	wikiClient := wikipedia.NewClient(wikiHTTP, log).
		WithPageURL(cfg.Universe.SourceURL)
	universeCache := universe.NewCache(wikiClient, log)

	// 7. Create scoring pipeline
	yahooClient := yahoo.NewClient(cfg, yahooHTTP, log)
	worker := screen.NewWorker(yahooClient, cfg.Screen.FetchTimeout, log)
	pool := screen.NewPool(worker, log)
	session := screen.NewSession(universeCache, pool, cfg, log)

	// 8. Run, cancelling cleanly on Ctrl+C
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		cancel()
	}()

	var progress screen.ProgressFunc
	if !quiet {
		fmt.Println("=== Demand Zone Screen ===")
		PrintKeyValue("RSI max", strconv.FormatFloat(thresholds.RSIMax, 'f', -1, 64), 14)
		PrintKeyValue("Distance max", fmt.Sprintf("%s%%", strconv.FormatFloat(thresholds.DistanceFromLowMaxPct, 'f', -1, 64)), 14)
		PrintKeyValue("Volume min", formatVolume(thresholds.VolumeMin), 14)
		switch {
		case len(screenSymbols) > 0:
			PrintKeyValue("Symbols", strconv.Itoa(len(screenSymbols)), 14)
		case topN > 0:
			PrintKeyValue("Top N", strconv.Itoa(topN), 14)
		default:
			PrintKeyValue("Top N", "whole universe", 14)
		}
		fmt.Println()

		progress = func(done, total int, symbol string) {
			if done%25 == 0 || done == total {
				PrintProgress("Screen", fmt.Sprintf("Scored %s", symbol), done, total)
			}
		}
	}

	report, err := session.Run(ctx, screen.RunParams{
		TopN:            topN,
		LookbackDays:    lookback,
		MaxWorkers:      workers,
		RefreshUniverse: screenRefresh,
		Symbols:         screenSymbols,
		Thresholds:      thresholds,
		Progress:        progress,
	})
	if err != nil {
		return fmt.Errorf("screen run: %w", err)
	}

	// 9. Print the report
	if screenJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	if screenSymbolsOnly {
		for _, res := range report.Results {
			if res.InDemandZone {
				fmt.Println(res.Symbol)
			}
		}
		return nil
	}

	printReport(report)
	return nil
}

func printReport(report *contracts.ScreenReport) {
	fmt.Println()

	if len(report.Results) == 0 {
		PrintError("No symbols produced results")
	} else {
		printResultTable(report.Results)

		if chart := report.ChartResult(); chart != nil {
			fmt.Println()
			PrintSuccess(fmt.Sprintf("Price series attached to %s (%d sessions)",
				chart.Symbol, len(chart.Series)))
		}
		if report.InZoneCount() == 0 {
			PrintWarning("No symbols in the demand zone right now")
		}
	}

	fmt.Println()
	fmt.Println("📊 Screen Summary")
	PrintSeparator()
	PrintKeyValue("Run ID", report.RunID, 14)
	PrintKeyValue("Universe", fmt.Sprintf("%d symbols (%s)", report.UniverseSize, report.UniverseSource), 14)
	PrintKeyValue("Analyzed", strconv.Itoa(report.AnalyzedCount), 14)
	PrintKeyValue("In demand zone", fmt.Sprintf("%d (%.1f%%)", report.InZoneCount(), report.InZonePct()), 14)
	if avg, ok := report.AverageRSI(); ok {
		PrintKeyValue("Average RSI", fmt.Sprintf("%.1f", avg), 14)
	}
	PrintKeyValue("Duration", report.Duration.Round(time.Millisecond).String(), 14)

	if len(report.Failures) > 0 {
		fmt.Println()
		PrintWarning(fmt.Sprintf("%d symbols failed", len(report.Failures)))

		symbols := make([]string, 0, len(report.Failures))
		for symbol := range report.Failures {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)

		items := make([]string, 0, len(symbols))
		for _, symbol := range symbols {
			f := report.Failures[symbol]
			items = append(items, fmt.Sprintf("%s: %s (%s)", f.Symbol, f.Kind, truncate(f.Detail, 60)))
		}
		PrintList(items)
	}
}

func printResultTable(results []contracts.ScreenResult) {
	columns := []string{"#", "SYMBOL", "ZONE", "RSI14", "DIST", "WEEK", "MONTH", "VOLUME", "CLOSE"}
	widths := []int{4, 7, 5, 6, 7, 7, 7, 8, 9}

	PrintTableHeader(columns, widths)

	degraded := false
	for i, res := range results {
		ind := res.Indicators

		zone := ""
		if res.InDemandZone {
			zone = "yes"
		}

		dist := fmt.Sprintf("%.1f%%", ind.DistanceFromLow30Pct)
		if ind.Low30Degraded {
			dist += "*"
			degraded = true
		}

		PrintTableRow([]string{
			strconv.Itoa(i + 1),
			res.Symbol,
			zone,
			formatRSI(ind.RSI14),
			dist,
			formatChangePct(ind.WeeklyChangePct),
			formatChangePct(ind.MonthlyChangePct),
			formatVolume(ind.LatestVolume),
			fmt.Sprintf("%.2f", ind.LastClose),
		}, widths)
	}

	if degraded {
		fmt.Println()
		fmt.Println("   * low window shorter than 30 sessions")
	}
}

// truncate clips long failure details so the list stays one line each
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
