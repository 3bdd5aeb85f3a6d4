package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/demandzone/screener/internal/api"
	"github.com/demandzone/screener/internal/api/handlers"
	"github.com/demandzone/screener/internal/external/wikipedia"
	"github.com/demandzone/screener/internal/external/yahoo"
	"github.com/demandzone/screener/internal/scheduler"
	"github.com/demandzone/screener/internal/scheduler/jobs"
	"github.com/demandzone/screener/internal/screen"
	"github.com/demandzone/screener/internal/universe"
	"github.com/demandzone/screener/pkg/httputil"
	"github.com/demandzone/screener/pkg/logger"
	"github.com/demandzone/screener/pkg/redis"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the screener API server",
	Long: `Starts the REST API server with the background refresh scheduler.

This command:
- Serves screen runs over HTTP and WebSocket
- Keeps a cached latest report refreshed on a cron schedule
- Exposes the universe and scheduler state

Endpoints:
  GET  /health               - Health check
  GET  /ws/screen            - Screen run with progress streaming
  POST /api/screen           - Run a screen
  GET  /api/screen/latest    - Most recent completed report
  GET  /api/universe         - Current screening universe
  GET  /api/jobs             - Scheduled job statistics

Example:
  go run ./cmd/screener serve
  go run ./cmd/screener serve --port 9090`,
	RunE: runServe,
}

var (
	servePort string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "API server port (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Demand Zone Screener API ===")

	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Override port if flag is set
	if servePort != "" {
		cfg.Port = servePort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// 3. Create Redis client (optional, distributed rate limiting)
	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	limiter := redis.NewRateLimiter(redisClient, "screener")

	// 4. Create HTTP clients
	wikiHTTP := httputil.New(cfg, log).
		WithRateLimiter(limiter, redis.WikipediaRateLimit)
	yahooHTTP := httputil.New(cfg, log).
		WithRateLimiter(limiter, redis.YahooRateLimit)

	// 5. Create universe cache
	wikiClient := wikipedia.NewClient(wikiHTTP, log).
		WithPageURL(cfg.Universe.SourceURL)
	universeCache := universe.NewCache(wikiClient, log)

	// 6. Create scoring pipeline
	yahooClient := yahoo.NewClient(cfg, yahooHTTP, log)
	worker := screen.NewWorker(yahooClient, cfg.Screen.FetchTimeout, log)
	pool := screen.NewPool(worker, log)
	session := screen.NewSession(universeCache, pool, cfg, log)

	// 7. Create latest-report store
	latest := screen.NewLatestReport()

	// 8. Create scheduler with the refresh job
	sched := scheduler.New(log)
	refreshJob := jobs.NewScreenRefreshJob(session, latest, cfg, log)
	if err := sched.AddJob(refreshJob); err != nil {
		return fmt.Errorf("register refresh job: %w", err)
	}
	sched.Start()

	// Warm the latest-report cache without blocking startup
	if err := sched.RunJob(refreshJob.Name()); err != nil {
		log.WithError(err).Warn("Failed to start warmup screen")
	}

	// 9. Create handlers
	screenHandler := handlers.NewScreenHandler(session, latest, cfg, log)
	universeHandler := handlers.NewUniverseHandler(universeCache, cfg, log)
	jobsHandler := handlers.NewJobsHandler(sched)
	socketHandler := handlers.NewScreenSocketHandler(session, latest, cfg, log)

	// 10. Create router
	router := api.NewRouter(screenHandler, universeHandler, jobsHandler, socketHandler, log)

	// 11. Create server
	server := api.New(cfg, log, router)

	// 12. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /ws/screen")
	fmt.Println("  POST /api/screen")
	fmt.Println("  GET  /api/screen/latest")
	fmt.Println("  GET  /api/universe")
	fmt.Println("  GET  /api/jobs")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	sched.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
