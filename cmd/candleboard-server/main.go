package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"candleboard/internal/cache"
	"candleboard/internal/config"
	"candleboard/internal/httpapi"
	"candleboard/internal/provider"
	"candleboard/internal/util"
	"candleboard/internal/watchlist"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("loading config: %v", err)
		}
		cfg = &config.Config{}
		config.ApplyEnv(cfg)
	}

	// Log to stdout and a daily file.
	logFileName := fmt.Sprintf("/tmp/candleboard-server-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Fatalf("opening log file: %v", err)
	}
	defer logFile.Close()

	logger := util.NewLoggerTo(io.MultiWriter(os.Stdout, logFile), cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	dataDir := cfg.Storage.DataDir
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatalf("creating data dir: %v", err)
	}

	cachePath := cfg.Storage.CachePath
	if cachePath == "" {
		cachePath = filepath.Join(dataDir, "cache.db")
	}
	sqliteCache, err := cache.NewSQLiteCache(cachePath, cfg.Storage.CacheTTL())
	if err != nil {
		log.Fatalf("opening cache: %v", err)
	}
	defer sqliteCache.Close()

	tiers := []provider.ChartCache{}
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Storage.CacheTTL())
		if err != nil {
			logger.Warn("redis unavailable, continuing without it", "error", err)
		} else {
			tiers = append(tiers, rc)
			defer rc.Close()
		}
	}
	tiers = append(tiers, sqliteCache)

	svc := provider.NewService(
		provider.NewAlpacaSource(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL),
		provider.NewYahooSource(),
		cache.NewTiered(tiers...),
		cfg.Chart.MAWindows(),
	)

	watchPath := cfg.Storage.WatchlistPath
	if watchPath == "" {
		watchPath = filepath.Join(dataDir, "watchlist.db")
	}
	lists, err := watchlist.NewStore(watchPath)
	if err != nil {
		log.Fatalf("opening watchlist: %v", err)
	}
	defer lists.Close()

	// Optional remote watchlist mirror.
	var sync *watchlist.AlpacaSync
	if cfg.Alpaca.Configured() && cfg.Alpaca.Watchlist != "" {
		client := alpacaapi.NewClient(alpacaapi.ClientOpts{
			APIKey:    cfg.Alpaca.APIKey,
			APISecret: cfg.Alpaca.APISecret,
			BaseURL:   cfg.Alpaca.BaseURL,
		})
		sync, err = watchlist.NewAlpacaSync(client, cfg.Alpaca.Watchlist)
		if err != nil {
			logger.Warn("watchlist sync disabled", "error", err)
			sync = nil
		}
	}

	srv := httpapi.NewServer(svc, lists, sync, cfg.Chart.MAWindows(), logger)

	host := cfg.Server.Host
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: srv.Handler(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Background refresh keeps watched tickers warm and archived.
	var sched *cron.Cron
	if cfg.Refresh.Cron != "" {
		archive := cache.NewBarArchive(dataDir)
		refresher := &refreshJob{
			svc:     svc,
			lists:   lists,
			archive: archive,
			limiter: util.NewRateLimiter(30),
			period:  cfg.Chart.DefaultPeriod,
			log:     logger.With("component", "refresh"),
		}
		sched = cron.New()
		if _, err := sched.AddFunc(cfg.Refresh.Cron, func() { refresher.Run(ctx) }); err != nil {
			log.Fatalf("refresh schedule %q: %v", cfg.Refresh.Cron, err)
		}
		sched.Start()
		logger.Info("refresh job scheduled", "cron", cfg.Refresh.Cron)
	}

	go func() {
		logger.Info("server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if sched != nil {
		<-sched.Stop().Done()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
