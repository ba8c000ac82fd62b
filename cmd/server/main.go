package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beatbounce/beatbounce/internal/cache"
	"github.com/beatbounce/beatbounce/internal/config"
	"github.com/beatbounce/beatbounce/internal/game"
	"github.com/beatbounce/beatbounce/internal/leaderboard"
	"github.com/beatbounce/beatbounce/internal/music"
	"github.com/beatbounce/beatbounce/internal/server"
	"github.com/beatbounce/beatbounce/internal/session"
	"github.com/beatbounce/beatbounce/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect db", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Error("connect redis", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Stores and services
	scoreStore := store.NewScoreStore(db)
	boards := leaderboard.NewService(rdb)
	library := music.NewClient(cfg.MusicAPIURL, cfg.MusicAPIToken, logger)
	analysis := music.NewAnalysisService(library, rdb, cfg.AnalysisCacheTTL, logger)

	sessions := session.NewManager()
	metrics := server.NewMetrics()

	// End-of-session callback: persist the score, feed the leaderboards.
	onEnd := func(sum session.Summary) {
		endCtx, endCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer endCancel()

		if err := scoreStore.Record(endCtx, sum); err != nil {
			logger.Error("record score", "session", sum.SessionID, "err", err)
		}
		if err := boards.Submit(endCtx, sum.TrackID, sum.PlayerID, sum.Score); err != nil {
			logger.Error("submit leaderboard", "session", sum.SessionID, "err", err)
		}

		logger.Info("session finished",
			"session", sum.SessionID,
			"player", sum.PlayerID,
			"track", sum.TrackID,
			"score", sum.Score,
			"max_combo", sum.MaxCombo,
			"accuracy", sum.Accuracy,
		)
	}

	// Wire engine and hub (circular dependency resolved via SetHub)
	engine := game.NewEngine(sessions, analysis, metrics, logger, onEnd, game.Config{
		TickInterval:  cfg.TickInterval,
		GraceMs:       cfg.SpawnGraceMs,
		DefaultPreset: cfg.DefaultPreset,
	})
	hub := server.NewHub([]byte(cfg.JWTSecret), cfg.Env == "development", engine, metrics, logger)
	engine.SetHub(hub)
	hub.SetLimits(cfg.WSReadLimit, cfg.WSPingInterval)

	srv := server.New(cfg, db, rdb, hub, library, analysis, metrics, logger)

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
