package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"banguard/internal/bot"
	"banguard/internal/config"
	"banguard/internal/storage"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Gateway close codes that need operator action rather than a retry.
const (
	closeAuthenticationFailed = 4004
	closeDisallowedIntents    = 4014
)

func main() {
	cfg, err := config.Load()
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		startupLogger().Fatal("config load failed", zap.Error(err))
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		startupLogger().Fatal("logger init failed", zap.String("level", cfg.LogLevel), zap.Error(err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	settings, err := storage.OpenSettings(cfg.SettingsPath)
	if errors.Is(err, storage.ErrSettingsMissing) {
		logger.Fatal("settings file not found; create it with at least the bot token",
			zap.String("path", cfg.SettingsPath),
			zap.String("example", `{"token": "YOUR_BOT_TOKEN"}`))
	}
	if err != nil {
		logger.Fatal("settings load failed", zap.String("path", cfg.SettingsPath), zap.Error(err))
	}
	if cfg.DiscordToken == "" {
		cfg.DiscordToken = settings.Snapshot().Token
	}
	if cfg.DiscordToken == "" {
		logger.Fatal("no bot token configured; set DISCORD_TOKEN or the token field of the settings file",
			zap.String("path", cfg.SettingsPath))
	}

	lists, err := storage.OpenBanList(cfg.BanListPath)
	if err != nil {
		logger.Fatal("ban list load failed", zap.String("path", cfg.BanListPath), zap.Error(err))
	}

	botSvc, err := bot.New(cfg, logger, lists, settings)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := botSvc.Start(ctx); err != nil {
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			switch closeErr.Code {
			case closeAuthenticationFailed:
				logger.Fatal("gateway rejected the bot token; check DISCORD_TOKEN", zap.Error(err))
			case closeDisallowedIntents:
				logger.Fatal("privileged intents not enabled; turn on Server Members and Message Content in the developer portal", zap.Error(err))
			}
		}
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started",
		zap.Int("identifiers", len(lists.Load().Identifiers)),
		zap.Int("text_fragments", len(lists.Load().TextFragments)))

	healthDone := make(chan struct{})
	go func() {
		defer close(healthDone)
		if cfg.Health.Enabled {
			serveHealth(ctx, cfg.Health.Addr, logger)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")
	<-healthDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	botSvc.Close(shutdownCtx)
}

// startupLogger is used for failures before the configured logger exists.
func startupLogger() *zap.Logger {
	logger, err := config.BuildLogger("info")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return logger
}

// serveHealth runs the health and metrics endpoints until ctx is done. A
// listener failure is logged and leaves the bot running.
func serveHealth(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("health endpoint enabled", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := group.Wait(); err != nil {
		logger.Error("health server stopped; the bot keeps running", zap.String("addr", addr), zap.Error(err))
	}
}
