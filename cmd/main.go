package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmarchuk/storefront-core/internal/app"
	"github.com/dmarchuk/storefront-core/internal/config"
	"github.com/dmarchuk/storefront-core/pkg/utils"

	"github.com/joho/godotenv"
)

func main() {
	conf := config.New()
	logger := newLogger(conf.Env)
	panicIfErr("invalid config", conf.Validate())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := waitForAPI(ctx, conf.API.Origin); err != nil {
		// не фатально: сторы зафиксируют ошибки загрузки сами
		logger.Warn("api origin is not reachable", slog.String("origin", conf.API.Origin), slog.Any("error", err))
	}

	core, err := app.New(logger, conf)
	panicIfErr("failed to build client core", err)

	core.Start(ctx)
	<-ctx.Done()
	core.Stop()
}

func init() {
	godotenv.Load()
}

func newLogger(env string) *slog.Logger {
	switch env {
	case "production":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

func panicIfErr(prefix string, err error) {
	if err != nil {
		panic(prefix + ": " + err.Error())
	}
}

// waitForAPI даёт удалённому API время подняться перед стартом ядра.
func waitForAPI(ctx context.Context, origin string) error {
	cfg := utils.RetryConfig{
		InitialDelay: 500 * time.Millisecond,
		MaxAttempts:  5,
		Multiplier:   2,
	}

	httpClient := &http.Client{Timeout: 2 * time.Second}

	return utils.Retry(ctx, cfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/products", nil)
		if err != nil {
			return err
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		return nil
	})
}
