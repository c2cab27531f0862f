// Package app собирает ядро клиента: явная сборка зависимостей вместо
// глобального состояния, чтобы компоненты жили изолированно и тестировались
// параллельно.
package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dmarchuk/storefront-core/internal/api"
	"github.com/dmarchuk/storefront-core/internal/config"
	"github.com/dmarchuk/storefront-core/internal/nav"
	"github.com/dmarchuk/storefront-core/internal/session"
	"github.com/dmarchuk/storefront-core/internal/store"
	"github.com/dmarchuk/storefront-core/pkg/kv"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const appName = "storefront"

// Core владеет всеми компонентами клиента. Слой представления читает
// состояние через публичные сторы и подписки и диспатчит операции обратно;
// прямого доступа к внутреннему состоянию у него нет.
type Core struct {
	logger *slog.Logger

	Session   *session.Manager
	Catalog   *store.CatalogStore
	Orders    *store.OrderStore
	Favorites *store.FavoritesStore
	Navigator *nav.Navigator

	metricsSrv *http.Server
}

func New(logger *slog.Logger, cfg config.Config) (*Core, error) {
	stateDir := cfg.StateDir
	if stateDir == "" {
		dir, err := kv.DefaultDir(appName)
		if err != nil {
			return nil, err
		}
		stateDir = dir
	}

	state, err := kv.NewFileStore(stateDir)
	if err != nil {
		return nil, err
	}

	client := api.NewClient(cfg.API.Origin, cfg.API.Timeout)
	sess := session.NewManager(logger, client, state)

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Handle("/metrics", promhttp.Handler())

	return &Core{
		logger:    logger,
		Session:   sess,
		Catalog:   store.NewCatalog(logger, client, sess),
		Orders:    store.NewOrders(logger, client, sess),
		Favorites: store.NewFavorites(logger, state),
		Navigator: nav.New(),
		metricsSrv: &http.Server{
			Handler: router,
			Addr:    net.JoinHostPort(cfg.Metrics.Host, cfg.Metrics.Port),
		},
	}, nil
}

// Start восстанавливает сессию, параллельно загружает каталог (первый экран
// всегда показывает товары) и поднимает эндпоинт метрик.
func (c *Core) Start(ctx context.Context) {
	go c.startMetrics()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Session.Restore(ctx)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Catalog.FetchAll(ctx)
	}()
	wg.Wait()

	c.logger.Info("client core started")
}

func (c *Core) startMetrics() {
	c.logger.Info("starting metrics server", slog.String("addr", c.metricsSrv.Addr))
	if err := c.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		c.logger.Error("failed to start metrics server", slog.Any("error", err))
	}
}

const gracefulShutdownTimeout = 5 * time.Second

func (c *Core) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	if err := c.metricsSrv.Shutdown(ctx); err != nil {
		c.logger.Error("failed to shutdown metrics server", slog.Any("error", err))
	}

	c.logger.Info("client core stopped")
}
