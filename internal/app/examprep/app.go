package examprep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/examprep/internal/cache"
	"github.com/magabrotheeeer/examprep/internal/catalog"
	"github.com/magabrotheeeer/examprep/internal/config"
	"github.com/magabrotheeeer/examprep/internal/http/handlers/health"
	"github.com/magabrotheeeer/examprep/internal/http/middlewarectx"
	"github.com/magabrotheeeer/examprep/internal/lib/jwt"
	"github.com/magabrotheeeer/examprep/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/migrations"
	"github.com/magabrotheeeer/examprep/internal/paymentprovider"
	analysissvc "github.com/magabrotheeeer/examprep/internal/services/analysis"
	authsvc "github.com/magabrotheeeer/examprep/internal/services/auth"
	checkoutsvc "github.com/magabrotheeeer/examprep/internal/services/checkout"
	progresssvc "github.com/magabrotheeeer/examprep/internal/services/progress"
	reconcilesvc "github.com/magabrotheeeer/examprep/internal/services/reconcile"
	"github.com/magabrotheeeer/examprep/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// App - HTTP API со всеми зависимостями.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New подключает хранилища и брокер, применяет миграции, загружает каталог и
// собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	store := catalog.New(catalog.NewFileSource(cfg.CatalogPath), logger)
	if err := store.Load(ctx); err != nil {
		logger.Error("catalog not loaded, problem endpoints will report unavailable", sl.Err(err))
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := authsvc.NewService(db, cacheRedis, jwtMaker, cfg.UserCacheTTL, logger)
	progressService := progresssvc.NewService(db, store, logger)
	provider := paymentprovider.NewClient(cfg.Stripe)
	checkoutService := checkoutsvc.NewService(provider, authService, cfg.Prices(), cfg.AppURL, logger)
	reconcileService := reconcilesvc.NewService(provider, db, cacheRedis, rabbitmq.NewPublisher(ch), logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Services{
		Auth:      authService,
		Catalog:   store,
		Progress:  progressService,
		Analyzer:  analysissvc.NewHeuristic(),
		Checkout:  checkoutService,
		Reconcile: reconcileService,
		Limiter:   middlewarectx.NewIPRateLimiter(cfg.RPS, cfg.Burst),
		Health: map[string]health.Pinger{
			"postgres": db,
			"redis":    cacheRedis,
			"catalog": health.PingFunc(func(context.Context) error {
				if store.Len() == 0 {
					return store.Err()
				}
				return nil
			}),
		},
	}, cfg.AllowedOrigins)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run обслуживает запросы до отмены ctx и затем корректно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}
	a.close()
	return err
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
