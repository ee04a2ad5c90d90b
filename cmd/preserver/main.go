package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"log/slog"

	"github.com/central-university-dev/go-link-preserver/internal/common/httputil"
	"github.com/central-university-dev/go-link-preserver/internal/common/metrics"
	"github.com/central-university-dev/go-link-preserver/internal/common/middleware"
	"github.com/central-university-dev/go-link-preserver/internal/config"
	"github.com/central-university-dev/go-link-preserver/internal/database"
	"github.com/central-university-dev/go-link-preserver/internal/preserver/backends"
	"github.com/central-university-dev/go-link-preserver/internal/preserver/cache"
	"github.com/central-university-dev/go-link-preserver/internal/preserver/handler"
	"github.com/central-university-dev/go-link-preserver/internal/preserver/notify"
	"github.com/central-university-dev/go-link-preserver/internal/preserver/repository"
	"github.com/central-university-dev/go-link-preserver/internal/preserver/scheduler"
	"github.com/central-university-dev/go-link-preserver/internal/preserver/service"
	"github.com/central-university-dev/go-link-preserver/internal/preserver/storage"
	"github.com/central-university-dev/go-link-preserver/internal/preserver/worker"
	"github.com/central-university-dev/go-link-preserver/pkg"
	"github.com/central-university-dev/go-link-preserver/pkg/txs"
)

func gracefulShutdown(
	ctx context.Context,
	server *http.Server,
	pool *worker.Pool,
	sweep *scheduler.SweepScheduler,
	cancel context.CancelFunc,
	stopCh <-chan struct{},
	appLogger *slog.Logger,
) {
	<-stopCh
	appLogger.Info("Получен сигнал завершения")

	if sweep != nil {
		sweep.Stop()
	}

	pool.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Ошибка при остановке HTTP сервера",
			"error", err,
		)
	}

	cancel()

	appLogger.Info("Сервис успешно остановлен")
}

func startHTTPServer(server *http.Server, port int, stopCh chan<- struct{}, appLogger *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLogger.Info("Получен системный сигнал",
			"signal", sig.String(),
		)
		close(stopCh)
	}()

	go func() {
		appLogger.Info("Запуск HTTP сервера сервиса сохранения",
			"port", port,
		)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Ошибка при запуске HTTP сервера",
				"error", err,
			)
			close(stopCh)
		}
	}()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка запуска сервиса: %v\n", err)
		os.Exit(1)
	}
}

//nolint:funlen // Длина функции обусловлена необходимостью последовательной инициализации всех компонентов.
func run() error {
	appLogger := pkg.NewLogger(os.Stdout)

	cfg := config.LoadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewPostgresDB(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Ошибка при подключении к базе данных",
			"error", err,
		)

		return fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	defer db.Close()

	txManager := txs.NewTxManager(db.Pool, appLogger)

	repoFactory := repository.NewFactory(db, cfg, txManager, appLogger)

	linkRepo, err := repoFactory.CreateLinkRepository()
	if err != nil {
		appLogger.Error("Ошибка при создании репозитория ссылок",
			"error", err,
		)

		return err
	}

	collectionRepo, err := repoFactory.CreateCollectionRepository()
	if err != nil {
		appLogger.Error("Ошибка при создании репозитория коллекций",
			"error", err,
		)

		return err
	}

	store, err := storage.NewFileStore(cfg.ArchiveRootDir, cfg.MaxArtifactSize, appLogger)
	if err != nil {
		appLogger.Error("Ошибка при инициализации хранилища артефактов",
			"error", err,
		)

		return err
	}

	externalClient := httputil.CreateResilientHTTPClient(cfg, appLogger, "preserver")

	renderer := backends.NewRenderer(cfg.RenderConcurrency, appLogger)

	registry := backends.NewRegistry(
		backends.NewScreenshotGenerator(renderer, appLogger),
		backends.NewPDFGenerator(renderer, appLogger),
		backends.NewMonolithGenerator(externalClient, appLogger),
		backends.NewReadableGenerator(store, appLogger),
		backends.NewWaybackGenerator(externalClient, cfg.WaybackBaseURL, appLogger),
	)

	fetcher := backends.NewHTTPPageFetcher(externalClient, appLogger)

	notifierFactory := notify.NewNotifierFactory(cfg, appLogger)

	eventNotifier, err := notifierFactory.CreateNotifier()
	if err != nil {
		appLogger.Error("Ошибка при создании нотификатора",
			"error", err,
		)

		return err
	}

	var linkCache *cache.RedisLinkCache

	if cfg.CacheEnabled {
		linkCache, err = cache.NewRedisLinkCache(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB, cfg.RedisCacheTTL, appLogger)
		if err != nil {
			appLogger.Warn("Не удалось подключиться к Redis, продолжаем без кэша",
				"error", err,
			)

			linkCache = nil
		} else {
			defer func() { _ = linkCache.Close() }()
		}
	}

	var workerCache worker.StatusCache

	var serviceCache service.LinkCache

	if linkCache != nil {
		workerCache = linkCache
		serviceCache = linkCache
	}

	processor := worker.NewProcessor(
		linkRepo,
		collectionRepo,
		store,
		registry,
		fetcher,
		eventNotifier,
		workerCache,
		cfg.RetryCount,
		cfg.RetryBackoff,
		cfg.FormatTimeout,
		appLogger,
	)

	pool := worker.NewPool(processor, cfg.WorkerCount, cfg.QueueCapacity, appLogger)
	pool.Start(ctx)

	var sweep *scheduler.SweepScheduler

	if cfg.SweepEnabled {
		sweep = scheduler.NewSweepScheduler(
			linkRepo,
			collectionRepo,
			pool,
			cfg.SweepInterval,
			cfg.DatabaseBatchSize,
			appLogger,
		)
		sweep.Start()
	} else {
		appLogger.Info("Фоновая зачистка отключена в конфигурации")
	}

	preserverService := service.NewPreserverService(
		linkRepo,
		collectionRepo,
		store,
		pool,
		serviceCache,
		cfg.MaxUploadSize,
		appLogger,
	)

	maintenanceService := service.NewMaintenanceService(
		linkRepo,
		store,
		pool,
		txManager,
		cfg.DatabaseBatchSize,
		appLogger,
	)

	preserverHandler := handler.NewPreserverHandler(preserverService, maintenanceService, cfg.AdminUserIDs, appLogger)

	rateLimiter := middleware.NewRateLimiterMiddleware(
		ctx,
		cfg.RateLimitRequests,
		cfg.RateLimitWindow,
		appLogger,
	)

	metricsMiddleware := middleware.NewMetricsMiddleware("preserver")

	router := handler.NewRouter(preserverHandler, rateLimiter, metricsMiddleware)

	metricsServer := metrics.NewMetricsServer(cfg.MetricsPort, appLogger)

	go func() {
		if err := metricsServer.Start(ctx); err != nil {
			appLogger.Error("Ошибка сервера метрик",
				"error", err,
			)
		}
	}()

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopCh := make(chan struct{})

	startHTTPServer(httpServer, cfg.ServerPort, stopCh, appLogger)

	gracefulShutdown(ctx, httpServer, pool, sweep, cancel, stopCh, appLogger)

	return nil
}
