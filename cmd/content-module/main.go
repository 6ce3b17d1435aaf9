// Точка входа Content Module — сервис контента портала CSC.
// Загружает конфигурацию, выбирает хранилище контента (PostgreSQL или память),
// создаёт сервисный слой и API handlers, запускает мониторинг зависимостей
// и HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/h4ck3r-coding/csc-portal/content-module/internal/api/contract"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/api/handlers"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/api/middleware"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/config"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/database"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/repository"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/server"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/service"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/storage/filestore"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. .env (если есть) и конфигурация из переменных окружения
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Ошибка чтения .env", slog.String("error", err.Error()))
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Content Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("storage_backend", cfg.StorageBackend),
	)

	// 3. Проверка встроенного OpenAPI контракта
	if _, err := contract.LoadOpenAPI(ctx); err != nil {
		logger.Error("Некорректный OpenAPI контракт", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Хранилище контента
	var (
		contentRepo repository.ContentRepository
		fileRepo    repository.UploadedFileRepository
		dephTargets service.DephealthTargets
	)
	checkers := make(map[string]handlers.ReadinessChecker)

	switch cfg.StorageBackend {
	case config.StorageBackendPostgres:
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
			os.Exit(1)
		}

		pool, err := database.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Error("Ошибка подключения к БД", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()

		contentRepo = repository.NewContentRepository(pool)
		fileRepo = repository.NewUploadedFileRepository(pool)
		checkers["postgresql"] = database.NewReadinessChecker(pool)

		pgDB := stdlib.OpenDBFromPool(pool)
		defer pgDB.Close()
		dephTargets.DB = pgDB
		dephTargets.PostgresURL = cfg.DatabaseURL()

	case config.StorageBackendMemory:
		contentRepo = repository.NewMemoryContentRepository()
		fileRepo = repository.NewMemoryUploadedFileRepository()
		logger.Warn("Контент хранится в памяти и будет потерян при перезапуске")
	}

	if cfg.SeedDemo {
		if _, err := repository.SeedDemoIfEmpty(ctx, contentRepo, logger); err != nil {
			logger.Error("Ошибка загрузки демо-контента", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// 5. Файловое хранилище вложений
	store, err := filestore.New(cfg.UploadDir)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища файлов",
			slog.String("dir", cfg.UploadDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// 6. Сервисный слой
	cache := service.NewCacheService(cfg.CacheMaxSize, cfg.CacheTTL)
	contentSvc := service.NewContentService(contentRepo, cache, logger)
	uploadSvc := service.NewUploadService(store, fileRepo, cfg.MaxUploadSize, cfg.PublicBaseURL, logger)

	var fetcher service.DriveMetadataFetcher
	if cfg.DriveCredentialsFile != "" {
		inspector, err := service.NewDriveInspector(ctx, cfg.DriveCredentialsFile, cfg.DriveLookupTimeout, logger)
		if err != nil {
			logger.Error("Ошибка инициализации Google Drive API", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fetcher = inspector
		logger.Info("Размер вложений Google Drive запрашивается через Drive API")
	}
	attachmentSvc := service.NewAttachmentService(fetcher, logger)

	// 7. Аутентификация изменяющих маршрутов
	var writeAuth func(http.Handler) http.Handler
	if cfg.AuthDisabled {
		logger.Warn("JWT-аутентификация отключена: изменения контента доступны без токена",
			slog.String("subject", middleware.DevSubject),
		)
		writeAuth = middleware.NoAuth()
	} else {
		jwtAuth, err := middleware.NewJWTAuth(
			cfg.JWTJWKSURL,
			cfg.CACertPath,
			cfg.JWTIssuer,
			cfg.RoleAdminGroups,
			cfg.RoleReadonlyGroups,
			cfg.JWKSClientTimeout,
			cfg.JWKSRefreshInterval,
			cfg.JWTLeeway,
			logger,
		)
		if err != nil {
			logger.Error("Ошибка инициализации JWT", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer jwtAuth.Close()
		writeAuth = jwtAuth.Middleware()

		kcChecker, err := middleware.NewKeycloakReadinessChecker(cfg.JWTJWKSURL, cfg.CACertPath, cfg.KeycloakReadinessTimeout)
		if err != nil {
			logger.Error("Ошибка инициализации Keycloak checker", slog.String("error", err.Error()))
			os.Exit(1)
		}
		checkers["keycloak"] = kcChecker
		dephTargets.KeycloakJWKSURL = cfg.JWTJWKSURL
	}

	// 8. Мониторинг зависимостей (topologymetrics)
	dephealthSvc, err := service.NewDephealthService("content-module", cfg.DephealthGroup, dephTargets, cfg.DephealthCheckInterval, logger)
	switch {
	case errors.Is(err, service.ErrNoDependencies):
		logger.Info("Мониторинг зависимостей не запущен: нет внешних зависимостей")
	case err != nil:
		logger.Warn("Ошибка инициализации topologymetrics, мониторинг отключён",
			slog.String("error", err.Error()),
		)
	default:
		if err := dephealthSvc.Start(ctx); err != nil {
			logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
		} else {
			defer dephealthSvc.Stop()
		}
	}

	// 9. API handlers и HTTP-сервер
	apiHandler := handlers.NewAPIHandler(
		handlers.NewHealthHandler(checkers),
		contentSvc,
		uploadSvc,
		attachmentSvc,
		logger,
	)
	srv := server.New(cfg, logger, apiHandler, writeAuth)

	// 10. Запуск сервера (блокирующий вызов с graceful shutdown)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		cancel()
		os.Exit(1) //nolint:gocritic // defer не нужен при аварийном завершении
	}

	logger.Info("Content Module остановлен")
}
