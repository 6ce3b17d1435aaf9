// Пакет server — HTTP-сервер Content Module с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/h4ck3r-coding/csc-portal/content-module/internal/api/handlers"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/api/middleware"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/config"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/domain/rbac"
)

// Server — HTTP-сервер Content Module.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
// writeAuth — аутентификация изменяющих маршрутов (JWTAuth.Middleware или NoAuth).
func New(cfg *config.Config, logger *slog.Logger, handler *handlers.APIHandler, writeAuth func(http.Handler) http.Handler) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(handler, logger, cfg.CORSAllowedOrigins, writeAuth),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает chi-router Content API.
//
// Маршруты:
//   - /health/live, /health/ready, /metrics — без аутентификации
//   - GET /api/v1/... — чтение контента, публично
//   - POST/PUT/DELETE /api/v1/... — роль admin или scope content:write
func NewRouter(
	handler *handlers.APIHandler,
	logger *slog.Logger,
	corsOrigins []string,
	writeAuth func(http.Handler) http.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(chimw.RequestID)
	router.Use(chimw.Recoverer)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "ETag"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler)

	router.Get("/health/live", handler.HealthLive)
	router.Get("/health/ready", handler.HealthReady)
	router.Get("/metrics", handler.GetMetrics)

	router.Route("/api/v1", func(r chi.Router) {
		// Публичное чтение
		r.Get("/openapi.yaml", handler.GetOpenAPI)
		r.Get("/uploads/{fileId}", handler.DownloadFile)
		r.Get("/{contentType}", handler.ListContent)
		r.Get("/{contentType}/{id}", handler.GetContent)
		r.Get("/{contentType}/{id}/attachments/{index}/{action}", handler.AttachmentAction)

		// Изменение контента
		r.Group(func(r chi.Router) {
			r.Use(writeAuth)
			r.Use(middleware.RequireRoleOrScope(
				[]string{rbac.RoleAdmin},
				[]string{middleware.ScopeContentWrite},
			))

			r.Post("/uploads", handler.UploadFile)
			r.Post("/attachments/drive", handler.BuildDriveAttachment)
			r.Post("/{contentType}", handler.CreateContent)
			r.Put("/{contentType}/{id}", handler.UpdateContent)
			r.Delete("/{contentType}/{id}", handler.DeleteContent)
		})
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
