// handler.go — основной обработчик Content API.
// Объединяет health, контент, вложения и загрузки; бизнес-логика — в сервисном слое.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apierrors "github.com/h4ck3r-coding/csc-portal/content-module/internal/api/errors"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/domain/model"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/service"
)

// Параметры пагинации списков.
const (
	defaultLimit = service.DefaultListLimit
	maxLimit     = service.MaxListLimit
)

// APIHandler — основной обработчик API Content Module.
type APIHandler struct {
	health      *HealthHandler
	content     *service.ContentService
	uploads     *service.UploadService
	attachments *service.AttachmentService
	logger      *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	content *service.ContentService,
	uploads *service.UploadService,
	attachments *service.AttachmentService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:      health,
		content:     content,
		uploads:     uploads,
		attachments: attachments,
		logger:      logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// paginationDefaults нормализует параметры пагинации.
// Возвращает корректные limit и offset.
func paginationDefaults(limit, offset *int) (limitVal, offsetVal int) {
	l := defaultLimit
	o := 0

	if limit != nil {
		l = min(max(*limit, 1), maxLimit)
	}
	if offset != nil {
		o = max(*offset, 0)
	}
	return l, o
}

// queryInt разбирает целочисленный query-параметр. Отсутствующий — nil.
func queryInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// queryBool разбирает логический query-параметр. Отсутствующий — nil.
func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// queryString возвращает query-параметр. Отсутствующий или пустой — nil.
func queryString(r *http.Request, name string) *string {
	if v := r.URL.Query().Get(name); v != "" {
		return &v
	}
	return nil
}

// handleServiceError преобразует ошибку сервисного слоя в HTTP-ответ.
func (h *APIHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, model.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrFileTooLarge):
		apierrors.FileTooLarge(w, err.Error())
	default:
		h.logger.Error("Внутренняя ошибка",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
