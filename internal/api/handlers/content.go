// content.go — обработчики CRUD для вакансий, форм и объявлений.
// Тип контента задаётся сегментом пути: /api/v1/{jobs|forms|notices}.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/h4ck3r-coding/csc-portal/content-module/internal/api/contract"
	apierrors "github.com/h4ck3r-coding/csc-portal/content-module/internal/api/errors"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/api/middleware"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/domain/model"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/repository"
)

// maxJSONBodySize — ограничение тела JSON-запроса (1 МБ).
const maxJSONBodySize = 1 << 20

// contentTypeParam извлекает тип контента из пути.
// Допускаются только сегменты во множественном числе.
func contentTypeParam(r *http.Request) (model.ContentType, bool) {
	segment := chi.URLParam(r, "contentType")
	t, err := model.ParseContentType(segment)
	if err != nil || t.PathSegment() != segment {
		return "", false
	}
	return t, true
}

// ListContent — GET /api/v1/{contentType}.
func (h *APIHandler) ListContent(w http.ResponseWriter, r *http.Request) {
	t, ok := contentTypeParam(r)
	if !ok {
		apierrors.NotFound(w, "Неизвестный тип контента")
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		apierrors.ValidationError(w, "Некорректный параметр limit")
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		apierrors.ValidationError(w, "Некорректный параметр offset")
		return
	}
	featured, err := queryBool(r, "featured")
	if err != nil {
		apierrors.ValidationError(w, "Некорректный параметр featured")
		return
	}
	important, err := queryBool(r, "important")
	if err != nil {
		apierrors.ValidationError(w, "Некорректный параметр important")
		return
	}

	filters := repository.ContentListFilters{
		Type:      t,
		Category:  queryString(r, "category"),
		Query:     queryString(r, "q"),
		Featured:  featured,
		Important: important,
	}
	if s := queryString(r, "status"); s != nil {
		status := model.Status(*s)
		filters.Status = &status
	}

	l, o := paginationDefaults(limit, offset)
	result, err := h.content.List(r.Context(), filters, l, o)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	items := make([]contract.ContentItem, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, contract.FromModel(item))
	}
	writeJSON(w, http.StatusOK, contract.ListResponse{
		Success: true,
		Items:   items,
		Total:   result.Total,
		Limit:   result.Limit,
		Offset:  result.Offset,
		HasMore: result.HasMore,
	})
}

// GetContent — GET /api/v1/{contentType}/{id}.
func (h *APIHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	t, ok := contentTypeParam(r)
	if !ok {
		apierrors.NotFound(w, "Неизвестный тип контента")
		return
	}

	item, err := h.content.Get(r.Context(), t, chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	out := contract.FromModel(item)
	writeJSON(w, http.StatusOK, contract.ItemResponse{Success: true, Item: &out})
}

// CreateContent — POST /api/v1/{contentType}.
func (h *APIHandler) CreateContent(w http.ResponseWriter, r *http.Request) {
	t, ok := contentTypeParam(r)
	if !ok {
		apierrors.NotFound(w, "Неизвестный тип контента")
		return
	}

	body, ok := decodeContentItem(w, r)
	if !ok {
		return
	}

	created, err := h.content.Create(r.Context(), body.ToModel(t), middleware.SubjectFromContext(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	out := contract.FromModel(created)
	writeJSON(w, http.StatusCreated, contract.ItemResponse{
		Success: true,
		Message: fmt.Sprintf("Запись «%s» создана", created.Title),
		Item:    &out,
	})
}

// UpdateContent — PUT /api/v1/{contentType}/{id}.
func (h *APIHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	t, ok := contentTypeParam(r)
	if !ok {
		apierrors.NotFound(w, "Неизвестный тип контента")
		return
	}

	body, ok := decodeContentItem(w, r)
	if !ok {
		return
	}

	updated, err := h.content.Update(r.Context(), t, chi.URLParam(r, "id"), body.ToModel(t))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	out := contract.FromModel(updated)
	writeJSON(w, http.StatusOK, contract.ItemResponse{
		Success: true,
		Message: fmt.Sprintf("Запись «%s» обновлена", updated.Title),
		Item:    &out,
	})
}

// DeleteContent — DELETE /api/v1/{contentType}/{id}.
func (h *APIHandler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	t, ok := contentTypeParam(r)
	if !ok {
		apierrors.NotFound(w, "Неизвестный тип контента")
		return
	}

	if err := h.content.Delete(r.Context(), t, chi.URLParam(r, "id")); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contract.DeleteResponse{Success: true, Message: "Запись удалена"})
}

// AttachmentAction — GET /api/v1/{contentType}/{id}/attachments/{index}/{action}.
// Перенаправляет на адрес файла в зависимости от источника вложения.
func (h *APIHandler) AttachmentAction(w http.ResponseWriter, r *http.Request) {
	t, ok := contentTypeParam(r)
	if !ok {
		apierrors.NotFound(w, "Неизвестный тип контента")
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		apierrors.NotFound(w, "Вложение не найдено")
		return
	}
	action, err := model.ParseAttachmentAction(chi.URLParam(r, "action"))
	if err != nil {
		apierrors.NotFound(w, err.Error())
		return
	}

	att, err := h.content.Attachment(r.Context(), t, chi.URLParam(r, "id"), index)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	target, err := att.ActionURL(action)
	if err != nil || target == "" {
		h.logger.Warn("Вложение без адреса для действия",
			slog.String("id", chi.URLParam(r, "id")),
			slog.Int("index", index),
			slog.String("action", string(action)),
		)
		apierrors.NotFound(w, "Адрес вложения недоступен")
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// decodeContentItem читает JSON-тело запроса. При ошибке ответ уже записан.
func decodeContentItem(w http.ResponseWriter, r *http.Request) (*contract.ContentItem, bool) {
	var body contract.ContentItem
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodySize)).Decode(&body); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			apierrors.FileTooLarge(w, "Тело запроса слишком большое")
		case errors.Is(err, io.EOF):
			apierrors.ValidationError(w, "Пустое тело запроса")
		default:
			apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		}
		return nil, false
	}
	return &body, true
}
