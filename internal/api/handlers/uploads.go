// uploads.go — загрузка файлов-вложений и их раздача.
package handlers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/h4ck3r-coding/csc-portal/content-module/internal/api/contract"
	apierrors "github.com/h4ck3r-coding/csc-portal/content-module/internal/api/errors"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/api/middleware"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/domain/model"
)

// multipartMemory — часть multipart-формы, хранимая в памяти; остальное во временных файлах.
const multipartMemory = 8 << 20

// multipartOverhead — запас на заголовки multipart сверх размера файла.
const multipartOverhead = 1 << 20

// UploadFile — POST /api/v1/uploads.
// Multipart form: file (обязательно).
func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	if maxSize := h.uploads.MaxSize(); maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierrors.FileTooLarge(w, fmt.Sprintf("Файл превышает допустимый размер %d байт", h.uploads.MaxSize()))
			return
		}
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Поле 'file' обязательно")
		return
	}
	defer file.Close()

	uploaded, err := h.uploads.Store(r.Context(), model.LocalFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, middleware.SubjectFromContext(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, contract.UploadResponse{
		Success: true,
		Message: "Файл загружен",
		File:    uploaded,
	})
}

// DownloadFile — GET /api/v1/uploads/{fileId}.
// Поддерживает Range requests (206) и ETag (If-None-Match → 304).
func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	stored, f, err := h.uploads.Open(r.Context(), chi.URLParam(r, "fileId"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", stored.ContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType(dispositionFor(stored.ContentType), map[string]string{"filename": stored.OriginalFilename}))
	if stored.Checksum != "" {
		w.Header().Set("ETag", `"`+stored.Checksum+`"`)
	}
	http.ServeContent(w, r, stored.OriginalFilename, stored.UploadedAt, f)
}

// dispositionFor возвращает inline только для PDF и растровых изображений.
// Остальные типы (HTML, SVG, скрипты) отдаются на скачивание и не
// исполняются в origin API.
func dispositionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "attachment"
	}
	switch {
	case mediaType == "application/pdf":
		return "inline"
	case strings.HasPrefix(mediaType, "image/") && mediaType != "image/svg+xml":
		return "inline"
	default:
		return "attachment"
	}
}
