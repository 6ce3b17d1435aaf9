// upload.go — сервис загрузки вложений.
// Сохраняет файл на диск, регистрирует его и выдаёт публичный URL.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/h4ck3r-coding/csc-portal/content-module/internal/domain/model"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/repository"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/storage/filestore"
)

// UploadsPath — путь раздачи загруженных файлов относительно PublicBaseURL.
const UploadsPath = "/api/v1/uploads/"

// defaultContentType — MIME-тип файла, если его не удалось определить.
const defaultContentType = "application/octet-stream"

// Prometheus-метрики загрузок.
var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cm_uploads_total",
		Help: "Количество загрузок файлов по результату.",
	}, []string{"result"})
	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_upload_bytes_total",
		Help: "Общий объём принятых файлов в байтах.",
	})
)

// UploadService — сервис загрузки файлов-вложений.
// Реализует model.Uploader для редактора, работающего в том же процессе.
type UploadService struct {
	store         *filestore.FileStore
	repo          repository.UploadedFileRepository
	maxSize       int64
	publicBaseURL string
	logger        *slog.Logger
}

// NewUploadService создаёт сервис загрузки.
// maxSize — максимальный размер файла в байтах, publicBaseURL — внешний
// адрес сервиса без завершающего «/».
func NewUploadService(
	store *filestore.FileStore,
	repo repository.UploadedFileRepository,
	maxSize int64,
	publicBaseURL string,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		store:         store,
		repo:          repo,
		maxSize:       maxSize,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger.With(slog.String("component", "upload_service")),
	}
}

// Store сохраняет файл и возвращает его публичное описание.
//
// Поток:
//  1. Проверка имени и заявленного размера
//  2. Запись на диск (streaming + SHA-256, ограничение размера)
//  3. Регистрация в реестре загрузок
//
// При ошибке регистрации записанный файл удаляется.
func (s *UploadService) Store(ctx context.Context, file model.LocalFile, uploadedBy string) (*model.UploadedFile, error) {
	name := strings.TrimSpace(file.Name)
	if name == "" {
		uploadsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: не указано имя файла", ErrValidation)
	}
	if file.Body == nil {
		uploadsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: нет содержимого файла", ErrValidation)
	}
	if s.maxSize > 0 && file.Size > s.maxSize {
		uploadsTotal.WithLabelValues("too_large").Inc()
		return nil, fmt.Errorf("%w: %d байт, максимум %d", ErrFileTooLarge, file.Size, s.maxSize)
	}

	saved, err := s.store.Save(file.Body, name, s.maxSize)
	if err != nil {
		if errors.Is(err, filestore.ErrTooLarge) {
			uploadsTotal.WithLabelValues("too_large").Inc()
			return nil, fmt.Errorf("%w: максимум %d байт", ErrFileTooLarge, s.maxSize)
		}
		uploadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("сохранение файла: %w", err)
	}

	stored := &model.StoredFile{
		ID:               uuid.New().String(),
		OriginalFilename: name,
		StoragePath:      saved.StoragePath,
		ContentType:      detectContentType(file.ContentType, name),
		Size:             saved.Size,
		Checksum:         saved.Checksum,
		UploadedBy:       uploadedBy,
		UploadedAt:       time.Now().UTC(),
	}
	if err := s.repo.Register(ctx, stored); err != nil {
		if delErr := s.store.Delete(saved.StoragePath); delErr != nil {
			s.logger.Error("Ошибка удаления файла после неудачной регистрации",
				slog.String("storage_path", saved.StoragePath),
				slog.String("error", delErr.Error()),
			)
		}
		uploadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("регистрация файла: %w", err)
	}

	uploadsTotal.WithLabelValues("success").Inc()
	uploadBytesTotal.Add(float64(saved.Size))

	s.logger.Info("Файл загружен",
		slog.String("file_id", stored.ID),
		slog.String("filename", name),
		slog.Int64("size", saved.Size),
		slog.String("uploaded_by", uploadedBy),
	)

	return &model.UploadedFile{
		URL:  s.FileURL(stored.ID),
		Name: name,
		Type: stored.ContentType,
		Size: saved.Size,
	}, nil
}

// Upload реализует model.Uploader: загрузка без указания автора.
func (s *UploadService) Upload(ctx context.Context, file model.LocalFile) (*model.UploadedFile, error) {
	return s.Store(ctx, file, "")
}

// Open возвращает метаданные и открытый файл для раздачи.
// Вызывающий обязан закрыть файл.
func (s *UploadService) Open(ctx context.Context, id string) (*model.StoredFile, *os.File, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil, fmt.Errorf("%w: файл %s", ErrNotFound, id)
	}

	stored, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: файл %s", ErrNotFound, id)
		}
		return nil, nil, fmt.Errorf("получение файла: %w", err)
	}

	f, err := s.store.Open(stored.StoragePath)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			s.logger.Warn("Файл зарегистрирован, но отсутствует на диске",
				slog.String("file_id", id),
				slog.String("storage_path", stored.StoragePath),
			)
			return nil, nil, fmt.Errorf("%w: файл %s", ErrNotFound, id)
		}
		return nil, nil, fmt.Errorf("открытие файла: %w", err)
	}
	return stored, f, nil
}

// MaxSize возвращает ограничение размера файла в байтах (0 — без ограничения).
func (s *UploadService) MaxSize() int64 {
	return s.maxSize
}

// FileURL возвращает публичный URL загруженного файла.
func (s *UploadService) FileURL(id string) string {
	return s.publicBaseURL + UploadsPath + id
}

// detectContentType определяет MIME-тип: заявленный клиентом,
// иначе по расширению имени файла.
func detectContentType(declared, filename string) string {
	if declared != "" && declared != defaultContentType {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
			return mediaType
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}
	if declared != "" {
		return declared
	}
	return defaultContentType
}

var _ model.Uploader = (*UploadService)(nil)
