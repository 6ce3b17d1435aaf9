// attachment.go — построение вложений Google Drive на стороне сервера.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/h4ck3r-coding/csc-portal/content-module/internal/domain/model"
)

// DriveMetadataFetcher — источник размера файла Google Drive.
// Реализуется DriveInspector.
type DriveMetadataFetcher interface {
	FileSize(ctx context.Context, fileID string) (int64, error)
}

// AttachmentService — построение вложений для тонких клиентов.
type AttachmentService struct {
	// fetcher — опционален: без него размер вложения остаётся неизвестным (0)
	fetcher DriveMetadataFetcher
	logger  *slog.Logger
}

// NewAttachmentService создаёт сервис вложений. fetcher может быть nil.
func NewAttachmentService(fetcher DriveMetadataFetcher, logger *slog.Logger) *AttachmentService {
	return &AttachmentService{
		fetcher: fetcher,
		logger:  logger.With(slog.String("component", "attachment_service")),
	}
}

// BuildDriveAttachment строит вложение по ссылке Google Drive.
// Если настроен Drive API, размер заполняется; ошибка запроса размера
// не мешает построению вложения.
func (s *AttachmentService) BuildDriveAttachment(ctx context.Context, displayName, rawURL string) (model.Attachment, error) {
	att, err := model.NewDriveAttachment(displayName, rawURL)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if s.fetcher != nil {
		size, err := s.fetcher.FileSize(ctx, att.FileID)
		if err != nil {
			s.logger.Warn("Не удалось получить размер файла Drive",
				slog.String("file_id", att.FileID),
				slog.String("error", err.Error()),
			)
		} else {
			att.Size = size
		}
	}
	return att, nil
}
