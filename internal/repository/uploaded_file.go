package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/h4ck3r-coding/csc-portal/content-module/internal/domain/model"
)

// uploadedFileColumns — столбцы таблицы uploaded_files.
const uploadedFileColumns = `id, original_filename, storage_path, content_type,
	size, checksum, uploaded_by, uploaded_at`

// UploadedFileRepository — реестр загруженных файлов.
type UploadedFileRepository interface {
	// Register сохраняет метаданные загруженного файла.
	Register(ctx context.Context, f *model.StoredFile) error
	// GetByID возвращает файл по UUID или ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.StoredFile, error)
}

// uploadedFileRepo — реализация UploadedFileRepository через pgx.
type uploadedFileRepo struct {
	db DBTX
}

// NewUploadedFileRepository создаёт реестр загруженных файлов.
func NewUploadedFileRepository(db DBTX) UploadedFileRepository {
	return &uploadedFileRepo{db: db}
}

// Register вставляет запись в uploaded_files.
func (r *uploadedFileRepo) Register(ctx context.Context, f *model.StoredFile) error {
	query := `
		INSERT INTO uploaded_files (
			id, original_filename, storage_path, content_type,
			size, checksum, uploaded_by, uploaded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		f.ID, f.OriginalFilename, f.StoragePath, f.ContentType,
		f.Size, f.Checksum, f.UploadedBy, f.UploadedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка регистрации файла: %w", err)
	}
	return nil
}

// GetByID возвращает файл по UUID или ErrNotFound.
func (r *uploadedFileRepo) GetByID(ctx context.Context, id string) (*model.StoredFile, error) {
	query := fmt.Sprintf(`SELECT %s FROM uploaded_files WHERE id = $1`, uploadedFileColumns)

	f := &model.StoredFile{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&f.ID, &f.OriginalFilename, &f.StoragePath, &f.ContentType,
		&f.Size, &f.Checksum, &f.UploadedBy, &f.UploadedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}
	return f, nil
}
