package repository

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/h4ck3r-coding/csc-portal/content-module/internal/domain/model"
)

// MemoryContentRepository — хранилище контента в памяти.
// Используется в демо-режиме (CM_STORAGE_BACKEND=memory) и в тестах.
// Записи хранятся копиями: вызывающий не может изменить состояние хранилища.
type MemoryContentRepository struct {
	mu    sync.RWMutex
	items map[string]*model.ContentItem
}

// NewMemoryContentRepository создаёт пустое хранилище контента в памяти.
func NewMemoryContentRepository() *MemoryContentRepository {
	return &MemoryContentRepository{items: make(map[string]*model.ContentItem)}
}

// Create сохраняет копию записи.
func (r *MemoryContentRepository) Create(_ context.Context, item *model.ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[item.ID]; exists {
		return ErrConflict
	}
	r.items[item.ID] = item.Clone()
	return nil
}

// GetByID возвращает копию записи или ErrNotFound.
func (r *MemoryContentRepository) GetByID(_ context.Context, id string) (*model.ContentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return item.Clone(), nil
}

// List возвращает страницу записей: закреплённые сверху, затем новые.
func (r *MemoryContentRepository) List(_ context.Context, filters ContentListFilters, limit, offset int) ([]*model.ContentItem, error) {
	matched := r.filter(filters)

	slices.SortFunc(matched, func(a, b *model.ContentItem) int {
		if a.IsPinned != b.IsPinned {
			if a.IsPinned {
				return -1
			}
			return 1
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	offset = max(offset, 0)
	if limit <= 0 || offset >= len(matched) {
		return nil, nil
	}
	end := min(offset+limit, len(matched))
	return matched[offset:end], nil
}

// Count возвращает количество записей по фильтрам.
func (r *MemoryContentRepository) Count(_ context.Context, filters ContentListFilters) (int, error) {
	return len(r.filter(filters)), nil
}

// Update заменяет редактируемые поля записи того же типа.
func (r *MemoryContentRepository) Update(_ context.Context, item *model.ContentItem) (*model.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[item.ID]
	if !ok || existing.Type != item.Type {
		return nil, ErrNotFound
	}

	updated := item.Clone()
	updated.CreatedBy = existing.CreatedBy
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	r.items[item.ID] = updated
	return updated.Clone(), nil
}

// Delete удаляет запись указанного типа.
func (r *MemoryContentRepository) Delete(_ context.Context, t model.ContentType, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[id]
	if !ok || existing.Type != t {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

// filter возвращает копии записей, подходящих под фильтры.
func (r *MemoryContentRepository) filter(filters ContentListFilters) []*model.ContentItem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := ""
	if filters.Query != nil {
		query = strings.ToLower(strings.TrimSpace(*filters.Query))
	}

	var result []*model.ContentItem
	for _, item := range r.items {
		if item.Type != filters.Type {
			continue
		}
		if filters.Category != nil && *filters.Category != "" && item.Category != *filters.Category {
			continue
		}
		if filters.Status != nil && *filters.Status != "" && item.Status != *filters.Status {
			continue
		}
		if filters.Featured != nil && item.IsFeatured != *filters.Featured {
			continue
		}
		if filters.Important != nil && item.IsImportant != *filters.Important {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(item.Title), query) &&
			!strings.Contains(strings.ToLower(item.Description), query) &&
			!strings.Contains(strings.ToLower(item.Organization), query) {
			continue
		}
		result = append(result, item.Clone())
	}
	return result
}

// MemoryUploadedFileRepository — реестр загруженных файлов в памяти.
type MemoryUploadedFileRepository struct {
	mu    sync.RWMutex
	files map[string]model.StoredFile
}

// NewMemoryUploadedFileRepository создаёт пустой реестр файлов в памяти.
func NewMemoryUploadedFileRepository() *MemoryUploadedFileRepository {
	return &MemoryUploadedFileRepository{files: make(map[string]model.StoredFile)}
}

// Register сохраняет метаданные файла.
func (r *MemoryUploadedFileRepository) Register(_ context.Context, f *model.StoredFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.files[f.ID]; exists {
		return ErrConflict
	}
	for _, existing := range r.files {
		if existing.StoragePath == f.StoragePath {
			return ErrConflict
		}
	}
	r.files[f.ID] = *f
	return nil
}

// GetByID возвращает файл или ErrNotFound.
func (r *MemoryUploadedFileRepository) GetByID(_ context.Context, id string) (*model.StoredFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}

var (
	_ ContentRepository      = (*MemoryContentRepository)(nil)
	_ UploadedFileRepository = (*MemoryUploadedFileRepository)(nil)
)
