// content.go — сервис единиц контента (вакансии, формы, объявления).
// Координирует подготовку записи, repository, LRU-кэш и метрики.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/h4ck3r-coding/csc-portal/content-module/internal/domain/model"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/repository"
)

// Prometheus-метрики операций с контентом.
var contentOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cm_content_operations_total",
	Help: "Количество операций с контентом по типу операции, типу контента и результату.",
}, []string{"operation", "content_type", "result"})

// Границы размера страницы списка.
const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// ListResult — страница списка контента.
type ListResult struct {
	// Items — записи страницы
	Items []*model.ContentItem
	// Total — общее количество совпадений
	Total int
	// Limit — запрошенный лимит
	Limit int
	// Offset — текущее смещение
	Offset int
	// HasMore — есть ли ещё записи
	HasMore bool
}

// ContentService — сервис управления контентом портала.
type ContentService struct {
	repo   repository.ContentRepository
	cache  *CacheService
	logger *slog.Logger
	now    func() time.Time
}

// NewContentService создаёт сервис контента.
func NewContentService(
	repo repository.ContentRepository,
	cache *CacheService,
	logger *slog.Logger,
) *ContentService {
	return &ContentService{
		repo:   repo,
		cache:  cache,
		logger: logger.With(slog.String("component", "content_service")),
		now:    time.Now,
	}
}

// Create проверяет и сохраняет новую запись.
// ID и временные метки назначаются сервером, поля из входной записи игнорируются.
func (s *ContentService) Create(ctx context.Context, input *model.ContentItem, createdBy string) (*model.ContentItem, error) {
	item := input.Clone()
	if err := item.Prepare(); err != nil {
		observe("create", item.Type, err)
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	item.ID = uuid.New().String()
	item.CreatedBy = createdBy
	item.CreatedAt = now
	item.UpdatedAt = now

	if err := s.repo.Create(ctx, item); err != nil {
		observe("create", item.Type, err)
		return nil, fmt.Errorf("создание записи контента: %w", err)
	}
	observe("create", item.Type, nil)
	s.cache.Set(item)

	s.logger.Info("Запись контента создана",
		slog.String("id", item.ID),
		slog.String("type", string(item.Type)),
		slog.String("created_by", createdBy),
	)
	return item, nil
}

// Get возвращает запись указанного типа.
// Сначала проверяет LRU-кэш, при промахе — repository, результат кэшируется.
func (s *ContentService) Get(ctx context.Context, t model.ContentType, id string) (*model.ContentItem, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	item, ok := s.cache.Get(id)
	if !ok {
		var err error
		item, err = s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: запись %s", ErrNotFound, id)
			}
			return nil, fmt.Errorf("получение записи контента: %w", err)
		}
		s.cache.Set(item)
	}

	// Запись другого типа по этому пути не видна
	if item.Type != t {
		return nil, fmt.Errorf("%w: запись %s", ErrNotFound, id)
	}
	return item, nil
}

// List возвращает страницу записей по фильтрам.
// limit <= 0 заменяется на DefaultListLimit, больше MaxListLimit обрезается;
// отрицательный offset считается нулём.
func (s *ContentService) List(ctx context.Context, filters repository.ContentListFilters, limit, offset int) (*ListResult, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	offset = max(offset, 0)

	if filters.Category != nil && *filters.Category != "" && !filters.Type.IsValidCategory(*filters.Category) {
		return nil, fmt.Errorf("%w: категория %q недопустима для типа %s", ErrValidation, *filters.Category, filters.Type)
	}
	if filters.Status != nil && *filters.Status != "" && !filters.Status.IsValid() {
		return nil, fmt.Errorf("%w: неизвестный статус %q", ErrValidation, *filters.Status)
	}

	items, err := s.repo.List(ctx, filters, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("получение списка контента: %w", err)
	}
	total, err := s.repo.Count(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("подсчёт контента: %w", err)
	}

	s.logger.Debug("Список контента получен",
		slog.String("type", string(filters.Type)),
		slog.Int("total", total),
		slog.Int("returned", len(items)),
	)

	return &ListResult{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+len(items) < total,
	}, nil
}

// Update проверяет и сохраняет изменения существующей записи.
// Автор и время создания остаются прежними.
func (s *ContentService) Update(ctx context.Context, t model.ContentType, id string, input *model.ContentItem) (*model.ContentItem, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	item := input.Clone()
	item.ID = id
	item.Type = t
	if err := item.Prepare(); err != nil {
		observe("update", t, err)
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	updated, err := s.repo.Update(ctx, item)
	if err != nil {
		observe("update", t, err)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: запись %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("обновление записи контента: %w", err)
	}
	observe("update", t, nil)
	s.cache.Set(updated)

	s.logger.Info("Запись контента обновлена",
		slog.String("id", id),
		slog.String("type", string(t)),
	)
	return updated, nil
}

// Delete удаляет запись указанного типа.
func (s *ContentService) Delete(ctx context.Context, t model.ContentType, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, t, id); err != nil {
		observe("delete", t, err)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: запись %s", ErrNotFound, id)
		}
		return fmt.Errorf("удаление записи контента: %w", err)
	}
	observe("delete", t, nil)
	s.cache.Delete(id)

	s.logger.Info("Запись контента удалена",
		slog.String("id", id),
		slog.String("type", string(t)),
	)
	return nil
}

// Attachment возвращает вложение записи по индексу.
func (s *ContentService) Attachment(ctx context.Context, t model.ContentType, id string, index int) (model.Attachment, error) {
	item, err := s.Get(ctx, t, id)
	if err != nil {
		return model.Attachment{}, err
	}
	if index < 0 || index >= len(item.Attachments) {
		return model.Attachment{}, fmt.Errorf("%w: вложение %d записи %s", ErrNotFound, index, id)
	}
	return item.Attachments[index], nil
}

// validateID проверяет формат UUID записи.
func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: некорректный идентификатор %q", ErrValidation, id)
	}
	return nil
}

// observe учитывает операцию в метрике cm_content_operations_total.
func observe(operation string, t model.ContentType, err error) {
	result := "success"
	switch {
	case err == nil:
	case errors.Is(err, model.ErrValidation):
		result = "invalid"
	case errors.Is(err, repository.ErrNotFound):
		result = "not_found"
	default:
		result = "error"
	}
	contentOperationsTotal.WithLabelValues(operation, string(t), result).Inc()
}
