package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/h4ck3r-coding/csc-portal/content-module/internal/domain/model"
)

// contentColumns — список столбцов таблицы content_items для SELECT-запросов.
const contentColumns = `id, content_type, title, description, category, status,
	deadline, attachments, requirements, organization, location, salary,
	experience, is_featured, is_important, is_pinned, created_by,
	created_at, updated_at`

// contentOrderBy — порядок выдачи: закреплённые сверху, затем новые.
const contentOrderBy = "ORDER BY is_pinned DESC, created_at DESC, id"

// ContentListFilters — фильтры списка контента.
// Type обязателен; указатели — nil = фильтр не применяется.
type ContentListFilters struct {
	// Type — тип контента
	Type model.ContentType
	// Category — фильтр по категории (exact match)
	Category *string
	// Status — фильтр по статусу
	Status *model.Status
	// Query — подстрока в заголовке, описании или организации
	Query *string
	// Featured — только «горячие» вакансии
	Featured *bool
	// Important — только важные формы/объявления
	Important *bool
}

// ContentRepository — интерфейс хранилища единиц контента.
type ContentRepository interface {
	// Create сохраняет новую запись. ID и временные метки уже заполнены.
	Create(ctx context.Context, item *model.ContentItem) error
	// GetByID возвращает запись по UUID или ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.ContentItem, error)
	// List возвращает страницу записей по фильтрам.
	List(ctx context.Context, filters ContentListFilters, limit, offset int) ([]*model.ContentItem, error)
	// Count возвращает количество записей по фильтрам.
	Count(ctx context.Context, filters ContentListFilters) (int, error)
	// Update заменяет редактируемые поля записи того же типа.
	// Возвращает обновлённую запись или ErrNotFound.
	Update(ctx context.Context, item *model.ContentItem) (*model.ContentItem, error)
	// Delete удаляет запись указанного типа. ErrNotFound, если записи нет.
	Delete(ctx context.Context, t model.ContentType, id string) error
}

// contentRepo — реализация ContentRepository через pgx.
type contentRepo struct {
	db DBTX
}

// NewContentRepository создаёт репозиторий контента.
func NewContentRepository(db DBTX) ContentRepository {
	return &contentRepo{db: db}
}

// Create вставляет запись в content_items.
func (r *contentRepo) Create(ctx context.Context, item *model.ContentItem) error {
	attachments, requirements, err := encodeLists(item)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO content_items (
			id, content_type, title, description, category, status,
			deadline, attachments, requirements, organization, location, salary,
			experience, is_featured, is_important, is_pinned, created_by,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19)`

	_, err = r.db.Exec(ctx, query,
		item.ID, string(item.Type), item.Title, item.Description, item.Category, string(item.Status),
		item.Deadline, attachments, requirements, item.Organization, item.Location, item.Salary,
		item.Experience, item.IsFeatured, item.IsImportant, item.IsPinned, item.CreatedBy,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания записи контента: %w", err)
	}
	return nil
}

// GetByID возвращает запись по UUID или ErrNotFound.
func (r *contentRepo) GetByID(ctx context.Context, id string) (*model.ContentItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM content_items WHERE id = $1`, contentColumns)

	item, err := scanContentItem(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи контента: %w", err)
	}
	return item, nil
}

// List возвращает страницу записей в порядке contentOrderBy.
func (r *contentRepo) List(ctx context.Context, filters ContentListFilters, limit, offset int) ([]*model.ContentItem, error) {
	where, args := buildContentWhere(filters, 1)
	argNum := len(args) + 1

	query := fmt.Sprintf(
		`SELECT %s FROM content_items %s %s LIMIT $%d OFFSET $%d`,
		contentColumns, where, contentOrderBy, argNum, argNum+1,
	)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка контента: %w", err)
	}
	defer rows.Close()

	var result []*model.ContentItem
	for rows.Next() {
		item, err := scanContentItem(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи контента: %w", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

// Count возвращает количество записей по фильтрам (без LIMIT/OFFSET).
func (r *contentRepo) Count(ctx context.Context, filters ContentListFilters) (int, error) {
	where, args := buildContentWhere(filters, 1)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM content_items %s`, where)

	var total int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта контента: %w", err)
	}
	return total, nil
}

// Update заменяет редактируемые поля. created_by и created_at не меняются,
// updated_at выставляет триггер.
func (r *contentRepo) Update(ctx context.Context, item *model.ContentItem) (*model.ContentItem, error) {
	attachments, requirements, err := encodeLists(item)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		UPDATE content_items SET
			title = $3, description = $4, category = $5, status = $6,
			deadline = $7, attachments = $8::jsonb, requirements = $9,
			organization = $10, location = $11, salary = $12, experience = $13,
			is_featured = $14, is_important = $15, is_pinned = $16
		WHERE id = $1 AND content_type = $2
		RETURNING %s`, contentColumns)

	updated, err := scanContentItem(r.db.QueryRow(ctx, query,
		item.ID, string(item.Type), item.Title, item.Description, item.Category, string(item.Status),
		item.Deadline, attachments, requirements,
		item.Organization, item.Location, item.Salary, item.Experience,
		item.IsFeatured, item.IsImportant, item.IsPinned,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления записи контента: %w", err)
	}
	return updated, nil
}

// Delete удаляет запись указанного типа.
func (r *contentRepo) Delete(ctx context.Context, t model.ContentType, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM content_items WHERE id = $1 AND content_type = $2`, id, string(t))
	if err != nil {
		return fmt.Errorf("ошибка удаления записи контента: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanContentItem сканирует строку в ContentItem.
// Вложения хранятся как JSONB и разбираются после сканирования.
func scanContentItem(row pgx.Row) (*model.ContentItem, error) {
	var (
		item            model.ContentItem
		contentType     string
		status          string
		attachmentsJSON []byte
	)
	err := row.Scan(
		&item.ID, &contentType, &item.Title, &item.Description, &item.Category, &status,
		&item.Deadline, &attachmentsJSON, &item.Requirements, &item.Organization, &item.Location, &item.Salary,
		&item.Experience, &item.IsFeatured, &item.IsImportant, &item.IsPinned, &item.CreatedBy,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.Type = model.ContentType(contentType)
	item.Status = model.Status(status)

	if len(attachmentsJSON) > 0 {
		if err := json.Unmarshal(attachmentsJSON, &item.Attachments); err != nil {
			return nil, fmt.Errorf("ошибка разбора вложений записи %s: %w", item.ID, err)
		}
	}
	return &item, nil
}

// encodeLists готовит вложения (JSON) и требования (TEXT[], не NULL) к записи.
func encodeLists(item *model.ContentItem) (attachments []byte, requirements []string, err error) {
	list := item.Attachments
	if list == nil {
		list = []model.Attachment{}
	}
	attachments, err = json.Marshal(list)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка сериализации вложений: %w", err)
	}

	requirements = item.Requirements
	if requirements == nil {
		requirements = []string{}
	}
	return attachments, requirements, nil
}

// buildContentWhere строит WHERE-условие и аргументы для списка контента.
// startArg — номер первого $-параметра.
func buildContentWhere(filters ContentListFilters, startArg int) (whereClause string, args []any) {
	conditions := []string{fmt.Sprintf("content_type = $%d", startArg)}
	args = append(args, string(filters.Type))
	argNum := startArg + 1

	if filters.Category != nil && *filters.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argNum))
		args = append(args, *filters.Category)
		argNum++
	}

	if filters.Status != nil && *filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, string(*filters.Status))
		argNum++
	}

	// Подстрока ищется в заголовке, описании и организации одним параметром
	if filters.Query != nil && strings.TrimSpace(*filters.Query) != "" {
		conditions = append(conditions, fmt.Sprintf(
			`(title ILIKE $%[1]d ESCAPE '\' OR description ILIKE $%[1]d ESCAPE '\' OR organization ILIKE $%[1]d ESCAPE '\')`, argNum))
		args = append(args, "%"+escapeLike(strings.TrimSpace(*filters.Query))+"%")
		argNum++
	}

	if filters.Featured != nil {
		conditions = append(conditions, fmt.Sprintf("is_featured = $%d", argNum))
		args = append(args, *filters.Featured)
		argNum++
	}

	if filters.Important != nil {
		conditions = append(conditions, fmt.Sprintf("is_important = $%d", argNum))
		args = append(args, *filters.Important)
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// likeEscaper экранирует спецсимволы LIKE: подстрока ищется буквально.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
