// Пакет contract — проводные типы Content API и встроенный OpenAPI контракт.
// Используется и сервером (handlers), и клиентом (contentclient).
package contract

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/h4ck3r-coding/csc-portal/content-module/internal/domain/model"
)

// ContentItem — единица контента в формате Content API.
type ContentItem struct {
	ID           string              `json:"id,omitempty"`
	Type         string              `json:"type,omitempty"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Category     string              `json:"category,omitempty"`
	Status       string              `json:"status,omitempty"`
	Deadline     *openapi_types.Date `json:"deadline,omitempty"`
	Attachments  []model.Attachment  `json:"attachments"`
	Requirements []string            `json:"requirements"`

	Organization string `json:"organization,omitempty"`
	Location     string `json:"location,omitempty"`
	Salary       string `json:"salary,omitempty"`
	Experience   string `json:"experience,omitempty"`
	IsFeatured   bool   `json:"isFeatured"`

	IsImportant bool `json:"isImportant"`
	IsPinned    bool `json:"isPinned"`

	CreatedBy string     `json:"createdBy,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// FromModel преобразует доменную модель в проводной формат.
func FromModel(item *model.ContentItem) ContentItem {
	out := ContentItem{
		ID:           item.ID,
		Type:         string(item.Type),
		Title:        item.Title,
		Description:  item.Description,
		Category:     item.Category,
		Status:       string(item.Status),
		Attachments:  item.Attachments,
		Requirements: item.Requirements,
		Organization: item.Organization,
		Location:     item.Location,
		Salary:       item.Salary,
		Experience:   item.Experience,
		IsFeatured:   item.IsFeatured,
		IsImportant:  item.IsImportant,
		IsPinned:     item.IsPinned,
		CreatedBy:    item.CreatedBy,
	}
	if out.Attachments == nil {
		out.Attachments = []model.Attachment{}
	}
	if out.Requirements == nil {
		out.Requirements = []string{}
	}
	if item.Deadline != nil {
		out.Deadline = &openapi_types.Date{Time: *item.Deadline}
	}
	if !item.CreatedAt.IsZero() {
		createdAt := item.CreatedAt
		out.CreatedAt = &createdAt
	}
	if !item.UpdatedAt.IsZero() {
		updatedAt := item.UpdatedAt
		out.UpdatedAt = &updatedAt
	}
	return out
}

// ToModel преобразует проводной формат в доменную модель.
// Тип берётся из пути запроса, а не из тела.
// Поля, которыми управляет сервер (createdBy, createdAt, updatedAt), не переносятся.
func (c ContentItem) ToModel(t model.ContentType) *model.ContentItem {
	item := &model.ContentItem{
		ID:           c.ID,
		Type:         t,
		Title:        c.Title,
		Description:  c.Description,
		Category:     c.Category,
		Status:       model.Status(c.Status),
		Attachments:  c.Attachments,
		Requirements: c.Requirements,
		Organization: c.Organization,
		Location:     c.Location,
		Salary:       c.Salary,
		Experience:   c.Experience,
		IsFeatured:   c.IsFeatured,
		IsImportant:  c.IsImportant,
		IsPinned:     c.IsPinned,
	}
	if c.Deadline != nil {
		d := time.Date(c.Deadline.Year(), c.Deadline.Month(), c.Deadline.Day(), 0, 0, 0, 0, time.UTC)
		item.Deadline = &d
	}
	return item
}

// --- Конверты ответов ---

// ItemResponse — ответ на создание, изменение и получение записи.
type ItemResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Item    *ContentItem `json:"item,omitempty"`
}

// DeleteResponse — ответ на удаление записи.
type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ListResponse — страница списка записей.
type ListResponse struct {
	Success bool          `json:"success"`
	Items   []ContentItem `json:"items"`
	Total   int           `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
	HasMore bool          `json:"hasMore"`
}

// UploadResponse — ответ сервиса загрузки файлов.
type UploadResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	File    *model.UploadedFile `json:"file,omitempty"`
}

// DriveAttachmentRequest — запрос на построение вложения из ссылки Google Drive.
type DriveAttachmentRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// AttachmentResponse — построенное вложение.
type AttachmentResponse struct {
	Success    bool              `json:"success"`
	Attachment *model.Attachment `json:"attachment,omitempty"`
}

// ErrorResponse — тело ответа с ошибкой.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
