// content.go — единица контента портала: вакансия, форма или объявление.
package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ContentType — тип единицы контента.
type ContentType string

const (
	ContentTypeJob    ContentType = "job"
	ContentTypeForm   ContentType = "form"
	ContentTypeNotice ContentType = "notice"
)

// ContentTypes — все типы контента в порядке отображения.
var ContentTypes = []ContentType{ContentTypeJob, ContentTypeForm, ContentTypeNotice}

// contentTypePaths — сегменты пути Content API для каждого типа.
var contentTypePaths = map[ContentType]string{
	ContentTypeJob:    "jobs",
	ContentTypeForm:   "forms",
	ContentTypeNotice: "notices",
}

// DefaultCategory — категория по умолчанию для всех типов контента.
const DefaultCategory = "other"

// categories — допустимые категории для каждого типа контента.
var categories = map[ContentType][]string{
	ContentTypeJob:    {"government", "private", "banking", "education", "healthcare", DefaultCategory},
	ContentTypeForm:   {"certificate", "identity", "scheme", "pension", "education", DefaultCategory},
	ContentTypeNotice: {"general", "exam", "result", "admission", "scheme", DefaultCategory},
}

// ParseContentType разбирает тип контента в единственном («job»)
// или множественном («jobs») числе.
func ParseContentType(s string) (ContentType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, path := range contentTypePaths {
		if s == string(t) || s == path {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownContentType, s)
}

// IsValid проверяет, что тип контента известен.
func (t ContentType) IsValid() bool {
	_, ok := contentTypePaths[t]
	return ok
}

// PathSegment возвращает сегмент пути Content API («jobs», «forms», «notices»).
func (t ContentType) PathSegment() string {
	return contentTypePaths[t]
}

// Categories возвращает допустимые категории типа контента.
func (t ContentType) Categories() []string {
	return slices.Clone(categories[t])
}

// IsValidCategory проверяет, что категория допустима для типа контента.
func (t ContentType) IsValidCategory(category string) bool {
	return slices.Contains(categories[t], category)
}

// Status — статус публикации единицы контента.
type Status string

const (
	StatusActive   Status = "active"
	StatusClosed   Status = "closed"
	StatusUpcoming Status = "upcoming"
)

// IsValid проверяет, что статус известен.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusClosed, StatusUpcoming:
		return true
	default:
		return false
	}
}

// ContentItem — вакансия, форма или объявление.
// Черновик редактируется в памяти и сохраняется целиком.
type ContentItem struct {
	// ID — идентификатор, назначается сервером при создании
	ID string
	// Type — тип контента
	Type ContentType
	// Title — заголовок (обязателен)
	Title string
	// Description — описание (обязательно)
	Description string
	// Category — категория из набора, допустимого для типа
	Category string
	// Status — статус публикации
	Status Status
	// Deadline — крайний срок (дата без времени, UTC)
	Deadline *time.Time
	// Attachments — вложения в порядке добавления
	Attachments []Attachment
	// Requirements — требования в порядке добавления
	Requirements []string

	// --- Только для вакансий ---

	// Organization — работодатель (обязателен для вакансий)
	Organization string
	Location     string
	Salary       string
	Experience   string
	IsFeatured   bool

	// --- Для форм и объявлений ---

	IsImportant bool
	IsPinned    bool

	// --- Заполняются сервером ---

	// CreatedBy — subject администратора, создавшего запись
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewDraft создаёт пустой черновик указанного типа.
func NewDraft(t ContentType) *ContentItem {
	return &ContentItem{Type: t}
}

// Clone возвращает глубокую копию единицы контента.
func (c *ContentItem) Clone() *ContentItem {
	if c == nil {
		return nil
	}
	out := *c
	out.Attachments = slices.Clone(c.Attachments)
	out.Requirements = slices.Clone(c.Requirements)
	if c.Deadline != nil {
		d := *c.Deadline
		out.Deadline = &d
	}
	return &out
}

// AddAttachment добавляет вложение в конец списка.
// Несогласованная запись вложения не добавляется.
func (c *ContentItem) AddAttachment(a Attachment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	c.Attachments = append(c.Attachments, a)
	return nil
}

// RemoveAttachment удаляет вложение по индексу, сохраняя порядок остальных.
func (c *ContentItem) RemoveAttachment(index int) (Attachment, error) {
	if index < 0 || index >= len(c.Attachments) {
		return Attachment{}, fmt.Errorf("%w: вложение %d из %d", ErrIndexOutOfRange, index, len(c.Attachments))
	}
	removed := c.Attachments[index]
	c.Attachments = slices.Delete(c.Attachments, index, index+1)
	return removed, nil
}

// AddRequirement добавляет требование в конец списка.
// Пустые строки не принимаются.
func (c *ContentItem) AddRequirement(requirement string) error {
	requirement = strings.TrimSpace(requirement)
	if requirement == "" {
		return &ValidationError{Fields: []string{"requirements"}, Message: "пустое требование"}
	}
	c.Requirements = append(c.Requirements, requirement)
	return nil
}

// RemoveRequirement удаляет требование по индексу, сохраняя порядок остальных.
func (c *ContentItem) RemoveRequirement(index int) (string, error) {
	if index < 0 || index >= len(c.Requirements) {
		return "", fmt.Errorf("%w: требование %d из %d", ErrIndexOutOfRange, index, len(c.Requirements))
	}
	removed := c.Requirements[index]
	c.Requirements = slices.Delete(c.Requirements, index, index+1)
	return removed, nil
}
