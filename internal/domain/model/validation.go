// validation.go — проверка черновика перед сохранением и заполнение
// значений по умолчанию.
package model

import (
	"fmt"
	"strings"
)

// Prepare проверяет черновик перед отправкой в Content API.
//
// Обязательны непустые (после обрезки пробелов) title и description,
// для вакансий ещё organization. После успешной проверки заполняются
// значения по умолчанию: категория «other» и статус «active».
// Неизвестные категория и статус, а также несогласованные вложения
// отклоняются. Любая ошибка — *ValidationError.
func (c *ContentItem) Prepare() error {
	if !c.Type.IsValid() {
		return &ValidationError{Fields: []string{"type"}, Message: fmt.Sprintf("неизвестный тип контента %q", c.Type)}
	}

	c.Title = strings.TrimSpace(c.Title)
	c.Description = strings.TrimSpace(c.Description)
	c.Organization = strings.TrimSpace(c.Organization)

	var missing []string
	if c.Title == "" {
		missing = append(missing, "title")
	}
	if c.Description == "" {
		missing = append(missing, "description")
	}
	if c.Type == ContentTypeJob && c.Organization == "" {
		missing = append(missing, "organization")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing, Message: "не заполнены обязательные поля"}
	}

	if c.Category == "" {
		c.Category = DefaultCategory
	} else if !c.Type.IsValidCategory(c.Category) {
		return &ValidationError{
			Fields:  []string{"category"},
			Message: fmt.Sprintf("категория %q недопустима для типа %s", c.Category, c.Type),
		}
	}

	if c.Status == "" {
		c.Status = StatusActive
	} else if !c.Status.IsValid() {
		return &ValidationError{Fields: []string{"status"}, Message: fmt.Sprintf("неизвестный статус %q", c.Status)}
	}

	for i, a := range c.Attachments {
		if err := a.Validate(); err != nil {
			return &ValidationError{Fields: []string{fmt.Sprintf("attachments[%d]", i)}, Message: err.Error()}
		}
	}

	return nil
}
