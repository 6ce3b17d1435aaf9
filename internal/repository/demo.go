package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/h4ck3r-coding/csc-portal/content-module/internal/domain/model"
)

//go:embed demo/content.json
var demoContent []byte

// demoItem — запись демо-набора. Срок задаётся в днях от момента загрузки,
// вложения — ссылками Google Drive.
type demoItem struct {
	Type         model.ContentType `json:"type"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Category     string            `json:"category"`
	Status       model.Status      `json:"status"`
	Organization string            `json:"organization"`
	Location     string            `json:"location"`
	Salary       string            `json:"salary"`
	Experience   string            `json:"experience"`
	DeadlineDays int               `json:"deadlineDays"`
	IsFeatured   bool              `json:"isFeatured"`
	IsImportant  bool              `json:"isImportant"`
	IsPinned     bool              `json:"isPinned"`
	Requirements []string          `json:"requirements"`
	Attachments  []struct {
		Name     string `json:"name"`
		DriveURL string `json:"driveUrl"`
	} `json:"attachments"`
}

// SeedDemo заполняет хранилище демо-контентом для офлайн-режима.
// Каждая запись проходит ту же подготовку, что и сохранение из редактора.
// Возвращает количество добавленных записей.
func SeedDemo(ctx context.Context, repo ContentRepository, logger *slog.Logger) (int, error) {
	var items []demoItem
	if err := json.Unmarshal(demoContent, &items); err != nil {
		return 0, fmt.Errorf("ошибка разбора демо-контента: %w", err)
	}

	now := time.Now().UTC()
	for i, d := range items {
		item := &model.ContentItem{
			ID:           uuid.NewString(),
			Type:         d.Type,
			Title:        d.Title,
			Description:  d.Description,
			Category:     d.Category,
			Status:       d.Status,
			Organization: d.Organization,
			Location:     d.Location,
			Salary:       d.Salary,
			Experience:   d.Experience,
			IsFeatured:   d.IsFeatured,
			IsImportant:  d.IsImportant,
			IsPinned:     d.IsPinned,
			Requirements: d.Requirements,
			CreatedBy:    "demo",
			// Более ранние записи файла считаются более свежими
			CreatedAt: now.Add(-time.Duration(i) * time.Hour),
		}
		item.UpdatedAt = item.CreatedAt
		if d.DeadlineDays > 0 {
			deadline := now.Truncate(24*time.Hour).AddDate(0, 0, d.DeadlineDays)
			item.Deadline = &deadline
		}

		for _, a := range d.Attachments {
			att, err := model.NewDriveAttachment(a.Name, a.DriveURL)
			if err != nil {
				return i, fmt.Errorf("демо-запись %q: %w", d.Title, err)
			}
			if err := item.AddAttachment(att); err != nil {
				return i, fmt.Errorf("демо-запись %q: %w", d.Title, err)
			}
		}

		if err := item.Prepare(); err != nil {
			return i, fmt.Errorf("демо-запись %q: %w", d.Title, err)
		}
		if err := repo.Create(ctx, item); err != nil {
			return i, fmt.Errorf("ошибка сохранения демо-записи %q: %w", d.Title, err)
		}
	}

	logger.Info("Демо-контент загружен", slog.Int("count", len(items)))
	return len(items), nil
}

// SeedDemoIfEmpty заполняет хранилище демо-контентом, только если в нём
// нет ни одной записи. Повторный запуск сервиса на PostgreSQL не создаёт дублей.
// Возвращает количество добавленных записей (0 — хранилище не пустое).
func SeedDemoIfEmpty(ctx context.Context, repo ContentRepository, logger *slog.Logger) (int, error) {
	for _, t := range model.ContentTypes {
		n, err := repo.Count(ctx, ContentListFilters{Type: t})
		if err != nil {
			return 0, fmt.Errorf("ошибка подсчёта записей %s: %w", t, err)
		}
		if n > 0 {
			logger.Info("Хранилище не пустое, демо-контент не загружается",
				slog.String("type", string(t)),
				slog.Int("count", n),
			)
			return 0, nil
		}
	}
	return SeedDemo(ctx, repo, logger)
}
