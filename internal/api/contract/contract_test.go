package contract

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/h4ck3r-coding/csc-portal/content-module/internal/domain/model"
)

func TestLoadOpenAPI(t *testing.T) {
	doc, err := LoadOpenAPI(context.Background())
	if err != nil {
		t.Fatalf("LoadOpenAPI ошибка: %v", err)
	}

	for _, path := range []string{
		"/{contentType}",
		"/{contentType}/{id}",
		"/{contentType}/{id}/attachments/{index}/{action}",
		"/attachments/drive",
		"/uploads",
		"/uploads/{fileId}",
	} {
		if doc.Paths.Value(path) == nil {
			t.Errorf("в контракте нет пути %s", path)
		}
	}
}

func TestFromModel_DeadlineAsDate(t *testing.T) {
	deadline := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	item := &model.ContentItem{
		ID:          "id-1",
		Type:        model.ContentTypeNotice,
		Title:       "Exam schedule",
		Description: "d",
		Deadline:    &deadline,
	}

	data, err := json.Marshal(FromModel(item))
	if err != nil {
		t.Fatalf("Marshal ошибка: %v", err)
	}
	s := string(data)

	if !strings.Contains(s, `"deadline":"2026-12-31"`) {
		t.Errorf("deadline не в формате даты: %s", s)
	}
	if !strings.Contains(s, `"attachments":[]`) || !strings.Contains(s, `"requirements":[]`) {
		t.Errorf("пустые списки должны сериализоваться как []: %s", s)
	}
	if strings.Contains(s, "createdAt") {
		t.Errorf("нулевой createdAt сериализован: %s", s)
	}
}

func TestToModel(t *testing.T) {
	var dto ContentItem
	body := `{
		"type": "form",
		"title": "Clerk",
		"description": "desc",
		"organization": "Collectorate",
		"deadline": "2026-11-15",
		"createdBy": "attacker",
		"attachments": [{"name":"a.pdf","source":"server-upload","type":"application/pdf","url":"https://x/a.pdf","size":12}],
		"requirements": ["Graduate"],
		"isFeatured": true
	}`
	if err := json.Unmarshal([]byte(body), &dto); err != nil {
		t.Fatalf("Unmarshal ошибка: %v", err)
	}

	item := dto.ToModel(model.ContentTypeJob)
	if item.Type != model.ContentTypeJob {
		t.Errorf("Type = %q, тип должен браться из пути", item.Type)
	}
	if item.CreatedBy != "" {
		t.Errorf("CreatedBy = %q, поле сервера не должно переноситься", item.CreatedBy)
	}
	if item.Deadline == nil || item.Deadline.Format("2006-01-02") != "2026-11-15" {
		t.Errorf("Deadline = %v", item.Deadline)
	}
	if len(item.Attachments) != 1 || item.Attachments[0].MimeType != "application/pdf" {
		t.Errorf("Attachments = %+v", item.Attachments)
	}
	if !item.IsFeatured || item.Organization != "Collectorate" {
		t.Errorf("поля вакансии не перенесены: %+v", item)
	}
}
