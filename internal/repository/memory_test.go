package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/h4ck3r-coding/csc-portal/content-module/internal/domain/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newItem создаёт подготовленную запись с временем создания base+offset.
func newItem(t *testing.T, typ model.ContentType, title string, created time.Time) *model.ContentItem {
	t.Helper()
	item := &model.ContentItem{
		ID:          uuid.NewString(),
		Type:        typ,
		Title:       title,
		Description: "описание " + title,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	if typ == model.ContentTypeJob {
		item.Organization = "Коллекторат"
	}
	if err := item.Prepare(); err != nil {
		t.Fatalf("Prepare() ошибка: %v", err)
	}
	return item
}

// TestMemoryContentRepository_CRUD проверяет полный цикл записи.
func TestMemoryContentRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryContentRepository()
	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

	item := newItem(t, model.ContentTypeJob, "Clerk", base)
	item.CreatedBy = "admin-1"
	if err := repo.Create(ctx, item); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if err := repo.Create(ctx, item); !errors.Is(err, ErrConflict) {
		t.Errorf("повторный Create() = %v, ожидался ErrConflict", err)
	}

	// Изменение исходного объекта не влияет на хранилище
	item.Title = "изменено снаружи"
	got, err := repo.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.Title != "Clerk" {
		t.Errorf("Title = %q, ожидался Clerk", got.Title)
	}

	got.Title = "Senior Clerk"
	got.CreatedBy = "someone-else"
	updated, err := repo.Update(ctx, got)
	if err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}
	if updated.Title != "Senior Clerk" {
		t.Errorf("Title = %q, ожидался Senior Clerk", updated.Title)
	}
	if updated.CreatedBy != "admin-1" {
		t.Errorf("CreatedBy = %q, ожидался admin-1 (не меняется при обновлении)", updated.CreatedBy)
	}
	if !updated.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, ожидался %v", updated.CreatedAt, base)
	}

	if err := repo.Delete(ctx, model.ContentTypeJob, item.ID); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if _, err := repo.GetByID(ctx, item.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() после удаления = %v, ожидался ErrNotFound", err)
	}
	if err := repo.Delete(ctx, model.ContentTypeJob, item.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторный Delete() = %v, ожидался ErrNotFound", err)
	}
}

// TestMemoryContentRepository_TypeMismatch проверяет, что запись другого типа не видна.
func TestMemoryContentRepository_TypeMismatch(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryContentRepository()

	form := newItem(t, model.ContentTypeForm, "Income form", time.Now())
	if err := repo.Create(ctx, form); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	asNotice := form.Clone()
	asNotice.Type = model.ContentTypeNotice
	if _, err := repo.Update(ctx, asNotice); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() другого типа = %v, ожидался ErrNotFound", err)
	}
	if err := repo.Delete(ctx, model.ContentTypeNotice, form.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() другого типа = %v, ожидался ErrNotFound", err)
	}
}

// TestMemoryContentRepository_ListOrderAndPaging проверяет порядок и пагинацию.
func TestMemoryContentRepository_ListOrderAndPaging(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryContentRepository()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	oldest := newItem(t, model.ContentTypeNotice, "oldest", base)
	middle := newItem(t, model.ContentTypeNotice, "middle", base.Add(time.Hour))
	newest := newItem(t, model.ContentTypeNotice, "newest", base.Add(2*time.Hour))
	pinned := newItem(t, model.ContentTypeNotice, "pinned", base.Add(-time.Hour))
	pinned.IsPinned = true
	otherType := newItem(t, model.ContentTypeForm, "form", base)

	for _, item := range []*model.ContentItem{oldest, middle, newest, pinned, otherType} {
		if err := repo.Create(ctx, item); err != nil {
			t.Fatalf("Create() ошибка: %v", err)
		}
	}

	filters := ContentListFilters{Type: model.ContentTypeNotice}
	all, err := repo.List(ctx, filters, 10, 0)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	wantOrder := []string{"pinned", "newest", "middle", "oldest"}
	if len(all) != len(wantOrder) {
		t.Fatalf("List() вернул %d записей, ожидалось %d", len(all), len(wantOrder))
	}
	for i, want := range wantOrder {
		if all[i].Title != want {
			t.Errorf("all[%d].Title = %q, ожидался %q", i, all[i].Title, want)
		}
	}

	page, err := repo.List(ctx, filters, 2, 1)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(page) != 2 || page[0].Title != "newest" || page[1].Title != "middle" {
		t.Errorf("страница = %v, ожидались newest, middle", titles(page))
	}

	empty, err := repo.List(ctx, filters, 10, 100)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("List() за пределами = %d записей, ожидалось 0", len(empty))
	}

	total, err := repo.Count(ctx, filters)
	if err != nil {
		t.Fatalf("Count() ошибка: %v", err)
	}
	if total != 4 {
		t.Errorf("Count() = %d, ожидалось 4", total)
	}
}

// TestMemoryContentRepository_Filters проверяет фильтры списка.
func TestMemoryContentRepository_Filters(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryContentRepository()
	now := time.Now().UTC()

	bank := newItem(t, model.ContentTypeJob, "Branch Assistant", now)
	bank.Category = "banking"
	bank.Organization = "Cooperative Bank"
	bank.IsFeatured = true

	clerk := newItem(t, model.ContentTypeJob, "Clerk", now)
	clerk.Category = "government"
	clerk.Status = model.StatusClosed

	for _, item := range []*model.ContentItem{bank, clerk} {
		if err := repo.Create(ctx, item); err != nil {
			t.Fatalf("Create() ошибка: %v", err)
		}
	}

	category := "banking"
	closed := model.StatusClosed
	featured := true
	query := "COOPERATIVE"

	tests := []struct {
		name    string
		filters ContentListFilters
		want    []string
	}{
		{"category", ContentListFilters{Type: model.ContentTypeJob, Category: &category}, []string{"Branch Assistant"}},
		{"status", ContentListFilters{Type: model.ContentTypeJob, Status: &closed}, []string{"Clerk"}},
		{"featured", ContentListFilters{Type: model.ContentTypeJob, Featured: &featured}, []string{"Branch Assistant"}},
		{"query по организации", ContentListFilters{Type: model.ContentTypeJob, Query: &query}, []string{"Branch Assistant"}},
		{"другой тип", ContentListFilters{Type: model.ContentTypeForm}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filters, 10, 0)
			if err != nil {
				t.Fatalf("List() ошибка: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() = %v, ожидалось %v", titles(got), tt.want)
			}
			for i := range tt.want {
				if got[i].Title != tt.want[i] {
					t.Errorf("got[%d] = %q, ожидался %q", i, got[i].Title, tt.want[i])
				}
			}
		})
	}
}

// TestMemoryUploadedFileRepository проверяет реестр файлов в памяти.
func TestMemoryUploadedFileRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUploadedFileRepository()

	f := &model.StoredFile{
		ID:               uuid.NewString(),
		OriginalFilename: "form.pdf",
		StoragePath:      "2026/01/form_abc.pdf",
		ContentType:      model.MimeTypePDF,
		Size:             1024,
	}
	if err := repo.Register(ctx, f); err != nil {
		t.Fatalf("Register() ошибка: %v", err)
	}

	dup := *f
	dup.ID = uuid.NewString()
	if err := repo.Register(ctx, &dup); !errors.Is(err, ErrConflict) {
		t.Errorf("Register() с тем же путём = %v, ожидался ErrConflict", err)
	}

	got, err := repo.GetByID(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.Size != 1024 || got.OriginalFilename != "form.pdf" {
		t.Errorf("GetByID() = %+v", got)
	}

	if _, err := repo.GetByID(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() неизвестного файла = %v, ожидался ErrNotFound", err)
	}
}

// TestSeedDemo проверяет загрузку демо-контента.
func TestSeedDemo(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryContentRepository()

	n, err := SeedDemo(ctx, repo, testLogger())
	if err != nil {
		t.Fatalf("SeedDemo() ошибка: %v", err)
	}
	if n == 0 {
		t.Fatal("SeedDemo() не добавил ни одной записи")
	}

	total := 0
	for _, typ := range model.ContentTypes {
		count, err := repo.Count(ctx, ContentListFilters{Type: typ})
		if err != nil {
			t.Fatalf("Count() ошибка: %v", err)
		}
		if count == 0 {
			t.Errorf("нет демо-записей типа %s", typ)
		}
		total += count
	}
	if total != n {
		t.Errorf("всего записей = %d, SeedDemo() вернул %d", total, n)
	}

	jobs, err := repo.List(ctx, ContentListFilters{Type: model.ContentTypeJob}, 10, 0)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	for _, job := range jobs {
		if job.Organization == "" {
			t.Errorf("вакансия %q без организации", job.Title)
		}
		for _, a := range job.Attachments {
			if a.Source != model.SourceGoogleDrive || a.FileID == "" {
				t.Errorf("вложение %+v: ожидалось вложение Google Drive", a)
			}
		}
	}
}

// TestSeedDemoIfEmpty проверяет, что демо-контент не дублируется
// и не добавляется в хранилище с записями.
func TestSeedDemoIfEmpty(t *testing.T) {
	ctx := context.Background()

	repo := NewMemoryContentRepository()
	n, err := SeedDemoIfEmpty(ctx, repo, testLogger())
	if err != nil || n == 0 {
		t.Fatalf("SeedDemoIfEmpty() = %d, %v; ожидалась загрузка", n, err)
	}
	again, err := SeedDemoIfEmpty(ctx, repo, testLogger())
	if err != nil || again != 0 {
		t.Errorf("повторный SeedDemoIfEmpty() = %d, %v; ожидалось 0", again, err)
	}
	total := 0
	for _, typ := range model.ContentTypes {
		count, _ := repo.Count(ctx, ContentListFilters{Type: typ})
		total += count
	}
	if total != n {
		t.Errorf("всего записей = %d, ожидалось %d", total, n)
	}

	withForm := NewMemoryContentRepository()
	if err := withForm.Create(ctx, newItem(t, model.ContentTypeForm, "Own form", time.Now().UTC())); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if n, err := SeedDemoIfEmpty(ctx, withForm, testLogger()); err != nil || n != 0 {
		t.Errorf("SeedDemoIfEmpty() для непустого хранилища = %d, %v", n, err)
	}
	if jobs, _ := withForm.Count(ctx, ContentListFilters{Type: model.ContentTypeJob}); jobs != 0 {
		t.Errorf("в непустое хранилище добавлено %d вакансий", jobs)
	}
}

func titles(items []*model.ContentItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Title)
	}
	return out
}
