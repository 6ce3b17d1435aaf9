package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/h4ck3r-coding/csc-portal/content-module/internal/api/contract"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/api/handlers"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/api/middleware"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/domain/model"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/repository"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/service"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/storage/filestore"
)

const (
	testDriveID   = "1AbCdEfGhIjKlMnOpQrStUvWxYz012345"
	testPublicURL = "https://cm.test"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestServer собирает router на memory-репозиториях.
// writeAuth — аутентификация изменяющих маршрутов.
func newTestServer(t *testing.T, writeAuth func(http.Handler) http.Handler) *httptest.Server {
	t.Helper()
	logger := testLogger()

	store, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("filestore.New() ошибка: %v", err)
	}

	content := service.NewContentService(repository.NewMemoryContentRepository(), service.NewCacheService(100, time.Minute), logger)
	uploads := service.NewUploadService(store, repository.NewMemoryUploadedFileRepository(), 64, testPublicURL, logger)
	attachments := service.NewAttachmentService(nil, logger)
	health := handlers.NewHealthHandler(nil)

	api := handlers.NewAPIHandler(health, content, uploads, attachments, logger)
	srv := httptest.NewServer(NewRouter(api, logger, []string{"*"}, writeAuth))
	t.Cleanup(srv.Close)
	return srv
}

// doJSON выполняет запрос с JSON-телом и декодирует ответ в out (если не nil).
func doJSON(t *testing.T, method, url string, body any, out any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("декодирование ответа %s %s: %v", method, url, err)
		}
	}
	return resp
}

func validJob() contract.ContentItem {
	return contract.ContentItem{
		Title:        "  Data Entry Operator ",
		Description:  "Contract position at the block office",
		Organization: "District Collectorate",
		Requirements: []string{"Typing 30 wpm"},
	}
}

// TestRouter_ContentLifecycle — создание, чтение, изменение и удаление.
func TestRouter_ContentLifecycle(t *testing.T) {
	srv := newTestServer(t, middleware.NoAuth())
	base := srv.URL + "/api/v1/jobs"

	var created contract.ItemResponse
	resp := doJSON(t, http.MethodPost, base, validJob(), &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST код = %d", resp.StatusCode)
	}
	if !created.Success || created.Message == "" || created.Item == nil {
		t.Fatalf("POST ответ = %+v", created)
	}
	item := created.Item
	if item.ID == "" || item.Title != "Data Entry Operator" {
		t.Errorf("ID/Title = %q/%q", item.ID, item.Title)
	}
	if item.Category != model.DefaultCategory || item.Status != string(model.StatusActive) {
		t.Errorf("значения по умолчанию: category=%q status=%q", item.Category, item.Status)
	}
	if item.CreatedBy != middleware.DevSubject {
		t.Errorf("CreatedBy = %q", item.CreatedBy)
	}

	var got contract.ItemResponse
	if resp := doJSON(t, http.MethodGet, base+"/"+item.ID, nil, &got); resp.StatusCode != http.StatusOK {
		t.Fatalf("GET код = %d", resp.StatusCode)
	}
	if got.Item.Title != item.Title {
		t.Errorf("GET Title = %q", got.Item.Title)
	}

	// Запись вакансии не видна по пути форм
	if resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/forms/"+item.ID, nil, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET по чужому типу код = %d, ожидался 404", resp.StatusCode)
	}

	update := validJob()
	update.Title = "Senior Data Entry Operator"
	update.Category = "government"
	var updated contract.ItemResponse
	if resp := doJSON(t, http.MethodPut, base+"/"+item.ID, update, &updated); resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT код = %d", resp.StatusCode)
	}
	if updated.Item.Title != "Senior Data Entry Operator" || updated.Item.Category != "government" {
		t.Errorf("PUT ответ = %+v", updated.Item)
	}

	var deleted contract.DeleteResponse
	if resp := doJSON(t, http.MethodDelete, base+"/"+item.ID, nil, &deleted); resp.StatusCode != http.StatusOK || !deleted.Success {
		t.Fatalf("DELETE код = %d, ответ %+v", resp.StatusCode, deleted)
	}
	if resp := doJSON(t, http.MethodGet, base+"/"+item.ID, nil, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET после удаления код = %d", resp.StatusCode)
	}
}

// TestRouter_ValidationErrors — ответы 400 в едином формате.
func TestRouter_ValidationErrors(t *testing.T) {
	srv := newTestServer(t, middleware.NoAuth())

	noOrg := validJob()
	noOrg.Organization = " "
	badCategory := validJob()
	badCategory.Category = "exam"

	tests := []struct {
		name string
		path string
		body any
	}{
		{"вакансия без организации", "/api/v1/jobs", noOrg},
		{"чужая категория", "/api/v1/jobs", badCategory},
		{"объявление без заголовка", "/api/v1/notices", contract.ContentItem{Description: "x"}},
		{"некорректный JSON", "/api/v1/forms", "строка вместо объекта"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errResp contract.ErrorResponse
			resp := doJSON(t, http.MethodPost, srv.URL+tt.path, tt.body, &errResp)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("код = %d, ожидался 400", resp.StatusCode)
			}
			if errResp.Success || errResp.Message == "" || errResp.Error == nil || errResp.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("ответ = %+v", errResp)
			}
		})
	}

	if resp := doJSON(t, http.MethodPut, srv.URL+"/api/v1/jobs/not-a-uuid", validJob(), nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("PUT с некорректным ID код = %d, ожидался 400", resp.StatusCode)
	}
	if resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/vacancies", nil, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("неизвестный тип код = %d, ожидался 404", resp.StatusCode)
	}
}

// TestRouter_ListFilters — фильтры и пагинация списка.
func TestRouter_ListFilters(t *testing.T) {
	srv := newTestServer(t, middleware.NoAuth())
	base := srv.URL + "/api/v1/forms"

	forms := []contract.ContentItem{
		{Title: "Income Certificate", Description: "Apply for income certificate", Category: "certificate", IsImportant: true},
		{Title: "Caste Certificate", Description: "Apply for caste certificate", Category: "certificate"},
		{Title: "Old Age Pension", Description: "Pension application", Category: "pension", IsPinned: true},
	}
	for _, f := range forms {
		if resp := doJSON(t, http.MethodPost, base, f, nil); resp.StatusCode != http.StatusCreated {
			t.Fatalf("POST %q код = %d", f.Title, resp.StatusCode)
		}
	}

	var all contract.ListResponse
	doJSON(t, http.MethodGet, base, nil, &all)
	if all.Total != 3 || len(all.Items) != 3 || all.Limit != 100 {
		t.Fatalf("список = total %d, items %d, limit %d", all.Total, len(all.Items), all.Limit)
	}
	if all.Items[0].Title != "Old Age Pension" {
		t.Errorf("первой должна быть закреплённая запись, получена %q", all.Items[0].Title)
	}

	var certs contract.ListResponse
	doJSON(t, http.MethodGet, base+"?category=certificate&limit=1", nil, &certs)
	if certs.Total != 2 || len(certs.Items) != 1 || !certs.HasMore {
		t.Errorf("category=certificate: total %d, items %d, hasMore %v", certs.Total, len(certs.Items), certs.HasMore)
	}

	var search contract.ListResponse
	doJSON(t, http.MethodGet, base+"?q=income&important=true", nil, &search)
	if search.Total != 1 || search.Items[0].Title != "Income Certificate" {
		t.Errorf("поиск = %+v", search.Items)
	}

	if resp := doJSON(t, http.MethodGet, base+"?status=archived", nil, nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("неизвестный статус код = %d, ожидался 400", resp.StatusCode)
	}
	if resp := doJSON(t, http.MethodGet, base+"?limit=abc", nil, nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("limit=abc код = %d, ожидался 400", resp.StatusCode)
	}
}

// TestRouter_DriveAttachmentActions — построение вложения и переходы по действиям.
func TestRouter_DriveAttachmentActions(t *testing.T) {
	srv := newTestServer(t, middleware.NoAuth())

	var built contract.AttachmentResponse
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/attachments/drive", contract.DriveAttachmentRequest{
		Name: "Application Form",
		URL:  "https://drive.google.com/file/d/" + testDriveID + "/view?usp=sharing",
	}, &built)
	if resp.StatusCode != http.StatusCreated || built.Attachment == nil {
		t.Fatalf("POST drive код = %d, ответ %+v", resp.StatusCode, built)
	}
	if built.Attachment.Name != "Application Form.pdf" || built.Attachment.FileID != testDriveID {
		t.Errorf("вложение = %+v", built.Attachment)
	}

	notice := contract.ContentItem{
		Title:       "Exam schedule",
		Description: "Schedule of the state exam",
		Attachments: []model.Attachment{*built.Attachment},
	}
	var created contract.ItemResponse
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/notices", notice, &created)
	if created.Item == nil {
		t.Fatal("запись не создана")
	}

	base := srv.URL + "/api/v1/notices/" + created.Item.ID + "/attachments/"
	for action, want := range map[string]string{
		"view":     built.Attachment.ViewLink,
		"download": built.Attachment.DownloadLink,
		"preview":  built.Attachment.PreviewLink,
	} {
		resp := doJSON(t, http.MethodGet, base+"0/"+action, nil, nil)
		if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != want {
			t.Errorf("%s: код %d, Location %q, ожидался %q", action, resp.StatusCode, resp.Header.Get("Location"), want)
		}
	}

	if resp := doJSON(t, http.MethodGet, base+"1/view", nil, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("индекс вне диапазона код = %d, ожидался 404", resp.StatusCode)
	}
	if resp := doJSON(t, http.MethodGet, base+"0/print", nil, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("неизвестное действие код = %d, ожидался 404", resp.StatusCode)
	}

	var errResp contract.ErrorResponse
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/attachments/drive",
		contract.DriveAttachmentRequest{Name: "x", URL: "https://example.com/file.pdf"}, &errResp)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("некорректная ссылка код = %d, ожидался 400", resp.StatusCode)
	}
}

// uploadMultipart отправляет файл в поле file.
func uploadMultipart(t *testing.T, url, filename string, content []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(content)
	_ = mw.Close()

	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

// TestRouter_UploadAndDownload — загрузка файла и раздача по выданному URL.
func TestRouter_UploadAndDownload(t *testing.T) {
	srv := newTestServer(t, middleware.NoAuth())
	content := []byte("%PDF-1.7 scheme")

	resp := uploadMultipart(t, srv.URL+"/api/v1/uploads", "Scheme Guide.pdf", content)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST uploads код = %d", resp.StatusCode)
	}
	var uploaded contract.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		t.Fatal(err)
	}
	if !uploaded.Success || uploaded.File == nil || uploaded.File.Size != int64(len(content)) {
		t.Fatalf("ответ = %+v", uploaded)
	}
	path, ok := strings.CutPrefix(uploaded.File.URL, testPublicURL)
	if !ok || !strings.HasPrefix(path, "/api/v1/uploads/") {
		t.Fatalf("URL = %q", uploaded.File.URL)
	}

	dl, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer dl.Body.Close()
	data, _ := io.ReadAll(dl.Body)
	if dl.StatusCode != http.StatusOK || !bytes.Equal(data, content) {
		t.Errorf("GET файла код = %d, содержимое %q", dl.StatusCode, data)
	}
	if dl.Header.Get("Content-Type") != model.MimeTypePDF {
		t.Errorf("Content-Type = %q", dl.Header.Get("Content-Type"))
	}

	big := uploadMultipart(t, srv.URL+"/api/v1/uploads", "big.pdf", bytes.Repeat([]byte("x"), 100))
	defer big.Body.Close()
	if big.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("большой файл код = %d, ожидался 413", big.StatusCode)
	}

	missing, err := http.Get(srv.URL + "/api/v1/uploads/00000000-0000-0000-0000-000000000000")
	if err != nil {
		t.Fatal(err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("неизвестный файл код = %d, ожидался 404", missing.StatusCode)
	}
}

// TestRouter_DownloadDisposition — inline отдаются только PDF и растровые
// изображения, остальное скачивается; nosniff выставляется всегда.
func TestRouter_DownloadDisposition(t *testing.T) {
	srv := newTestServer(t, middleware.NoAuth())

	tests := []struct {
		filename    string
		content     string
		disposition string
	}{
		{"guide.pdf", "%PDF-1.7", "inline"},
		{"photo.png", "\x89PNG\r\n", "inline"},
		{"page.html", "<script>alert(1)</script>", "attachment"},
		{"logo.svg", `<svg onload="alert(1)"/>`, "attachment"},
		{"notes.txt", "plain text", "attachment"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			resp := uploadMultipart(t, srv.URL+"/api/v1/uploads", tt.filename, []byte(tt.content))
			defer resp.Body.Close()
			var uploaded contract.UploadResponse
			if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil || uploaded.File == nil {
				t.Fatalf("POST uploads код = %d, ошибка %v", resp.StatusCode, err)
			}
			path, _ := strings.CutPrefix(uploaded.File.URL, testPublicURL)

			dl, err := http.Get(srv.URL + path)
			if err != nil {
				t.Fatal(err)
			}
			dl.Body.Close()

			if got := dl.Header.Get("X-Content-Type-Options"); got != "nosniff" {
				t.Errorf("X-Content-Type-Options = %q", got)
			}
			disposition := dl.Header.Get("Content-Disposition")
			if !strings.HasPrefix(disposition, tt.disposition+";") || !strings.Contains(disposition, tt.filename) {
				t.Errorf("Content-Disposition = %q, ожидался %s", disposition, tt.disposition)
			}
		})
	}
}

// denyAll — аутентификация, отклоняющая все запросы.
func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
}

// TestRouter_WriteRoutesRequireAuth — чтение публично, изменение — только после аутентификации.
func TestRouter_WriteRoutesRequireAuth(t *testing.T) {
	srv := newTestServer(t, denyAll)

	if resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/jobs", nil, nil); resp.StatusCode != http.StatusOK {
		t.Errorf("GET список код = %d, ожидался 200", resp.StatusCode)
	}
	if resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/openapi.yaml", nil, nil); resp.StatusCode != http.StatusOK {
		t.Errorf("GET openapi код = %d, ожидался 200", resp.StatusCode)
	}
	if resp := doJSON(t, http.MethodGet, srv.URL+"/health/live", nil, nil); resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health/live код = %d, ожидался 200", resp.StatusCode)
	}

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/jobs"},
		{http.MethodPut, "/api/v1/jobs/00000000-0000-0000-0000-000000000000"},
		{http.MethodDelete, "/api/v1/notices/00000000-0000-0000-0000-000000000000"},
		{http.MethodPost, "/api/v1/attachments/drive"},
		{http.MethodPost, "/api/v1/uploads"},
	} {
		if resp := doJSON(t, tc.method, srv.URL+tc.path, validJob(), nil); resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s код = %d, ожидался 401", tc.method, tc.path, resp.StatusCode)
		}
	}
}
