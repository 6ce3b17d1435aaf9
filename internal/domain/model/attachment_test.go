package model

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

const testDriveID = "1aBcDeFgHiJkLmNoPqRsTuVwXyZ012345"

// mockUploader — mock сервиса загрузки.
type mockUploader struct {
	uploadFn func(ctx context.Context, file LocalFile) (*UploadedFile, error)
}

func (m *mockUploader) Upload(ctx context.Context, file LocalFile) (*UploadedFile, error) {
	return m.uploadFn(ctx, file)
}

func TestNewDriveAttachment_Success(t *testing.T) {
	a, err := NewDriveAttachment("Admit Card", "https://drive.google.com/file/d/abc123/view?usp=sharing")
	if err != nil {
		t.Fatalf("NewDriveAttachment ошибка: %v", err)
	}

	if a.Name != "Admit Card.pdf" {
		t.Errorf("Name = %q, ожидается %q", a.Name, "Admit Card.pdf")
	}
	if a.Source != SourceGoogleDrive {
		t.Errorf("Source = %q, ожидается %q", a.Source, SourceGoogleDrive)
	}
	if a.MimeType != MimeTypePDF {
		t.Errorf("MimeType = %q, ожидается %q", a.MimeType, MimeTypePDF)
	}
	if a.FileID != "abc123" {
		t.Errorf("FileID = %q, ожидается abc123", a.FileID)
	}
	if a.DownloadLink != "https://drive.google.com/uc?export=download&id=abc123" {
		t.Errorf("DownloadLink = %q", a.DownloadLink)
	}
	if a.URL != "" {
		t.Errorf("URL = %q, ожидается пустой", a.URL)
	}
	if err := a.Validate(); err != nil {
		t.Errorf("Validate() ошибка: %v", err)
	}
}

func TestNewDriveAttachment_NameNormalization(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"notice", "notice.pdf"},
		{"notice.pdf", "notice.pdf"},
		{"Report.PDF", "Report.PDF.pdf"},
		{"  spaced  ", "spaced.pdf"},
		{"archive.pdf.zip", "archive.pdf.zip.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			a, err := NewDriveAttachment(tt.input, testDriveID)
			if err != nil {
				t.Fatalf("NewDriveAttachment ошибка: %v", err)
			}
			if a.Name != tt.want {
				t.Errorf("Name = %q, ожидается %q", a.Name, tt.want)
			}
		})
	}
}

func TestNewDriveAttachment_Errors(t *testing.T) {
	if _, err := NewDriveAttachment("", testDriveID); !errors.Is(err, ErrInvalidAttachment) {
		t.Errorf("пустое имя: ошибка = %v, ожидается ErrInvalidAttachment", err)
	}
	if _, err := NewDriveAttachment("doc", "   "); !errors.Is(err, ErrInvalidAttachment) {
		t.Errorf("пустая ссылка: ошибка = %v, ожидается ErrInvalidAttachment", err)
	}

	a, err := NewDriveAttachment("doc", "https://example.com/not-drive")
	if !errors.Is(err, ErrInvalidDriveURL) {
		t.Errorf("чужая ссылка: ошибка = %v, ожидается ErrInvalidDriveURL", err)
	}
	if a != (Attachment{}) {
		t.Errorf("при ошибке возвращена непустая запись: %+v", a)
	}
}

func TestUploadAttachment_Success(t *testing.T) {
	up := &mockUploader{
		uploadFn: func(_ context.Context, file LocalFile) (*UploadedFile, error) {
			return &UploadedFile{
				URL:  "https://csc.example/api/v1/uploads/42",
				Name: file.Name,
				Type: "application/pdf",
				Size: 2048,
			}, nil
		},
	}

	a, err := UploadAttachment(context.Background(), up, LocalFile{
		Name: "form.pdf",
		Body: strings.NewReader("%PDF-1.7"),
	})
	if err != nil {
		t.Fatalf("UploadAttachment ошибка: %v", err)
	}

	if a.Source != SourceServerUpload {
		t.Errorf("Source = %q, ожидается %q", a.Source, SourceServerUpload)
	}
	if a.URL != "https://csc.example/api/v1/uploads/42" {
		t.Errorf("URL = %q", a.URL)
	}
	if a.Size != 2048 {
		t.Errorf("Size = %d, ожидается 2048", a.Size)
	}
	if a.FileID != "" || a.ViewLink != "" {
		t.Errorf("у загруженного файла заданы поля Drive: %+v", a)
	}
	if err := a.Validate(); err != nil {
		t.Errorf("Validate() ошибка: %v", err)
	}
}

func TestUploadAttachment_Failure(t *testing.T) {
	cause := errors.New("413 Request Entity Too Large")
	up := &mockUploader{
		uploadFn: func(context.Context, LocalFile) (*UploadedFile, error) {
			return nil, cause
		},
	}

	_, err := UploadAttachment(context.Background(), up, LocalFile{Name: "big.pdf"})
	if !errors.Is(err, ErrUpload) {
		t.Fatalf("ошибка = %v, ожидается ErrUpload", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("исходная ошибка потеряна: %v", err)
	}

	var upErr *UploadError
	if !errors.As(err, &upErr) {
		t.Fatalf("ошибка не *UploadError: %T", err)
	}
}

func TestUploadAttachment_EmptyURL(t *testing.T) {
	up := &mockUploader{
		uploadFn: func(context.Context, LocalFile) (*UploadedFile, error) {
			return &UploadedFile{Name: "x.pdf"}, nil
		},
	}
	if _, err := UploadAttachment(context.Background(), up, LocalFile{Name: "x.pdf"}); !errors.Is(err, ErrUpload) {
		t.Errorf("ошибка = %v, ожидается ErrUpload", err)
	}
}

func TestAttachmentValidate(t *testing.T) {
	drive, _ := NewDriveAttachment("a", testDriveID)

	mixed := drive
	mixed.URL = "https://csc.example/file"

	tampered := drive
	tampered.ViewLink = "https://drive.google.com/file/d/other/view"

	tests := []struct {
		name    string
		a       Attachment
		wantErr bool
	}{
		{"корректный Drive", drive, false},
		{"корректный upload", Attachment{Name: "a.pdf", Source: SourceServerUpload, URL: "https://x/a.pdf"}, false},
		{"upload без url", Attachment{Name: "a.pdf", Source: SourceServerUpload}, true},
		{"upload со ссылками Drive", Attachment{Name: "a.pdf", Source: SourceServerUpload, URL: "u", FileID: "f"}, true},
		{"Drive с url", mixed, true},
		{"Drive с чужой ссылкой", tampered, true},
		{"неизвестный источник", Attachment{Name: "a", Source: "ftp"}, true},
		{"пустое имя", Attachment{Source: SourceServerUpload, URL: "u"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.a.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidAttachment) {
				t.Errorf("ошибка не ErrInvalidAttachment: %v", err)
			}
		})
	}
}

func TestAttachmentActionURL(t *testing.T) {
	drive, _ := NewDriveAttachment("a", testDriveID)
	upload := Attachment{Name: "b.pdf", Source: SourceServerUpload, URL: "https://csc.example/b"}

	tests := []struct {
		name   string
		a      Attachment
		action AttachmentAction
		want   string
	}{
		{"Drive view", drive, ActionView, drive.ViewLink},
		{"Drive download", drive, ActionDownload, drive.DownloadLink},
		{"Drive preview", drive, ActionPreview, drive.PreviewLink},
		{"upload view", upload, ActionView, upload.URL},
		{"upload download", upload, ActionDownload, upload.URL},
		{"upload preview", upload, ActionPreview, upload.URL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.a.ActionURL(tt.action)
			if err != nil {
				t.Fatalf("ActionURL ошибка: %v", err)
			}
			if got != tt.want {
				t.Errorf("ActionURL = %q, ожидается %q", got, tt.want)
			}
		})
	}

	if _, err := (Attachment{Source: "ftp"}).ActionURL(ActionView); err == nil {
		t.Error("ожидалась ошибка для неизвестного источника")
	}
	if _, err := ParseAttachmentAction("print"); err == nil {
		t.Error("ожидалась ошибка для неизвестного действия")
	}
}

func TestAttachmentJSON(t *testing.T) {
	a := Attachment{Name: "b.pdf", Source: SourceServerUpload, MimeType: "application/pdf", URL: "u", Size: 10}
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal ошибка: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal ошибка: %v", err)
	}
	if raw["type"] != "application/pdf" || raw["mimeType"] != "application/pdf" {
		t.Errorf("type/mimeType = %v/%v", raw["type"], raw["mimeType"])
	}
	if _, ok := raw["viewLink"]; ok {
		t.Error("у загруженного файла сериализован viewLink")
	}

	// Старый формат: MIME-тип только в поле type
	var legacy Attachment
	if err := json.Unmarshal([]byte(`{"name":"c.pdf","source":"server-upload","type":"application/pdf","url":"u"}`), &legacy); err != nil {
		t.Fatalf("Unmarshal ошибка: %v", err)
	}
	if legacy.MimeType != "application/pdf" {
		t.Errorf("MimeType = %q, ожидается application/pdf", legacy.MimeType)
	}
}
