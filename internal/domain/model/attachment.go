// attachment.go — модель вложения (PDF-документа) к единице контента.
// Вложение — размеченное объединение по полю source: файл, загруженный
// на сервер, либо файл в Google Drive.
package model

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/h4ck3r-coding/csc-portal/content-module/internal/domain/drive"
)

// AttachmentSource — источник вложения.
type AttachmentSource string

const (
	// SourceServerUpload — файл загружен в сервис загрузки.
	SourceServerUpload AttachmentSource = "server-upload"
	// SourceGoogleDrive — файл хранится в Google Drive.
	SourceGoogleDrive AttachmentSource = "google-drive"
)

// MimeTypePDF — MIME-тип вложений из Google Drive.
const MimeTypePDF = "application/pdf"

const pdfSuffix = ".pdf"

// Attachment — вложение к единице контента.
// Для SourceServerUpload заполнен только URL, для SourceGoogleDrive —
// FileID и три производные ссылки. Согласованность проверяет Validate.
type Attachment struct {
	// Name — отображаемое имя файла
	Name string `json:"name"`
	// Source — источник вложения
	Source AttachmentSource `json:"source"`
	// MimeType — MIME-тип файла
	MimeType string `json:"mimeType"`
	// Size — размер файла в байтах (0 — неизвестен)
	Size int64 `json:"size,omitempty"`

	// URL — адрес файла в сервисе загрузки
	URL string `json:"url,omitempty"`

	// FileID — идентификатор файла в Google Drive
	FileID string `json:"fileId,omitempty"`
	// ViewLink — ссылка просмотра в Google Drive
	ViewLink string `json:"viewLink,omitempty"`
	// DownloadLink — ссылка скачивания из Google Drive
	DownloadLink string `json:"downloadLink,omitempty"`
	// PreviewLink — ссылка предпросмотра Google Drive
	PreviewLink string `json:"previewLink,omitempty"`
}

// attachmentAlias — Attachment без собственных методов JSON.
type attachmentAlias Attachment

// attachmentJSON — проводной формат: MIME-тип дублируется в поле type,
// которое читают старые клиенты.
type attachmentJSON struct {
	attachmentAlias
	Type string `json:"type,omitempty"`
}

// MarshalJSON сериализует вложение, дублируя MimeType в поле type.
func (a Attachment) MarshalJSON() ([]byte, error) {
	return json.Marshal(attachmentJSON{attachmentAlias: attachmentAlias(a), Type: a.MimeType})
}

// UnmarshalJSON принимает MIME-тип как из mimeType, так и из type.
func (a *Attachment) UnmarshalJSON(data []byte) error {
	var v attachmentJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = Attachment(v.attachmentAlias)
	if a.MimeType == "" {
		a.MimeType = v.Type
	}
	return nil
}

// Validate проверяет, что набор заполненных полей соответствует источнику.
func (a Attachment) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: пустое имя", ErrInvalidAttachment)
	}

	switch a.Source {
	case SourceServerUpload:
		if a.URL == "" {
			return fmt.Errorf("%w: у загруженного файла нет url", ErrInvalidAttachment)
		}
		if a.FileID != "" || a.ViewLink != "" || a.DownloadLink != "" || a.PreviewLink != "" {
			return fmt.Errorf("%w: у загруженного файла заданы ссылки Google Drive", ErrInvalidAttachment)
		}
	case SourceGoogleDrive:
		if a.URL != "" {
			return fmt.Errorf("%w: у файла Google Drive задан url", ErrInvalidAttachment)
		}
		if a.FileID == "" {
			return fmt.Errorf("%w: у файла Google Drive нет fileId", ErrInvalidAttachment)
		}
		want := drive.LinksFor(a.FileID)
		if a.ViewLink != want.ViewLink || a.DownloadLink != want.DownloadLink || a.PreviewLink != want.PreviewLink {
			return fmt.Errorf("%w: ссылки не соответствуют fileId %s", ErrInvalidAttachment, a.FileID)
		}
	default:
		return fmt.Errorf("%w: неизвестный источник %q", ErrInvalidAttachment, a.Source)
	}
	return nil
}

// AttachmentAction — действие пользователя над вложением.
type AttachmentAction string

const (
	ActionView     AttachmentAction = "view"
	ActionDownload AttachmentAction = "download"
	ActionPreview  AttachmentAction = "preview"
)

// ParseAttachmentAction разбирает имя действия.
func ParseAttachmentAction(s string) (AttachmentAction, error) {
	switch a := AttachmentAction(s); a {
	case ActionView, ActionDownload, ActionPreview:
		return a, nil
	default:
		return "", fmt.Errorf("неизвестное действие над вложением %q", s)
	}
}

// ActionURL возвращает адрес для действия над вложением.
// У загруженного файла один адрес на все действия.
func (a Attachment) ActionURL(action AttachmentAction) (string, error) {
	switch a.Source {
	case SourceServerUpload:
		return a.URL, nil
	case SourceGoogleDrive:
		switch action {
		case ActionView:
			return a.ViewLink, nil
		case ActionDownload:
			return a.DownloadLink, nil
		case ActionPreview:
			return a.PreviewLink, nil
		default:
			return "", fmt.Errorf("неизвестное действие над вложением %q", action)
		}
	default:
		return "", fmt.Errorf("%w: неизвестный источник %q", ErrInvalidAttachment, a.Source)
	}
}

// --- Построение вложений ---

// NewDriveAttachment строит вложение из ссылки Google Drive (или ID файла)
// и отображаемого имени. К имени добавляется «.pdf», если оно так не
// заканчивается (с учётом регистра).
func NewDriveAttachment(displayName, rawURL string) (Attachment, error) {
	name := strings.TrimSpace(displayName)
	link := strings.TrimSpace(rawURL)
	if name == "" || link == "" {
		return Attachment{}, fmt.Errorf("%w: нужно указать имя и ссылку Google Drive", ErrInvalidAttachment)
	}

	links, err := drive.Resolve(link)
	if err != nil {
		return Attachment{}, err
	}

	return Attachment{
		Name:         NormalizePDFName(name),
		Source:       SourceGoogleDrive,
		MimeType:     MimeTypePDF,
		FileID:       links.FileID,
		ViewLink:     links.ViewLink,
		DownloadLink: links.DownloadLink,
		PreviewLink:  links.PreviewLink,
	}, nil
}

// NormalizePDFName добавляет расширение .pdf, если его нет.
func NormalizePDFName(name string) string {
	if strings.HasSuffix(name, pdfSuffix) {
		return name
	}
	return name + pdfSuffix
}

// LocalFile — файл, выбранный пользователем для загрузки.
type LocalFile struct {
	// Name — имя файла на устройстве
	Name string
	// ContentType — MIME-тип, сообщённый устройством
	ContentType string
	// Size — размер в байтах (0 — неизвестен)
	Size int64
	// Body — содержимое файла
	Body io.Reader
}

// UploadedFile — ответ сервиса загрузки.
type UploadedFile struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Type string `json:"type"`
	// Size — размер в байтах
	Size int64 `json:"size"`
}

// Uploader — сервис загрузки файлов.
type Uploader interface {
	// Upload передаёт файл в хранилище и возвращает его адрес и метаданные.
	Upload(ctx context.Context, file LocalFile) (*UploadedFile, error)
}

// UploadAttachment загружает локальный файл и строит из ответа вложение
// с источником SourceServerUpload. Ошибки сервиса возвращаются как *UploadError.
// Повторов нет.
func UploadAttachment(ctx context.Context, up Uploader, file LocalFile) (Attachment, error) {
	res, err := up.Upload(ctx, file)
	if err != nil {
		return Attachment{}, &UploadError{Message: "не удалось загрузить файл " + file.Name, Err: err}
	}
	if res == nil || res.URL == "" {
		return Attachment{}, &UploadError{Message: "сервис загрузки не вернул адрес файла " + file.Name}
	}

	name := res.Name
	if name == "" {
		name = file.Name
	}

	return Attachment{
		Name:     name,
		Source:   SourceServerUpload,
		MimeType: res.Type,
		Size:     res.Size,
		URL:      res.URL,
	}, nil
}
