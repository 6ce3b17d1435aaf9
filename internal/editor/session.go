// Пакет editor — сессия редактирования одной записи контента.
//
// Черновик живёт в памяти сессии и меняется свободно: поля, вложения,
// требования. В Content API запись уходит целиком при сохранении.
// Ошибки загрузки и сохранения черновик не меняют, действие можно повторить.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/h4ck3r-coding/csc-portal/content-module/internal/domain/model"
)

// ErrBusy — предыдущий запрос загрузки или сохранения ещё выполняется.
var ErrBusy = errors.New("запрос уже выполняется")

// ContentAPI — сохранение записей в Content API.
// Реализуется contentclient.Client.
type ContentAPI interface {
	Create(ctx context.Context, item *model.ContentItem) (*model.ContentItem, string, error)
	Update(ctx context.Context, item *model.ContentItem) (*model.ContentItem, string, error)
}

// Mode — режим сессии.
type Mode string

const (
	// ModeCreate — новая запись, сохранение создаёт её.
	ModeCreate Mode = "create"
	// ModeUpdate — существующая запись, сохранение обновляет её.
	ModeUpdate Mode = "update"
)

// ConfirmFunc спрашивает пользователя, удалять ли вложение.
type ConfirmFunc func(model.Attachment) bool

// Session — сессия редактирования одного черновика.
// Сессией владеет один вызывающий; потокобезопасен только InFlight.
type Session struct {
	api      ContentAPI
	uploader model.Uploader
	logger   *slog.Logger

	draft    *model.ContentItem
	mode     Mode
	inFlight atomic.Bool
}

// NewSession начинает создание новой записи типа t.
func NewSession(t model.ContentType, api ContentAPI, uploader model.Uploader, logger *slog.Logger) *Session {
	return &Session{
		api:      api,
		uploader: uploader,
		logger:   logger.With(slog.String("component", "editor"), slog.String("type", string(t))),
		draft:    model.NewDraft(t),
		mode:     ModeCreate,
	}
}

// OpenSession начинает редактирование записи, полученной от сервера.
// Существующие вложения сохраняют источник и ссылки.
func OpenSession(item *model.ContentItem, api ContentAPI, uploader model.Uploader, logger *slog.Logger) (*Session, error) {
	if item == nil || item.ID == "" {
		return nil, errors.New("редактирование записи без ID")
	}
	return &Session{
		api:      api,
		uploader: uploader,
		logger: logger.With(
			slog.String("component", "editor"),
			slog.String("type", string(item.Type)),
			slog.String("id", item.ID),
		),
		draft: item.Clone(),
		mode:  ModeUpdate,
	}, nil
}

// Draft возвращает копию текущего черновика.
func (s *Session) Draft() *model.ContentItem {
	return s.draft.Clone()
}

// Mode возвращает режим сессии.
func (s *Session) Mode() Mode {
	return s.mode
}

// InFlight сообщает, выполняется ли запрос загрузки или сохранения.
func (s *Session) InFlight() bool {
	return s.inFlight.Load()
}

// Edit применяет изменения полей черновика.
// ID, тип и серверные поля изменить нельзя.
func (s *Session) Edit(fn func(draft *model.ContentItem)) {
	id, t := s.draft.ID, s.draft.Type
	createdBy, createdAt, updatedAt := s.draft.CreatedBy, s.draft.CreatedAt, s.draft.UpdatedAt

	fn(s.draft)

	s.draft.ID, s.draft.Type = id, t
	s.draft.CreatedBy, s.draft.CreatedAt, s.draft.UpdatedAt = createdBy, createdAt, updatedAt
}

// AddDriveAttachment добавляет вложение по ссылке Google Drive.
// При ErrInvalidDriveURL черновик не меняется, ссылку нужно исправить.
func (s *Session) AddDriveAttachment(displayName, rawURL string) (model.Attachment, error) {
	att, err := model.NewDriveAttachment(displayName, rawURL)
	if err != nil {
		return model.Attachment{}, err
	}
	if err := s.draft.AddAttachment(att); err != nil {
		return model.Attachment{}, err
	}
	return att, nil
}

// UploadAttachment загружает файл и добавляет вложение.
// При ошибке (*model.UploadError) черновик не меняется.
func (s *Session) UploadAttachment(ctx context.Context, file model.LocalFile) (model.Attachment, error) {
	if s.uploader == nil {
		return model.Attachment{}, &model.UploadError{Message: "сервис загрузки не настроен"}
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return model.Attachment{}, ErrBusy
	}
	defer s.inFlight.Store(false)

	att, err := model.UploadAttachment(ctx, s.uploader, file)
	if err != nil {
		s.logger.Warn("Загрузка вложения не удалась",
			slog.String("file", file.Name),
			slog.String("error", err.Error()),
		)
		return model.Attachment{}, err
	}
	if err := s.draft.AddAttachment(att); err != nil {
		return model.Attachment{}, &model.UploadError{Message: "сервис загрузки вернул некорректное вложение", Err: err}
	}
	return att, nil
}

// RemoveAttachment удаляет вложение по индексу после подтверждения.
// confirm == nil — подтверждение уже получено вызывающим.
// Возвращает false, если пользователь отказался.
func (s *Session) RemoveAttachment(index int, confirm ConfirmFunc) (bool, error) {
	if index < 0 || index >= len(s.draft.Attachments) {
		return false, fmt.Errorf("%w: вложение %d из %d", model.ErrIndexOutOfRange, index, len(s.draft.Attachments))
	}
	if confirm != nil && !confirm(s.draft.Attachments[index]) {
		return false, nil
	}
	if _, err := s.draft.RemoveAttachment(index); err != nil {
		return false, err
	}
	return true, nil
}

// AddRequirement добавляет требование в конец списка.
func (s *Session) AddRequirement(requirement string) error {
	return s.draft.AddRequirement(requirement)
}

// RemoveRequirement удаляет требование по индексу.
func (s *Session) RemoveRequirement(index int) error {
	_, err := s.draft.RemoveRequirement(index)
	return err
}

// SaveResult — результат сохранения.
type SaveResult struct {
	// Item — запись в том виде, в каком её сохранил сервер
	Item *model.ContentItem
	// Message — сообщение сервера для пользователя
	Message string
}

// Save проверяет черновик и отправляет его в Content API целиком.
//
// *model.ValidationError — запрос не отправлялся, Fields указывает поля
// для подсветки. Ошибка Content API (*contentclient.APIError) оставляет
// черновик как был, сохранение можно повторить. После успешного создания
// сессия переходит в режим обновления.
func (s *Session) Save(ctx context.Context) (*SaveResult, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.inFlight.Store(false)

	prepared := s.draft.Clone()
	if err := prepared.Prepare(); err != nil {
		return nil, err
	}

	var (
		saved *model.ContentItem
		msg   string
		err   error
	)
	switch s.mode {
	case ModeCreate:
		saved, msg, err = s.api.Create(ctx, prepared)
	case ModeUpdate:
		saved, msg, err = s.api.Update(ctx, prepared)
	default:
		return nil, fmt.Errorf("неизвестный режим сессии %q", s.mode)
	}
	if err != nil {
		s.logger.Warn("Сохранение не удалось, черновик сохранён",
			slog.String("mode", string(s.mode)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	if saved == nil {
		saved = prepared
	}

	s.draft = saved.Clone()
	if s.mode == ModeCreate && saved.ID != "" {
		s.mode = ModeUpdate
		s.logger = s.logger.With(slog.String("id", saved.ID))
	}
	s.logger.Info("Запись сохранена")
	return &SaveResult{Item: saved.Clone(), Message: msg}, nil
}
