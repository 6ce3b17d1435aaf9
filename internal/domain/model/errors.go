// errors.go — ошибки доменной модели контента и вложений.
package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/h4ck3r-coding/csc-portal/content-module/internal/domain/drive"
)

var (
	// ErrValidation — черновик не прошёл проверку перед сохранением.
	ErrValidation = errors.New("ошибка валидации")
	// ErrInvalidDriveURL — ссылка Google Drive не распознана.
	ErrInvalidDriveURL = drive.ErrInvalidDriveURL
	// ErrInvalidAttachment — запись вложения не согласована со своим источником.
	ErrInvalidAttachment = errors.New("некорректное вложение")
	// ErrUpload — загрузка файла на сервер не удалась.
	ErrUpload = errors.New("ошибка загрузки файла")
	// ErrIndexOutOfRange — индекс элемента списка вне диапазона.
	ErrIndexOutOfRange = errors.New("индекс вне диапазона")
	// ErrUnknownContentType — неизвестный тип контента.
	ErrUnknownContentType = errors.New("неизвестный тип контента")
)

// ValidationError — ошибка валидации с перечнем проблемных полей.
// Сопоставляется с ErrValidation через errors.Is.
type ValidationError struct {
	// Fields — имена полей, которые нужно подсветить в форме
	Fields []string
	// Message — описание ошибки
	Message string
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

// Is позволяет сравнивать ошибку с ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// UploadError — ошибка загрузки файла с сообщением от сервиса загрузки.
// Сопоставляется с ErrUpload через errors.Is.
type UploadError struct {
	// Message — сообщение для пользователя
	Message string
	// Err — исходная ошибка сервиса загрузки
	Err error
}

// Error реализует интерфейс error.
func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap возвращает исходную ошибку.
func (e *UploadError) Unwrap() error {
	return e.Err
}

// Is позволяет сравнивать ошибку с ErrUpload.
func (e *UploadError) Is(target error) bool {
	return target == ErrUpload
}
