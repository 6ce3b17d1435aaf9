// Пакет service — бизнес-логика Content Module.
// errors.go — ошибки сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — запись контента или файл не найдены.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrFileTooLarge — загружаемый файл превышает допустимый размер.
	ErrFileTooLarge = errors.New("файл превышает допустимый размер")
)
