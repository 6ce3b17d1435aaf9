package model

import "time"

// StoredFile — файл, принятый сервисом загрузки и сохранённый на диск.
type StoredFile struct {
	// ID — UUID файла, используется в публичном URL
	ID string
	// OriginalFilename — имя файла на устройстве администратора
	OriginalFilename string
	// StoragePath — путь относительно директории загрузок
	StoragePath string
	// ContentType — MIME-тип
	ContentType string
	// Size — размер в байтах
	Size int64
	// Checksum — SHA-256 содержимого (hex)
	Checksum string
	// UploadedBy — subject загрузившего администратора
	UploadedBy string
	UploadedAt time.Time
}
