// Пакет drive — разбор ссылок Google Drive и построение канонических
// ссылок просмотра, скачивания и предпросмотра файла.
// Чистые функции без сетевых обращений.
package drive

import (
	"errors"
	"strings"
)

// ErrInvalidDriveURL — из строки не удалось извлечь идентификатор файла Google Drive.
var ErrInvalidDriveURL = errors.New("некорректная ссылка Google Drive")

// Допустимые длины «голого» идентификатора файла Drive.
const (
	bareIDLenShort = 33
	bareIDLenLong  = 44
)

const baseURL = "https://drive.google.com"

// Links — идентификатор файла Drive и производные от него ссылки.
type Links struct {
	// FileID — идентификатор файла в Google Drive
	FileID string
	// ViewLink — страница просмотра файла
	ViewLink string
	// DownloadLink — прямое скачивание
	DownloadLink string
	// PreviewLink — встраиваемый предпросмотр
	PreviewLink string
}

// idRule — правило извлечения ID: маркер в строке и символы,
// на которых значение заканчивается.
type idRule struct {
	marker     string
	terminator string
}

// Порядок правил важен: срабатывает первое найденное.
var idRules = []idRule{
	{marker: "/file/d/", terminator: "/?#"},
	{marker: "open?id=", terminator: "&#"},
	{marker: "uc?id=", terminator: "&#"},
}

// Resolve извлекает идентификатор файла из ссылки Google Drive
// или «голого» ID и возвращает канонические ссылки.
//
// Поддерживаемые формы:
//   - https://drive.google.com/file/d/{id}/view?usp=sharing
//   - https://drive.google.com/open?id={id}
//   - https://drive.google.com/uc?id={id}&export=download
//   - {id} длиной 33 или 44 символа
//
// ID состоит только из символов [A-Za-z0-9_-]. Если маркер найден, но
// значение после него пустое или содержит другие символы, возвращается
// ErrInvalidDriveURL без перехода к следующим правилам.
func Resolve(raw string) (Links, error) {
	input := strings.TrimSpace(raw)
	if input == "" {
		return Links{}, ErrInvalidDriveURL
	}

	for _, rule := range idRules {
		idx := strings.Index(input, rule.marker)
		if idx < 0 {
			continue
		}
		rest := input[idx+len(rule.marker):]
		if end := strings.IndexAny(rest, rule.terminator); end >= 0 {
			rest = rest[:end]
		}
		if !isFileID(rest) {
			return Links{}, ErrInvalidDriveURL
		}
		return LinksFor(rest), nil
	}

	if n := len(input); (n == bareIDLenShort || n == bareIDLenLong) && isFileID(input) {
		return LinksFor(input), nil
	}

	return Links{}, ErrInvalidDriveURL
}

// isFileID сообщает, что s — непустой ID из символов [A-Za-z0-9_-].
func isFileID(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}

// LinksFor строит канонические ссылки для известного ID файла.
func LinksFor(fileID string) Links {
	return Links{
		FileID:       fileID,
		ViewLink:     baseURL + "/file/d/" + fileID + "/view",
		DownloadLink: baseURL + "/uc?export=download&id=" + fileID,
		PreviewLink:  baseURL + "/file/d/" + fileID + "/preview",
	}
}
