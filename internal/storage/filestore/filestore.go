// Пакет filestore — хранение загруженных вложений на диске.
// Запись идёт потоком с подсчётом SHA-256 и ограничением размера,
// файлы раскладываются по поддиректориям год/месяц.
package filestore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Ошибки файлового хранилища.
var (
	// ErrTooLarge — данные превышают допустимый размер.
	ErrTooLarge = errors.New("файл превышает допустимый размер")
	// ErrNotFound — файла нет на диске.
	ErrNotFound = errors.New("файл не найден")
	// ErrInvalidPath — путь выходит за пределы директории хранения.
	ErrInvalidPath = errors.New("недопустимый путь файла")
)

// maxNameLen — ограничение длины имени файла на диске (без суффикса и расширения).
const maxNameLen = 50

// FileStore — файлы загрузок на диске.
type FileStore struct {
	// dir — корневая директория загрузок (CM_UPLOAD_DIR)
	dir string
	// now — источник времени (подменяется в тестах)
	now func() time.Time
}

// SaveResult — результат сохранения файла.
type SaveResult struct {
	// StoragePath — путь относительно директории загрузок (разделитель «/»)
	StoragePath string
	// Size — количество записанных байт
	Size int64
	// Checksum — SHA-256 содержимого (hex)
	Checksum string
}

// New создаёт FileStore, при необходимости создавая директорию.
func New(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию загрузок %s: %w", dir, err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

// Dir возвращает корневую директорию загрузок.
func (fs *FileStore) Dir() string {
	return fs.dir
}

// Save записывает данные из reader на диск.
// maxSize > 0 ограничивает размер: при превышении возвращается ErrTooLarge,
// частично записанный файл удаляется.
//
// Паттерн: temp файл → запись + SHA-256 → fsync → atomic rename.
func (fs *FileStore) Save(reader io.Reader, originalFilename string, maxSize int64) (*SaveResult, error) {
	storagePath := fs.generateStoragePath(originalFilename)
	fullPath := filepath.Join(fs.dir, filepath.FromSlash(storagePath))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return nil, fmt.Errorf("ошибка создания директории: %w", err)
	}

	tmpPath := fullPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	src := reader
	if maxSize > 0 {
		// Один лишний байт позволяет отличить «ровно maxSize» от превышения
		src = io.LimitReader(reader, maxSize+1)
	}

	hasher := sha256.New()
	size, err := io.Copy(f, io.TeeReader(src, hasher))
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}
	if maxSize > 0 && size > maxSize {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: больше %d байт", ErrTooLarge, maxSize)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &SaveResult{
		StoragePath: storagePath,
		Size:        size,
		Checksum:    hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Open открывает файл для чтения. Вызывающий обязан закрыть файл.
func (fs *FileStore) Open(storagePath string) (*os.File, error) {
	fullPath, err := fs.resolve(storagePath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, storagePath)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", storagePath, err)
	}
	return f, nil
}

// Delete удаляет файл. Отсутствие файла ошибкой не считается.
func (fs *FileStore) Delete(storagePath string) error {
	fullPath, err := fs.resolve(storagePath)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", storagePath, err)
	}
	return nil
}

// resolve превращает относительный путь в абсолютный внутри директории загрузок.
func (fs *FileStore) resolve(storagePath string) (string, error) {
	if storagePath == "" || filepath.IsAbs(storagePath) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, storagePath)
	}
	cleaned := filepath.Clean(filepath.FromSlash(storagePath))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, storagePath)
	}
	return filepath.Join(fs.dir, cleaned), nil
}

// generateStoragePath генерирует путь файла на диске.
// Формат: {yyyy}/{mm}/{slug}_{uuid8}{.ext}
// Пример: 2026/10/income-certificate_a1b2c3d4.pdf
func (fs *FileStore) generateStoragePath(originalFilename string) string {
	base := filepath.Base(filepath.FromSlash(originalFilename))
	ext := strings.ToLower(filepath.Ext(base))
	name := slug.Make(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" {
		name = "file"
	}
	if len(name) > maxNameLen {
		name = strings.TrimRight(name[:maxNameLen], "-")
	}
	// Расширение — только из безопасных символов
	if len(ext) <= 1 || slug.Make(ext[1:]) != ext[1:] {
		ext = ""
	}

	ts := fs.now().UTC()
	uid := uuid.New().String()[:8]
	return fmt.Sprintf("%04d/%02d/%s_%s%s", ts.Year(), int(ts.Month()), name, uid, ext)
}
