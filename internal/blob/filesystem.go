package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemStore хранит объекты в локальной файловой системе.
// Запись атомарна: сначала во временный файл с fsync,
// затем переименование на место.
type FilesystemStore struct {
	baseDir string
}

// NewFilesystemStore создаёт хранилище в каталоге baseDir.
// Каталог создаётся, если отсутствует.
func NewFilesystemStore(baseDir string) (*FilesystemStore, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("ошибка определения пути хранилища: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога хранилища: %w", err)
	}

	return &FilesystemStore{baseDir: abs}, nil
}

// Save сохраняет содержимое под ключом.
func (s *FilesystemStore) Save(_ context.Context, key string, r io.Reader) (int64, error) {
	path, err := s.resolve(key)
	if err != nil {
		return 0, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return 0, fmt.Errorf("ошибка создания каталога: %w", err)
	}

	// Временный файл в том же каталоге, чтобы rename был атомарным
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		return 0, fmt.Errorf("ошибка записи содержимого: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("ошибка fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("ошибка закрытия временного файла: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return 0, fmt.Errorf("ошибка переименования временного файла: %w", err)
	}

	return written, nil
}

// Open открывает объект для чтения.
func (s *FilesystemStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка открытия объекта: %w", err)
	}

	return f, nil
}

// Delete удаляет объект. Отсутствующий объект — не ошибка.
func (s *FilesystemStore) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления объекта: %w", err)
	}

	return nil
}

// resolve преобразует ключ в путь внутри baseDir.
// Ключи с выходом за пределы каталога отклоняются.
func (s *FilesystemStore) resolve(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("пустой ключ объекта")
	}

	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("недопустимый ключ объекта: %s", key)
	}

	return filepath.Join(s.baseDir, clean), nil
}
