package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/matatunos/moco/internal/domain/model"
)

// FileRepository — репозиторий метаданных файлов.
// Содержимое файлов хранится отдельно, в blob-хранилище.
type FileRepository struct {
	db DBTX
}

// NewFileRepository создаёт репозиторий файлов.
func NewFileRepository(db DBTX) *FileRepository {
	return &FileRepository{db: db}
}

// Create сохраняет метаданные файла.
func (r *FileRepository) Create(ctx context.Context, f *model.File) error {
	query := `
		INSERT INTO files (name, original_name, size, mime_type, storage_key, folder_id, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		f.Name, f.OriginalName, f.Size, f.MimeType, f.StorageKey, f.FolderID, f.UserID,
	).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка сохранения метаданных файла: %w", err)
	}

	return nil
}

// GetByID возвращает файл по ID без фильтра по владельцу.
func (r *FileRepository) GetByID(ctx context.Context, id int64) (*model.File, error) {
	query := `
		SELECT id, name, original_name, size, mime_type, storage_key, folder_id, user_id, created_at
		FROM files
		WHERE id = $1`

	f := &model.File{}
	err := r.db.QueryRow(ctx, query, id).Scan(&f.ID, &f.Name, &f.OriginalName,
		&f.Size, &f.MimeType, &f.StorageKey, &f.FolderID, &f.UserID, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения файла: %w", err)
	}

	return f, nil
}

// ListInFolder возвращает файлы папки владельца folder'а.
func (r *FileRepository) ListInFolder(ctx context.Context, folderID int64) ([]*model.File, error) {
	query := `
		SELECT id, name, original_name, size, mime_type, storage_key, folder_id, user_id, created_at
		FROM files
		WHERE folder_id = $1
		ORDER BY name`

	rows, err := r.db.Query(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка файлов: %w", err)
	}
	defer rows.Close()

	return scanFiles(rows)
}

// ListNamesInFolder возвращает имена файлов в папке.
// Используется при подборе свободного имени для загрузки.
func (r *FileRepository) ListNamesInFolder(ctx context.Context, folderID int64) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name FROM files WHERE folder_id = $1`, folderID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения имён файлов: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("ошибка чтения имени файла: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// ListByFolderIDs возвращает файлы всех перечисленных папок.
// Используется при рекурсивном удалении поддерева.
func (r *FileRepository) ListByFolderIDs(ctx context.Context, folderIDs []int64) ([]*model.File, error) {
	if len(folderIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, name, original_name, size, mime_type, storage_key, folder_id, user_id, created_at
		FROM files
		WHERE folder_id = ANY($1)`

	rows, err := r.db.Query(ctx, query, folderIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения файлов поддерева: %w", err)
	}
	defer rows.Close()

	return scanFiles(rows)
}

// ListForUserPurge возвращает файлы, затрагиваемые удалением
// пользователя: его собственные и лежащие в его папках
// (в том числе загруженные туда другими по гранту write).
func (r *FileRepository) ListForUserPurge(ctx context.Context, userID int64) ([]*model.File, error) {
	query := `
		SELECT id, name, original_name, size, mime_type, storage_key, folder_id, user_id, created_at
		FROM files
		WHERE user_id = $1
		   OR folder_id IN (SELECT id FROM folders WHERE user_id = $1)`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения файлов пользователя: %w", err)
	}
	defer rows.Close()

	return scanFiles(rows)
}

// Delete удаляет метаданные файла.
func (r *FileRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления файла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteByFolderIDs удаляет метаданные файлов перечисленных папок.
func (r *FileRepository) DeleteByFolderIDs(ctx context.Context, folderIDs []int64) error {
	if len(folderIDs) == 0 {
		return nil
	}

	_, err := r.db.Exec(ctx, `DELETE FROM files WHERE folder_id = ANY($1)`, folderIDs)
	if err != nil {
		return fmt.Errorf("ошибка удаления файлов поддерева: %w", err)
	}

	return nil
}

// DeleteForUserPurge удаляет метаданные файлов, затрагиваемых
// удалением пользователя. Симметричен ListForUserPurge.
func (r *FileRepository) DeleteForUserPurge(ctx context.Context, userID int64) error {
	query := `
		DELETE FROM files
		WHERE user_id = $1
		   OR folder_id IN (SELECT id FROM folders WHERE user_id = $1)`

	_, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("ошибка удаления файлов пользователя: %w", err)
	}

	return nil
}

func scanFiles(rows pgx.Rows) ([]*model.File, error) {
	var files []*model.File
	for rows.Next() {
		f := &model.File{}
		if err := rows.Scan(&f.ID, &f.Name, &f.OriginalName, &f.Size, &f.MimeType,
			&f.StorageKey, &f.FolderID, &f.UserID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения файла: %w", err)
		}
		files = append(files, f)
	}

	return files, rows.Err()
}
