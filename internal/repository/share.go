package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/matatunos/moco/internal/domain/model"
)

// ShareRepository — репозиторий выданных прав доступа к папкам.
type ShareRepository struct {
	db DBTX
}

// NewShareRepository создаёт репозиторий шар.
func NewShareRepository(db DBTX) *ShareRepository {
	return &ShareRepository{db: db}
}

// Create выдаёт доступ к папке. Повторная выдача тому же
// пользователю возвращает ErrConflict.
func (r *ShareRepository) Create(ctx context.Context, s *model.SharedFolder) error {
	query := `
		INSERT INTO shared_folders (folder_id, shared_with_user_id, permission)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query, s.FolderID, s.SharedWithUserID, s.Permission).
		Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка выдачи доступа: %w", err)
	}

	return nil
}

// GetByID возвращает шару по ID.
func (r *ShareRepository) GetByID(ctx context.Context, id int64) (*model.SharedFolder, error) {
	query := `
		SELECT s.id, s.folder_id, s.shared_with_user_id, u.username, s.permission, s.created_at
		FROM shared_folders s
		JOIN users u ON u.id = s.shared_with_user_id
		WHERE s.id = $1`

	s := &model.SharedFolder{}
	err := r.db.QueryRow(ctx, query, id).Scan(&s.ID, &s.FolderID,
		&s.SharedWithUserID, &s.SharedWithUsername, &s.Permission, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения шары: %w", err)
	}

	return s, nil
}

// ListByFolder возвращает все выданные права на папку.
func (r *ShareRepository) ListByFolder(ctx context.Context, folderID int64) ([]*model.SharedFolder, error) {
	query := `
		SELECT s.id, s.folder_id, s.shared_with_user_id, u.username, s.permission, s.created_at
		FROM shared_folders s
		JOIN users u ON u.id = s.shared_with_user_id
		WHERE s.folder_id = $1
		ORDER BY s.created_at, s.id`

	rows, err := r.db.Query(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка шар: %w", err)
	}
	defer rows.Close()

	var shares []*model.SharedFolder
	for rows.Next() {
		s := &model.SharedFolder{}
		if err := rows.Scan(&s.ID, &s.FolderID, &s.SharedWithUserID,
			&s.SharedWithUsername, &s.Permission, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения шары: %w", err)
		}
		shares = append(shares, s)
	}

	return shares, rows.Err()
}

// GetPermission возвращает право пользователя на папку.
// Если доступ не выдан — возвращает nil без ошибки.
func (r *ShareRepository) GetPermission(ctx context.Context, folderID, userID int64) (*string, error) {
	query := `
		SELECT permission
		FROM shared_folders
		WHERE folder_id = $1 AND shared_with_user_id = $2`

	var permission string
	err := r.db.QueryRow(ctx, query, folderID, userID).Scan(&permission)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка проверки доступа: %w", err)
	}

	return &permission, nil
}

// ListFoldersSharedWith возвращает папки, к которым пользователю
// выдан доступ, вместе с выданным правом.
func (r *ShareRepository) ListFoldersSharedWith(ctx context.Context, userID int64) ([]*model.Folder, map[int64]string, error) {
	query := `
		SELECT f.id, f.name, f.path, f.parent_id, f.user_id, f.created_at, s.permission
		FROM shared_folders s
		JOIN folders f ON f.id = s.folder_id
		WHERE s.shared_with_user_id = $1
		ORDER BY f.name`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка получения доступных папок: %w", err)
	}
	defer rows.Close()

	var folders []*model.Folder
	permissions := make(map[int64]string)
	for rows.Next() {
		f := &model.Folder{}
		var permission string
		if err := rows.Scan(&f.ID, &f.Name, &f.Path, &f.ParentID,
			&f.UserID, &f.CreatedAt, &permission); err != nil {
			return nil, nil, fmt.Errorf("ошибка чтения доступной папки: %w", err)
		}
		folders = append(folders, f)
		permissions[f.ID] = permission
	}

	return folders, permissions, rows.Err()
}

// Delete удаляет шару.
func (r *ShareRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM shared_folders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка отзыва доступа: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteByFolderIDs удаляет шары перечисленных папок.
func (r *ShareRepository) DeleteByFolderIDs(ctx context.Context, folderIDs []int64) error {
	if len(folderIDs) == 0 {
		return nil
	}

	_, err := r.db.Exec(ctx, `DELETE FROM shared_folders WHERE folder_id = ANY($1)`, folderIDs)
	if err != nil {
		return fmt.Errorf("ошибка удаления шар поддерева: %w", err)
	}

	return nil
}

// DeleteByUser удаляет все шары, связанные с пользователем:
// и выданные ему, и выданные на его папки.
func (r *ShareRepository) DeleteByUser(ctx context.Context, userID int64) error {
	query := `
		DELETE FROM shared_folders
		WHERE shared_with_user_id = $1
		   OR folder_id IN (SELECT id FROM folders WHERE user_id = $1)`

	_, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("ошибка удаления шар пользователя: %w", err)
	}

	return nil
}
