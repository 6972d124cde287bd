package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/matatunos/moco/internal/domain/model"
)

// FolderRepository — репозиторий папок.
type FolderRepository struct {
	db DBTX
}

// NewFolderRepository создаёт репозиторий папок.
func NewFolderRepository(db DBTX) *FolderRepository {
	return &FolderRepository{db: db}
}

// Create создаёт папку. Path должен быть вычислен вызывающей стороной.
func (r *FolderRepository) Create(ctx context.Context, f *model.Folder) error {
	query := `
		INSERT INTO folders (name, path, parent_id, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query, f.Name, f.Path, f.ParentID, f.UserID).
		Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания папки: %w", err)
	}

	return nil
}

// GetByID возвращает папку по ID без фильтра по владельцу.
// Решение о доступе принимает вызывающая сторона.
func (r *FolderRepository) GetByID(ctx context.Context, id int64) (*model.Folder, error) {
	query := `
		SELECT id, name, path, parent_id, user_id, created_at
		FROM folders
		WHERE id = $1`

	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// GetRoot возвращает корневую папку пользователя.
func (r *FolderRepository) GetRoot(ctx context.Context, userID int64) (*model.Folder, error) {
	query := `
		SELECT id, name, path, parent_id, user_id, created_at
		FROM folders
		WHERE user_id = $1 AND parent_id IS NULL`

	return r.scanOne(r.db.QueryRow(ctx, query, userID))
}

// ListChildren возвращает дочерние папки. При parentID == nil
// возвращает папки верхнего уровня владельца, исключая корневую.
func (r *FolderRepository) ListChildren(ctx context.Context, userID int64, parentID *int64) ([]*model.Folder, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if parentID == nil {
		query := `
			SELECT f.id, f.name, f.path, f.parent_id, f.user_id, f.created_at
			FROM folders f
			JOIN folders root ON root.id = f.parent_id
			WHERE f.user_id = $1 AND root.parent_id IS NULL
			ORDER BY f.name`
		rows, err = r.db.Query(ctx, query, userID)
	} else {
		query := `
			SELECT id, name, path, parent_id, user_id, created_at
			FROM folders
			WHERE user_id = $1 AND parent_id = $2
			ORDER BY name`
		rows, err = r.db.Query(ctx, query, userID, *parentID)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка папок: %w", err)
	}
	defer rows.Close()

	return scanFolders(rows)
}

// ListDescendants возвращает все папки поддерева, включая саму папку.
// Порядок — от корня поддерева к листьям.
func (r *FolderRepository) ListDescendants(ctx context.Context, folderID int64) ([]*model.Folder, error) {
	query := `
		WITH RECURSIVE subtree AS (
			SELECT id, name, path, parent_id, user_id, created_at, 0 AS depth
			FROM folders
			WHERE id = $1
			UNION ALL
			SELECT f.id, f.name, f.path, f.parent_id, f.user_id, f.created_at, s.depth + 1
			FROM folders f
			JOIN subtree s ON f.parent_id = s.id
		)
		SELECT id, name, path, parent_id, user_id, created_at
		FROM subtree
		ORDER BY depth, id`

	rows, err := r.db.Query(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("ошибка обхода поддерева папок: %w", err)
	}
	defer rows.Close()

	return scanFolders(rows)
}

// DeleteByIDs удаляет папки по списку ID. Файлы и шары внутри
// должны быть удалены вызывающей стороной заранее.
func (r *FolderRepository) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.db.Exec(ctx, `DELETE FROM folders WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("ошибка удаления папок: %w", err)
	}

	return nil
}

// DeleteByOwner удаляет все папки пользователя.
func (r *FolderRepository) DeleteByOwner(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM folders WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("ошибка удаления папок пользователя: %w", err)
	}

	return nil
}

func (r *FolderRepository) scanOne(row pgx.Row) (*model.Folder, error) {
	f := &model.Folder{}
	err := row.Scan(&f.ID, &f.Name, &f.Path, &f.ParentID, &f.UserID, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения папки: %w", err)
	}

	return f, nil
}

func scanFolders(rows pgx.Rows) ([]*model.Folder, error) {
	var folders []*model.Folder
	for rows.Next() {
		f := &model.Folder{}
		if err := rows.Scan(&f.ID, &f.Name, &f.Path, &f.ParentID,
			&f.UserID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения папки: %w", err)
		}
		folders = append(folders, f)
	}

	return folders, rows.Err()
}
