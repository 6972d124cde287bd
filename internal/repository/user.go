package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/matatunos/moco/internal/domain/model"
)

// UserRepository — репозиторий пользователей.
type UserRepository struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий пользователей.
// Принимает пул соединений или транзакцию.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create создаёт пользователя. При дублировании username или email
// возвращает ErrConflict.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		u.Username, u.Email, u.PasswordHash, u.Role, u.IsActive,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}

	return nil
}

// ClaimAdminBootstrap пытается захватить маркер назначения первого
// администратора. Возвращает true ровно один раз за время жизни базы —
// для первого успевшего вызова. Конкурентные регистрации безопасны:
// INSERT ... ON CONFLICT DO NOTHING гарантирует единственного победителя.
func (r *UserRepository) ClaimAdminBootstrap(ctx context.Context) (bool, error) {
	query := `
		INSERT INTO settings (key, value)
		VALUES ($1, '1')
		ON CONFLICT (key) DO NOTHING`

	tag, err := r.db.Exec(ctx, query, model.SettingBootstrapAdminAssigned)
	if err != nil {
		return false, fmt.Errorf("ошибка захвата маркера администратора: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// GetByID возвращает пользователя по ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `
		SELECT id, username, email, password_hash, role, is_active, created_at
		FROM users
		WHERE id = $1`

	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// GetByUsername возвращает пользователя по имени.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `
		SELECT id, username, email, password_hash, role, is_active, created_at
		FROM users
		WHERE username = $1`

	return r.scanOne(r.db.QueryRow(ctx, query, username))
}

// List возвращает всех пользователей, отсортированных по дате создания.
func (r *UserRepository) List(ctx context.Context) ([]*model.User, error) {
	query := `
		SELECT id, username, email, password_hash, role, is_active, created_at
		FROM users
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка пользователей: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u := &model.User{}
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
			&u.Role, &u.IsActive, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения пользователя: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// Update обновляет роль и/или активность пользователя.
// nil-поля остаются без изменений.
func (r *UserRepository) Update(ctx context.Context, id int64, role *string, isActive *bool) error {
	query := `
		UPDATE users
		SET role = COALESCE($2, role),
		    is_active = COALESCE($3, is_active)
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, role, isActive)
	if err != nil {
		return fmt.Errorf("ошибка обновления пользователя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete удаляет пользователя. Связанные файлы, папки и шары
// должны быть удалены вызывающей стороной в той же транзакции.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления пользователя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *UserRepository) scanOne(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.Role, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения пользователя: %w", err)
	}

	return u, nil
}
