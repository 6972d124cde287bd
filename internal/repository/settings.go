package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/matatunos/moco/internal/domain/model"
)

// SettingsRepository — репозиторий глобальных настроек (ключ/значение).
type SettingsRepository struct {
	db DBTX
}

// NewSettingsRepository создаёт репозиторий настроек.
func NewSettingsRepository(db DBTX) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get возвращает значение настройки по ключу.
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRow(ctx,
		`SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("ошибка чтения настройки %q: %w", key, err)
	}

	return value, nil
}

// GetAll возвращает все настройки.
func (r *SettingsRepository) GetAll(ctx context.Context) ([]model.Setting, error) {
	rows, err := r.db.Query(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения настроек: %w", err)
	}
	defer rows.Close()

	var settings []model.Setting
	for rows.Next() {
		var s model.Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, fmt.Errorf("ошибка чтения настройки: %w", err)
		}
		settings = append(settings, s)
	}

	return settings, rows.Err()
}

// Set записывает значение настройки (upsert).
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`

	_, err := r.db.Exec(ctx, query, key, value)
	if err != nil {
		return fmt.Errorf("ошибка записи настройки %q: %w", key, err)
	}

	return nil
}
