package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/matatunos/moco/internal/domain/model"
	"github.com/matatunos/moco/internal/repository"
)

// Значения по умолчанию применяются, когда настройка
// отсутствует в базе (например, после частичной миграции).
const (
	defaultMaxFileSize       = 104857600 // 100 МиБ
	defaultAllowRegistration = true
)

// settingValidators — схема допустимых настроек.
// Ключи вне схемы отклоняются, значения проверяются по типу.
var settingValidators = map[string]func(value string) error{
	model.SettingAllowRegistration: func(v string) error {
		if v != "0" && v != "1" {
			return fmt.Errorf("допустимые значения: 0 или 1")
		}
		return nil
	},
	model.SettingMaxFileSize: func(v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("ожидается положительное целое число байт")
		}
		return nil
	},
	model.SettingAllowedExtensions: func(v string) error {
		if v == "all" {
			return nil
		}
		for _, ext := range strings.Split(v, ",") {
			ext = strings.TrimSpace(ext)
			if ext == "" || strings.ContainsAny(ext, "./\\") {
				return fmt.Errorf("ожидается all либо список расширений через запятую")
			}
		}
		return nil
	},
}

// SettingsService — глобальные настройки сервиса.
type SettingsService struct {
	settings *repository.SettingsRepository
	tx       *repository.TxRunner
	logger   *slog.Logger
}

// NewSettingsService создаёт сервис настроек.
func NewSettingsService(settings *repository.SettingsRepository, tx *repository.TxRunner, logger *slog.Logger) *SettingsService {
	return &SettingsService{settings: settings, tx: tx, logger: logger}
}

// GetAll возвращает настройки для администратора.
// Служебные ключи скрываются.
func (s *SettingsService) GetAll(ctx context.Context) ([]model.Setting, error) {
	all, err := s.settings.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	visible := make([]model.Setting, 0, len(all))
	for _, setting := range all {
		if setting.Key == model.SettingBootstrapAdminAssigned {
			continue
		}
		visible = append(visible, setting)
	}

	return visible, nil
}

// Update применяет пакет изменений настроек.
// Сначала валидируются все пары, затем запись выполняется
// в одной транзакции — читатели не увидят частичного обновления.
func (s *SettingsService) Update(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: пустой набор настроек", ErrValidation)
	}

	for key, value := range values {
		validate, ok := settingValidators[key]
		if !ok {
			return fmt.Errorf("%w: неизвестная настройка %q", ErrValidation, key)
		}
		if err := validate(value); err != nil {
			return fmt.Errorf("%w: настройка %q: %s", ErrValidation, key, err)
		}
	}

	err := s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		repo := repository.NewSettingsRepository(tx)
		for key, value := range values {
			if err := repo.Set(ctx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Настройки обновлены", slog.Int("count", len(values)))
	return nil
}

// CanRegister сообщает, открыта ли регистрация новых пользователей.
func (s *SettingsService) CanRegister(ctx context.Context) (bool, error) {
	value, err := s.settings.Get(ctx, model.SettingAllowRegistration)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return defaultAllowRegistration, nil
		}
		return false, err
	}

	return value != "0", nil
}

// MaxFileSize возвращает лимит размера загружаемого файла в байтах.
func (s *SettingsService) MaxFileSize(ctx context.Context) (int64, error) {
	value, err := s.settings.Get(ctx, model.SettingMaxFileSize)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return defaultMaxFileSize, nil
		}
		return 0, err
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		s.logger.Warn("Некорректное значение max_file_size, используется значение по умолчанию",
			slog.String("value", value))
		return defaultMaxFileSize, nil
	}

	return n, nil
}

// ExtensionAllowed проверяет расширение имени файла против
// настройки allowed_extensions.
func (s *SettingsService) ExtensionAllowed(ctx context.Context, fileName string) (bool, error) {
	value, err := s.settings.Get(ctx, model.SettingAllowedExtensions)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return true, nil
		}
		return false, err
	}

	return extensionAllowed(value, fileName), nil
}

// extensionAllowed — чистая проверка расширения против списка.
func extensionAllowed(allowed, fileName string) bool {
	if allowed == "all" {
		return true
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if ext == "" {
		return false
	}

	for _, candidate := range strings.Split(allowed, ",") {
		if strings.ToLower(strings.TrimSpace(candidate)) == ext {
			return true
		}
	}

	return false
}
