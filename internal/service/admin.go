package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/matatunos/moco/internal/blob"
	"github.com/matatunos/moco/internal/domain/authz"
	"github.com/matatunos/moco/internal/domain/model"
	"github.com/matatunos/moco/internal/repository"
)

// AdminService — управление учётными записями.
// Все операции требуют роли администратора.
type AdminService struct {
	users  *repository.UserRepository
	tx     *repository.TxRunner
	blobs  blob.Store
	cache  *FileCache
	logger *slog.Logger
}

// NewAdminService создаёт сервис администрирования.
func NewAdminService(
	users *repository.UserRepository,
	tx *repository.TxRunner,
	blobs blob.Store,
	cache *FileCache,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		users:  users,
		tx:     tx,
		blobs:  blobs,
		cache:  cache,
		logger: logger,
	}
}

// ListUsers возвращает всех пользователей.
func (s *AdminService) ListUsers(ctx context.Context, p authz.Principal) ([]*model.User, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}

	return s.users.List(ctx)
}

// UpdateUser изменяет роль и/или флаг активности пользователя.
// nil-поля остаются без изменений.
func (s *AdminService) UpdateUser(ctx context.Context, p authz.Principal, userID int64, role *string, isActive *bool) (*model.User, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	if role == nil && isActive == nil {
		return nil, fmt.Errorf("%w: требуется role или is_active", ErrValidation)
	}
	if role != nil && !model.IsValidRole(*role) {
		return nil, fmt.Errorf("%w: допустимые роли — user и admin", ErrValidation)
	}

	if err := s.users.Update(ctx, userID, role, isActive); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	updated, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Пользователь обновлён администратором",
		slog.Int64("user_id", userID),
		slog.Int64("admin_id", p.ID),
		slog.String("role", updated.Role),
		slog.Bool("is_active", updated.IsActive),
	)

	return updated, nil
}

// DeleteUser удаляет пользователя со всеми его папками, файлами
// и шарами. Строки базы удаляются в одной транзакции, содержимое
// файлов — после коммита. Самоудаление администратора запрещено.
func (s *AdminService) DeleteUser(ctx context.Context, p authz.Principal, userID int64) error {
	if !p.IsAdmin() {
		return ErrForbidden
	}
	if userID == p.ID {
		return fmt.Errorf("%w: нельзя удалить собственную учётную запись", ErrValidation)
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	var doomed []*model.File
	err := s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		users := repository.NewUserRepository(tx)
		files := repository.NewFileRepository(tx)
		folders := repository.NewFolderRepository(tx)
		shares := repository.NewShareRepository(tx)

		var err error
		doomed, err = files.ListForUserPurge(ctx, userID)
		if err != nil {
			return err
		}

		if err := shares.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		if err := files.DeleteForUserPurge(ctx, userID); err != nil {
			return err
		}
		if err := folders.DeleteByOwner(ctx, userID); err != nil {
			return err
		}
		return users.Delete(ctx, userID)
	})
	if err != nil {
		return err
	}

	for _, f := range doomed {
		s.cache.Invalidate(f.ID)
		if err := s.blobs.Delete(ctx, f.StorageKey); err != nil {
			s.logger.Warn("Не удалось удалить содержимое файла",
				slog.Int64("file_id", f.ID),
				slog.String("storage_key", f.StorageKey),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("Пользователь удалён администратором",
		slog.Int64("user_id", userID),
		slog.Int64("admin_id", p.ID),
		slog.Int("files_removed", len(doomed)),
	)

	return nil
}
