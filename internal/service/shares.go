package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/matatunos/moco/internal/domain/authz"
	"github.com/matatunos/moco/internal/domain/model"
	"github.com/matatunos/moco/internal/repository"
)

// ShareService — выдача и отзыв доступа к папкам.
type ShareService struct {
	shares  *repository.ShareRepository
	folders *repository.FolderRepository
	users   *repository.UserRepository
	logger  *slog.Logger
}

// NewShareService создаёт сервис шар.
func NewShareService(
	shares *repository.ShareRepository,
	folders *repository.FolderRepository,
	users *repository.UserRepository,
	logger *slog.Logger,
) *ShareService {
	return &ShareService{shares: shares, folders: folders, users: users, logger: logger}
}

// Grant выдаёт пользователю доступ к папке субъекта.
// Получатель указывается по имени. Самому себе доступ не выдаётся.
func (s *ShareService) Grant(ctx context.Context, p authz.Principal, folderID int64, recipientUsername, permission string) (*model.SharedFolder, error) {
	if recipientUsername == "" {
		return nil, fmt.Errorf("%w: требуется имя получателя", ErrValidation)
	}
	if !model.IsValidPermission(permission) {
		return nil, fmt.Errorf("%w: допустимые права — read или write", ErrValidation)
	}

	folder, err := s.ownedFolder(ctx, p, folderID)
	if err != nil {
		return nil, err
	}

	recipient, err := s.users.GetByUsername(ctx, recipientUsername)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: пользователь %q не найден", ErrNotFound, recipientUsername)
		}
		return nil, err
	}
	if recipient.ID == p.ID {
		return nil, fmt.Errorf("%w: нельзя выдать доступ самому себе", ErrValidation)
	}

	share := &model.SharedFolder{
		FolderID:           folder.ID,
		SharedWithUserID:   recipient.ID,
		SharedWithUsername: recipient.Username,
		Permission:         permission,
	}
	if err := s.shares.Create(ctx, share); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: доступ уже выдан этому пользователю", ErrConflict)
		}
		return nil, err
	}

	s.logger.Info("Доступ к папке выдан",
		slog.Int64("folder_id", folder.ID),
		slog.Int64("owner_id", p.ID),
		slog.Int64("recipient_id", recipient.ID),
		slog.String("permission", permission),
	)

	return share, nil
}

// Revoke отзывает выданный доступ. Отзыв доступен только владельцу папки.
func (s *ShareService) Revoke(ctx context.Context, p authz.Principal, shareID int64) error {
	share, err := s.shares.GetByID(ctx, shareID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if _, err := s.ownedFolder(ctx, p, share.FolderID); err != nil {
		return err
	}

	if err := s.shares.Delete(ctx, share.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	s.logger.Info("Доступ к папке отозван",
		slog.Int64("share_id", share.ID),
		slog.Int64("owner_id", p.ID),
	)

	return nil
}

// ListGrants возвращает выданные права на папку субъекта.
func (s *ShareService) ListGrants(ctx context.Context, p authz.Principal, folderID int64) ([]*model.SharedFolder, error) {
	folder, err := s.ownedFolder(ctx, p, folderID)
	if err != nil {
		return nil, err
	}

	return s.shares.ListByFolder(ctx, folder.ID)
}

// ownedFolder возвращает папку, если она принадлежит субъекту.
// Чужая папка не раскрывается.
func (s *ShareService) ownedFolder(ctx context.Context, p authz.Principal, folderID int64) (*model.Folder, error) {
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if folder.UserID != p.ID {
		return nil, ErrNotFound
	}

	return folder, nil
}
