package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/matatunos/moco/internal/blob"
	"github.com/matatunos/moco/internal/domain/authz"
	"github.com/matatunos/moco/internal/domain/model"
	"github.com/matatunos/moco/internal/repository"
)

// FolderService — операции над иерархией папок.
type FolderService struct {
	folders *repository.FolderRepository
	shares  *repository.ShareRepository
	tx      *repository.TxRunner
	blobs   blob.Store
	cache   *FileCache
	logger  *slog.Logger
}

// NewFolderService создаёт сервис папок.
func NewFolderService(
	folders *repository.FolderRepository,
	shares *repository.ShareRepository,
	tx *repository.TxRunner,
	blobs blob.Store,
	cache *FileCache,
	logger *slog.Logger,
) *FolderService {
	return &FolderService{
		folders: folders,
		shares:  shares,
		tx:      tx,
		blobs:   blobs,
		cache:   cache,
		logger:  logger,
	}
}

// Create создаёт папку. При parentID == nil папка создаётся
// в корне субъекта. Путь вычисляется как путь родителя + имя + "/".
func (s *FolderService) Create(ctx context.Context, p authz.Principal, name string, parentID *int64) (*model.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: требуется имя папки", ErrValidation)
	}
	if strings.Contains(name, "/") {
		return nil, fmt.Errorf("%w: имя папки не может содержать /", ErrValidation)
	}
	if name == model.RootFolderName {
		return nil, fmt.Errorf("%w: имя %q зарезервировано", ErrValidation, model.RootFolderName)
	}
	if len(name) > 255 {
		return nil, fmt.Errorf("%w: имя папки слишком длинное", ErrValidation)
	}

	parent, err := s.resolveParent(ctx, p, parentID)
	if err != nil {
		return nil, err
	}

	folder := &model.Folder{
		Name:     name,
		Path:     parent.Path + name + "/",
		ParentID: &parent.ID,
		UserID:   p.ID,
	}
	if err := s.folders.Create(ctx, folder); err != nil {
		return nil, err
	}

	s.logger.Info("Папка создана",
		slog.Int64("folder_id", folder.ID),
		slog.Int64("user_id", p.ID),
		slog.String("path", folder.Path),
	)

	return folder, nil
}

// Delete удаляет папку вместе со всем поддеревом: вложенными папками,
// файлами и выданными на них грантами. Строки базы удаляются в одной
// транзакции, blob-содержимое — после успешного коммита.
// Корневую папку удалить нельзя.
func (s *FolderService) Delete(ctx context.Context, p authz.Principal, folderID int64) error {
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	// Удаление — мутация: нужна папка во владении либо грант write
	var granted *string
	if folder.UserID != p.ID {
		granted, err = resolveSubtreeGrant(ctx, s.folders, s.shares, p, folder)
		if err != nil {
			return err
		}
	}
	res := authz.Resource{Exists: true, OwnerID: folder.UserID, GrantedPermission: granted}
	switch authz.Decide(p, authz.ActionWrite, res) {
	case authz.DecisionAllowed:
	case authz.DecisionForbidden:
		return ErrForbidden
	default:
		return ErrNotFound
	}

	// Корень не удаляется даже владельцем и грантополучателем
	if folder.IsRoot() {
		return fmt.Errorf("%w: корневую папку удалить нельзя", ErrValidation)
	}

	var doomed []*model.File
	err = s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		folders := repository.NewFolderRepository(tx)
		files := repository.NewFileRepository(tx)
		shares := repository.NewShareRepository(tx)

		subtree, err := folders.ListDescendants(ctx, folder.ID)
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(subtree))
		for _, f := range subtree {
			ids = append(ids, f.ID)
		}

		doomed, err = files.ListByFolderIDs(ctx, ids)
		if err != nil {
			return err
		}

		if err := files.DeleteByFolderIDs(ctx, ids); err != nil {
			return err
		}
		if err := shares.DeleteByFolderIDs(ctx, ids); err != nil {
			return err
		}
		return folders.DeleteByIDs(ctx, ids)
	})
	if err != nil {
		return err
	}

	// Содержимое удаляется после коммита: потерянный blob безопаснее,
	// чем строка метаданных без содержимого
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

	s.logger.Info("Папка удалена",
		slog.Int64("folder_id", folder.ID),
		slog.Int64("user_id", p.ID),
		slog.Int("files_removed", len(doomed)),
	)

	return nil
}

// resolveParent возвращает родительскую папку для создания вложенной.
// nil означает корень субъекта. Чужой родитель не раскрывается.
func (s *FolderService) resolveParent(ctx context.Context, p authz.Principal, parentID *int64) (*model.Folder, error) {
	if parentID == nil {
		root, err := s.folders.GetRoot(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("ошибка поиска корневой папки: %w", err)
		}
		return root, nil
	}

	parent, err := s.folders.GetByID(ctx, *parentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if parent.UserID != p.ID {
		return nil, ErrNotFound
	}

	return parent, nil
}
