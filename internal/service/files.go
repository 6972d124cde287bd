package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/matatunos/moco/internal/blob"
	"github.com/matatunos/moco/internal/domain/authz"
	"github.com/matatunos/moco/internal/domain/model"
	"github.com/matatunos/moco/internal/repository"
)

// FolderEntry — папка в листинге. Для расшаренных папок
// дополнительно сообщается выданный уровень доступа.
type FolderEntry struct {
	Folder     *model.Folder
	Shared     bool
	Permission string
}

// Listing — содержимое папки: вложенные папки и файлы.
type Listing struct {
	Folders []FolderEntry
	Files   []*model.File
}

// FileService — загрузка, скачивание, удаление и листинг файлов.
type FileService struct {
	files    *repository.FileRepository
	folders  *repository.FolderRepository
	shares   *repository.ShareRepository
	blobs    blob.Store
	cache    *FileCache
	settings *SettingsService
	logger   *slog.Logger
}

// NewFileService создаёт сервис файлов.
func NewFileService(
	files *repository.FileRepository,
	folders *repository.FolderRepository,
	shares *repository.ShareRepository,
	blobs blob.Store,
	cache *FileCache,
	settings *SettingsService,
	logger *slog.Logger,
) *FileService {
	return &FileService{
		files:    files,
		folders:  folders,
		shares:   shares,
		blobs:    blobs,
		cache:    cache,
		settings: settings,
		logger:   logger,
	}
}

// List возвращает содержимое папки. При folderID == nil — верхний
// уровень субъекта: содержимое его корневой папки плюс папки,
// расшаренные ему другими пользователями.
func (s *FileService) List(ctx context.Context, p authz.Principal, folderID *int64) (*Listing, error) {
	if folderID == nil {
		return s.listTopLevel(ctx, p)
	}

	folder, err := s.authorizeFolder(ctx, p, *folderID, authz.ActionRead)
	if err != nil {
		return nil, err
	}

	children, err := s.folders.ListChildren(ctx, folder.UserID, &folder.ID)
	if err != nil {
		return nil, err
	}
	files, err := s.files.ListInFolder(ctx, folder.ID)
	if err != nil {
		return nil, err
	}
	sharedFolders, permissions, err := s.shares.ListFoldersSharedWith(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	listing := &Listing{Files: files}
	byID := make(map[int64]int, len(children))
	for _, child := range children {
		byID[child.ID] = len(listing.Folders)
		listing.Folders = append(listing.Folders, FolderEntry{Folder: child})
	}
	// Папки, расшаренные субъекту напрямую внутри просматриваемой,
	// отмечаются флагом shared и уровнем доступа
	for _, shared := range sharedFolders {
		if shared.ParentID == nil || *shared.ParentID != folder.ID {
			continue
		}
		if i, ok := byID[shared.ID]; ok {
			listing.Folders[i].Shared = true
			listing.Folders[i].Permission = permissions[shared.ID]
			continue
		}
		listing.Folders = append(listing.Folders, FolderEntry{
			Folder:     shared,
			Shared:     true,
			Permission: permissions[shared.ID],
		})
	}

	return listing, nil
}

func (s *FileService) listTopLevel(ctx context.Context, p authz.Principal) (*Listing, error) {
	root, err := s.folders.GetRoot(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска корневой папки: %w", err)
	}

	children, err := s.folders.ListChildren(ctx, p.ID, &root.ID)
	if err != nil {
		return nil, err
	}
	files, err := s.files.ListInFolder(ctx, root.ID)
	if err != nil {
		return nil, err
	}
	sharedFolders, permissions, err := s.shares.ListFoldersSharedWith(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	listing := &Listing{Files: files}
	for _, child := range children {
		listing.Folders = append(listing.Folders, FolderEntry{Folder: child})
	}
	for _, shared := range sharedFolders {
		listing.Folders = append(listing.Folders, FolderEntry{
			Folder:     shared,
			Shared:     true,
			Permission: permissions[shared.ID],
		})
	}

	return listing, nil
}

// Upload сохраняет файл в папку. При folderID == nil — в корень
// субъекта. Имя при коллизии получает числовой суффикс перед
// расширением. Размер и расширение проверяются против настроек.
func (s *FileService) Upload(ctx context.Context, p authz.Principal, folderID *int64, originalName, declaredMime string, r io.Reader) (*model.File, error) {
	originalName = filepath.Base(strings.TrimSpace(originalName))
	if originalName == "" || originalName == "." || originalName == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: требуется имя файла", ErrValidation)
	}

	var folder *model.Folder
	var err error
	if folderID == nil {
		folder, err = s.folders.GetRoot(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("ошибка поиска корневой папки: %w", err)
		}
	} else {
		folder, err = s.authorizeFolder(ctx, p, *folderID, authz.ActionWrite)
		if err != nil {
			return nil, err
		}
	}

	allowed, err := s.settings.ExtensionAllowed(ctx, originalName)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: расширение файла запрещено настройками", ErrValidation)
	}

	maxSize, err := s.settings.MaxFileSize(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.files.ListNamesInFolder(ctx, folder.ID)
	if err != nil {
		return nil, err
	}
	storedName := uniqueFileName(originalName, existing)

	storageKey := fmt.Sprintf("%d/%s%s", p.ID, uuid.NewString(), filepath.Ext(originalName))

	// Лишний байт сверх лимита позволяет отличить ровно-лимитный
	// файл от превышающего
	size, err := s.blobs.Save(ctx, storageKey, io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if size > maxSize {
		if err := s.blobs.Delete(ctx, storageKey); err != nil {
			s.logger.Warn("Не удалось удалить превысивший лимит файл",
				slog.String("storage_key", storageKey),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("%w: файл превышает лимит %d байт", ErrValidation, maxSize)
	}

	if declaredMime == "" {
		declaredMime = mime.TypeByExtension(filepath.Ext(originalName))
	}
	if declaredMime == "" {
		declaredMime = "application/octet-stream"
	}

	file := &model.File{
		Name:         storedName,
		OriginalName: originalName,
		Size:         size,
		MimeType:     declaredMime,
		StorageKey:   storageKey,
		FolderID:     &folder.ID,
		UserID:       p.ID,
	}
	if err := s.files.Create(ctx, file); err != nil {
		// Строка метаданных не создана — содержимое не оставляем
		if delErr := s.blobs.Delete(ctx, storageKey); delErr != nil {
			s.logger.Warn("Не удалось удалить содержимое после сбоя метаданных",
				slog.String("storage_key", storageKey),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, err
	}

	s.cache.Put(file)
	s.logger.Info("Файл загружен",
		slog.Int64("file_id", file.ID),
		slog.Int64("user_id", p.ID),
		slog.String("name", file.Name),
		slog.Int64("size", file.Size),
	)

	return file, nil
}

// Download возвращает метаданные файла и поток его содержимого.
// Вызывающая сторона обязана закрыть поток.
func (s *FileService) Download(ctx context.Context, p authz.Principal, fileID int64) (*model.File, io.ReadCloser, error) {
	file, err := s.getAuthorized(ctx, p, fileID, authz.ActionRead)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.blobs.Open(ctx, file.StorageKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return file, rc, nil
}

// Delete удаляет файл: сначала содержимое (отсутствующее — не ошибка),
// затем строку метаданных.
func (s *FileService) Delete(ctx context.Context, p authz.Principal, fileID int64) error {
	file, err := s.getAuthorized(ctx, p, fileID, authz.ActionWrite)
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, file.StorageKey); err != nil {
		// Строку не трогаем: ссылка на содержимое не восстановима
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := s.files.Delete(ctx, file.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	s.cache.Invalidate(file.ID)
	s.logger.Info("Файл удалён",
		slog.Int64("file_id", file.ID),
		slog.Int64("user_id", p.ID),
	)

	return nil
}

// getAuthorized загружает файл (через кэш) и проверяет доступ субъекта.
func (s *FileService) getAuthorized(ctx context.Context, p authz.Principal, fileID int64, action authz.Action) (*model.File, error) {
	file, ok := s.cache.Get(fileID)
	if !ok {
		var err error
		file, err = s.files.GetByID(ctx, fileID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		s.cache.Put(file)
	}

	var granted *string
	if file.UserID != p.ID && file.FolderID != nil {
		folder, err := s.folders.GetByID(ctx, *file.FolderID)
		if err == nil {
			granted, err = resolveSubtreeGrant(ctx, s.folders, s.shares, p, folder)
			if err != nil {
				return nil, err
			}
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	res := authz.Resource{Exists: true, OwnerID: file.UserID, GrantedPermission: granted}
	switch authz.Decide(p, action, res) {
	case authz.DecisionAllowed:
		return file, nil
	case authz.DecisionForbidden:
		return nil, ErrForbidden
	default:
		return nil, ErrNotFound
	}
}

// authorizeFolder загружает папку и проверяет доступ субъекта.
func (s *FileService) authorizeFolder(ctx context.Context, p authz.Principal, folderID int64, action authz.Action) (*model.Folder, error) {
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var granted *string
	if folder.UserID != p.ID {
		granted, err = resolveSubtreeGrant(ctx, s.folders, s.shares, p, folder)
		if err != nil {
			return nil, err
		}
	}

	res := authz.Resource{Exists: true, OwnerID: folder.UserID, GrantedPermission: granted}
	switch authz.Decide(p, action, res) {
	case authz.DecisionAllowed:
		return folder, nil
	case authz.DecisionForbidden:
		return nil, ErrForbidden
	default:
		return nil, ErrNotFound
	}
}

// uniqueFileName подбирает свободное имя: при коллизии перед
// расширением добавляется суффикс _1, _2 и так далее.
func uniqueFileName(name string, existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, n := range existing {
		taken[n] = struct{}{}
	}

	if _, ok := taken[name]; !ok {
		return name
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
