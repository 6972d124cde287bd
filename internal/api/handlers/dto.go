package handlers

import (
	"time"

	"github.com/matatunos/moco/internal/domain/model"
	"github.com/matatunos/moco/internal/service"
)

// userResponse — пользователь в ответах API. Хэш пароля не отдаётся.
type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// folderResponse — папка в ответах API.
type folderResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	ParentID  *int64    `json:"parent_id"`
	CreatedAt time.Time `json:"created_at"`
}

func toFolderResponse(f *model.Folder) folderResponse {
	return folderResponse{
		ID:        f.ID,
		Name:      f.Name,
		Path:      f.Path,
		ParentID:  f.ParentID,
		CreatedAt: f.CreatedAt,
	}
}

// fileResponse — файл в ответах API.
type fileResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	OriginalName string    `json:"original_name"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mime_type"`
	FolderID     *int64    `json:"folder_id"`
	CreatedAt    time.Time `json:"created_at"`
}

func toFileResponse(f *model.File) fileResponse {
	return fileResponse{
		ID:           f.ID,
		Name:         f.Name,
		OriginalName: f.OriginalName,
		Size:         f.Size,
		MimeType:     f.MimeType,
		FolderID:     f.FolderID,
		CreatedAt:    f.CreatedAt,
	}
}

// listItemResponse — элемент листинга: папка или файл.
// Папки идут первыми; расшаренные отмечаются флагом shared
// с уровнем доступа.
type listItemResponse struct {
	ID         int64     `json:"id"`
	Type       string    `json:"type"`
	Name       string    `json:"name"`
	Path       string    `json:"path,omitempty"`
	Size       int64     `json:"size,omitempty"`
	MimeType   string    `json:"mime_type,omitempty"`
	Shared     bool      `json:"shared,omitempty"`
	Permission string    `json:"permission,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toListResponse(listing *service.Listing) []listItemResponse {
	items := make([]listItemResponse, 0, len(listing.Folders)+len(listing.Files))
	for _, entry := range listing.Folders {
		items = append(items, listItemResponse{
			ID:         entry.Folder.ID,
			Type:       "folder",
			Name:       entry.Folder.Name,
			Path:       entry.Folder.Path,
			Shared:     entry.Shared,
			Permission: entry.Permission,
			CreatedAt:  entry.Folder.CreatedAt,
		})
	}
	for _, f := range listing.Files {
		items = append(items, listItemResponse{
			ID:        f.ID,
			Type:      "file",
			Name:      f.Name,
			Size:      f.Size,
			MimeType:  f.MimeType,
			CreatedAt: f.CreatedAt,
		})
	}

	return items
}

// shareResponse — выданный доступ в ответах API.
type shareResponse struct {
	ID         int64     `json:"id"`
	FolderID   int64     `json:"folder_id"`
	Username   string    `json:"username"`
	Permission string    `json:"permission"`
	CreatedAt  time.Time `json:"created_at"`
}

func toShareResponse(s *model.SharedFolder) shareResponse {
	return shareResponse{
		ID:         s.ID,
		FolderID:   s.FolderID,
		Username:   s.SharedWithUsername,
		Permission: s.Permission,
		CreatedAt:  s.CreatedAt,
	}
}
