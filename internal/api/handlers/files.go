package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	apierrors "github.com/matatunos/moco/internal/api/errors"
)

// ListFiles обрабатывает GET /api/files?folder_id=N.
// Без folder_id возвращает верхний уровень субъекта,
// включая расшаренные ему папки.
func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var folderID *int64
	if raw := r.URL.Query().Get("folder_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			apierrors.WriteValidation(w, "folder_id должен быть числом")
			return
		}
		folderID = &id
	}

	listing, err := h.files.List(r.Context(), p, folderID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toListResponse(listing))
}

// UploadFile обрабатывает POST /api/files/upload.
// Ожидает multipart-форму с полем file и необязательным folder_id.
func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	// Размер формы в памяти; остальное уходит во временные файлы
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		apierrors.WriteValidation(w, "ожидается multipart-форма с полем file")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	part, header, err := r.FormFile("file")
	if err != nil {
		apierrors.WriteValidation(w, "файл не передан")
		return
	}
	defer part.Close()

	var folderID *int64
	if raw := r.FormValue("folder_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			apierrors.WriteValidation(w, "folder_id должен быть числом")
			return
		}
		folderID = &id
	}

	file, err := h.files.Upload(r.Context(), p, folderID,
		header.Filename, header.Header.Get("Content-Type"), part)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"file": toFileResponse(file),
	})
}

// DownloadFile обрабатывает GET /api/files/{id}/download.
// Содержимое отдаётся потоком с Content-Disposition: attachment.
func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteValidation(w, "некорректный идентификатор файла")
		return
	}

	file, rc, err := h.files.Download(r.Context(), p, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", file.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", file.OriginalName))

	if _, err := io.Copy(w, rc); err != nil {
		// Заголовки уже отправлены, остаётся только залогировать
		h.logger.Warn("Обрыв при отдаче файла",
			slog.Int64("file_id", file.ID),
			slog.String("error", err.Error()),
		)
	}
}

// DeleteFile обрабатывает DELETE /api/files/{id}.
func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteValidation(w, "некорректный идентификатор файла")
		return
	}

	if err := h.files.Delete(r.Context(), p, id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}
