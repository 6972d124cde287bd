// Пакет handlers — HTTP-обработчики API.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/matatunos/moco/internal/api/errors"
	"github.com/matatunos/moco/internal/api/middleware"
	"github.com/matatunos/moco/internal/domain/authz"
	"github.com/matatunos/moco/internal/service"
)

// APIHandler объединяет обработчики API и их зависимости.
type APIHandler struct {
	auth     *service.AuthService
	files    *service.FileService
	folders  *service.FolderService
	shares   *service.ShareService
	admin    *service.AdminService
	settings *service.SettingsService
	logger   *slog.Logger
}

// New создаёт APIHandler.
func New(
	auth *service.AuthService,
	files *service.FileService,
	folders *service.FolderService,
	shares *service.ShareService,
	admin *service.AdminService,
	settings *service.SettingsService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		auth:     auth,
		files:    files,
		folders:  folders,
		shares:   shares,
		admin:    admin,
		settings: settings,
		logger:   logger,
	}
}

// writeJSON отправляет ответ в формате JSON.
func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Ошибка сериализации ответа", slog.String("error", err.Error()))
	}
}

// writeServiceError сопоставляет ошибку бизнес-логики с HTTP-ответом.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.WriteValidation(w, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		apierrors.WriteUnauthorized(w, "неверное имя пользователя или пароль")
	case errors.Is(err, service.ErrAccountDisabled):
		apierrors.WriteForbidden(w, "учётная запись отключена")
	case errors.Is(err, service.ErrRegistrationDisabled):
		apierrors.WriteForbidden(w, "регистрация отключена администратором")
	case errors.Is(err, service.ErrForbidden):
		apierrors.WriteForbidden(w, "недостаточно прав")
	case errors.Is(err, service.ErrNotFound):
		apierrors.WriteNotFound(w, "ресурс не найден")
	case errors.Is(err, service.ErrConflict):
		apierrors.WriteConflict(w, err.Error())
	case errors.Is(err, service.ErrStorage):
		apierrors.WriteStorage(w, "ошибка хранилища файлов")
	default:
		h.logger.Error("Внутренняя ошибка", slog.String("error", err.Error()))
		apierrors.WriteInternal(w, "внутренняя ошибка сервера")
	}
}

// principal извлекает субъект запроса из контекста.
// Отсутствие субъекта на защищённом маршруте — ошибка конфигурации.
func (h *APIHandler) principal(w http.ResponseWriter, r *http.Request) (authz.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		apierrors.WriteUnauthorized(w, "требуется аутентификация")
	}
	return p, ok
}

// pathID извлекает числовой параметр пути.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// decodeJSON разбирает тело запроса. Неизвестные поля отклоняются.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
