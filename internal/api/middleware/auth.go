// Пакет middleware — промежуточные обработчики HTTP:
// аутентификация, логирование запросов, метрики.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/matatunos/moco/internal/api/errors"
	"github.com/matatunos/moco/internal/domain/authz"
	"github.com/matatunos/moco/internal/domain/model"
	"github.com/matatunos/moco/internal/token"
)

type contextKey string

const userContextKey contextKey = "user"

// UserProvider загружает пользователя по идентификатору из токена.
type UserProvider interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
}

// Authenticator проверяет bearer-токен и помещает пользователя
// в контекст запроса.
//
// Флаг is_active намеренно не проверяется: токен без состояния
// действует до истечения срока, деактивация запрещает только
// новые входы.
type Authenticator struct {
	tokens *token.Service
	users  UserProvider
	logger *slog.Logger
}

// NewAuthenticator создаёт middleware аутентификации.
func NewAuthenticator(tokens *token.Service, users UserProvider, logger *slog.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, logger: logger}
}

// Middleware — обработчик аутентификации для защищённых маршрутов.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			apierrors.WriteUnauthorized(w, "требуется заголовок Authorization")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			apierrors.WriteUnauthorized(w, "ожидается схема Bearer")
			return
		}

		userID, err := a.tokens.Verify(parts[1])
		if err != nil {
			apierrors.WriteUnauthorized(w, "недействительный или истёкший токен")
			return
		}

		user, err := a.users.GetUser(r.Context(), userID)
		if err != nil {
			a.logger.Warn("Токен ссылается на несуществующего пользователя",
				slog.Int64("user_id", userID),
			)
			apierrors.WriteUnauthorized(w, "недействительный или истёкший токен")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

// ContextWithUser помещает аутентифицированного пользователя в контекст.
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext возвращает аутентифицированного пользователя.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	return user, ok
}

// PrincipalFromContext возвращает субъект для проверок доступа.
func PrincipalFromContext(ctx context.Context) (authz.Principal, bool) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return authz.Principal{}, false
	}
	return authz.Principal{ID: user.ID, Role: user.Role}, true
}
