package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/matatunos/moco/internal/domain/model"
	"github.com/matatunos/moco/internal/service"
	"github.com/matatunos/moco/internal/token"
)

type stubUserProvider struct {
	users map[int64]*model.User
}

func (s *stubUserProvider) GetUser(_ context.Context, id int64) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	return u, nil
}

func testAuthenticator(t *testing.T) (*Authenticator, *token.Service) {
	t.Helper()

	tokens := token.New("test-secret", time.Hour)
	provider := &stubUserProvider{users: map[int64]*model.User{
		1: {ID: 1, Username: "alice", Role: model.RoleUser, IsActive: true},
		2: {ID: 2, Username: "bob", Role: model.RoleUser, IsActive: false},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewAuthenticator(tokens, provider, logger), tokens
}

func protected(t *testing.T, auth *Authenticator) http.Handler {
	t.Helper()

	return auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			t.Error("пользователь отсутствует в контексте")
		}
		w.Header().Set("X-User", user.Username)
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAuthenticator_ValidToken(t *testing.T) {
	auth, tokens := testAuthenticator(t)

	tokenString, err := tokens.Issue(1)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()

	protected(t, auth).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("ожидался статус 200, получен %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-User"); got != "alice" {
		t.Errorf("ожидался пользователь alice, получен %q", got)
	}
}

func TestAuthenticator_Rejections(t *testing.T) {
	auth, tokens := testAuthenticator(t)

	valid, err := tokens.Issue(1)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	unknown, err := tokens.Issue(99)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	foreign, err := token.New("other-secret", time.Hour).Issue(1)
	if err != nil {
		t.Fatalf("Issue чужим секретом: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{name: "без заголовка", header: ""},
		{name: "неверная схема", header: "Basic " + valid},
		{name: "мусор вместо токена", header: "Bearer not-a-token"},
		{name: "чужая подпись", header: "Bearer " + foreign},
		{name: "несуществующий пользователь", header: "Bearer " + unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			protected(t, auth).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("ожидался статус 401, получен %d", rec.Code)
			}
		})
	}
}

// Деактивация не отзывает уже выданные токены — проверяем
// задокументированное поведение, а не ошибку.
func TestAuthenticator_DisabledUserTokenStillValid(t *testing.T) {
	auth, tokens := testAuthenticator(t)

	tokenString, err := tokens.Issue(2)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()

	protected(t, auth).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("токен деактивированного пользователя должен действовать до истечения, статус %d", rec.Code)
	}
}
