package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/matatunos/moco/internal/domain/model"
	"github.com/matatunos/moco/internal/repository"
	"github.com/matatunos/moco/internal/token"
)

// AuthService — регистрация и аутентификация пользователей.
type AuthService struct {
	users    *repository.UserRepository
	tx       *repository.TxRunner
	tokens   *token.Service
	settings *SettingsService
	logger   *slog.Logger
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(
	users *repository.UserRepository,
	tx *repository.TxRunner,
	tokens *token.Service,
	settings *SettingsService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		tx:       tx,
		tokens:   tokens,
		settings: settings,
		logger:   logger,
	}
}

// Register регистрирует нового пользователя.
// Первый зарегистрированный пользователь становится администратором,
// выбор победителя сериализуется маркером в таблице настроек.
// Пользователь и его корневая папка создаются в одной транзакции.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: требуются username, email и password", ErrValidation)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: некорректный email", ErrValidation)
	}

	allowed, err := s.settings.CanRegister(ctx)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrRegistrationDisabled
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("ошибка хэширования пароля: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
	}

	err = s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		users := repository.NewUserRepository(tx)

		firstUser, err := users.ClaimAdminBootstrap(ctx)
		if err != nil {
			return err
		}
		if firstUser {
			user.Role = model.RoleAdmin
		} else {
			user.Role = model.RoleUser
		}

		if err := users.Create(ctx, user); err != nil {
			return err
		}

		root := &model.Folder{
			Name:   model.RootFolderName,
			Path:   "/",
			UserID: user.ID,
		}
		return repository.NewFolderRepository(tx).Create(ctx, root)
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: пользователь с таким именем или email уже существует", ErrConflict)
		}
		return nil, err
	}

	s.logger.Info("Пользователь зарегистрирован",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
		slog.String("role", user.Role),
	)

	return user, nil
}

// Login проверяет учётные данные и выдаёт токен сессии.
// Неверный пароль сообщается раньше статуса деактивации:
// отключённая учётная запись подтверждается только при верном пароле.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *model.User, error) {
	if username == "" || password == "" {
		return "", nil, fmt.Errorf("%w: требуются username и password", ErrValidation)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return "", nil, ErrAccountDisabled
	}

	tokenString, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("ошибка выдачи токена: %w", err)
	}

	s.logger.Info("Пользователь вошёл в систему",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return tokenString, user, nil
}

// GetUser возвращает пользователя по ID.
// Используется middleware аутентификации для загрузки субъекта.
func (s *AuthService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user, nil
}
