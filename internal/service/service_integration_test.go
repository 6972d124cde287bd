package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/matatunos/moco/internal/blob"
	"github.com/matatunos/moco/internal/database"
	"github.com/matatunos/moco/internal/domain/authz"
	"github.com/matatunos/moco/internal/domain/model"
	"github.com/matatunos/moco/internal/repository"
)

// Интеграционные тесты сервисов: проверка прав доступа через гранты
// на реальной базе. Требуют Docker.
// Запуск: TEST_INTEGRATION=1 go test ./internal/service/...

type serviceEnv struct {
	pool    *pgxpool.Pool
	users   *repository.UserRepository
	files   *FileService
	folders *FolderService
	shares  *ShareService
}

func setupServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("интеграционный тест пропущен — установите TEST_INTEGRATION=1")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("moco_test"),
		tcpostgres.WithUsername("moco"),
		tcpostgres.WithPassword("moco"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("не удалось запустить контейнер postgres: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("не удалось получить строку подключения: %v", err)
	}

	source, err := iofs.New(database.MigrationsFS, "migrations")
	if err != nil {
		t.Fatalf("не удалось открыть миграции: %v", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, "pgx5://"+strings.TrimPrefix(strings.TrimPrefix(dsn, "postgresql://"), "postgres://"))
	if err != nil {
		t.Fatalf("не удалось создать мигратор: %v", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("не удалось применить миграции: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("не удалось подключиться к базе: %v", err)
	}
	t.Cleanup(pool.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	blobs, err := blob.NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("не удалось создать хранилище: %v", err)
	}

	userRepo := repository.NewUserRepository(pool)
	folderRepo := repository.NewFolderRepository(pool)
	fileRepo := repository.NewFileRepository(pool)
	shareRepo := repository.NewShareRepository(pool)
	tx := repository.NewTxRunner(pool)
	cache := NewFileCache(128, time.Minute)
	settings := NewSettingsService(repository.NewSettingsRepository(pool), tx, logger)

	return &serviceEnv{
		pool:    pool,
		users:   userRepo,
		files:   NewFileService(fileRepo, folderRepo, shareRepo, blobs, cache, settings, logger),
		folders: NewFolderService(folderRepo, shareRepo, tx, blobs, cache, logger),
		shares:  NewShareService(shareRepo, folderRepo, userRepo, logger),
	}
}

// createEnvUser создаёт пользователя с корневой папкой и возвращает
// его субъект доступа.
func (e *serviceEnv) createEnvUser(t *testing.T, username string) authz.Principal {
	t.Helper()

	ctx := context.Background()
	u := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$10$test",
		Role:         model.RoleUser,
		IsActive:     true,
	}
	if err := e.users.Create(ctx, u); err != nil {
		t.Fatalf("не удалось создать пользователя %s: %v", username, err)
	}

	root := &model.Folder{Name: model.RootFolderName, Path: "/", UserID: u.ID}
	if err := repository.NewFolderRepository(e.pool).Create(ctx, root); err != nil {
		t.Fatalf("не удалось создать корневую папку %s: %v", username, err)
	}

	return authz.Principal{ID: u.ID, Role: u.Role}
}

func TestGrantEnforcement(t *testing.T) {
	env := setupServiceEnv(t)
	ctx := context.Background()

	owner := env.createEnvUser(t, "owner")
	reader := env.createEnvUser(t, "reader")
	writer := env.createEnvUser(t, "writer")
	stranger := env.createEnvUser(t, "stranger")

	docs, err := env.folders.Create(ctx, owner, "docs", nil)
	if err != nil {
		t.Fatalf("не удалось создать папку docs: %v", err)
	}
	work, err := env.folders.Create(ctx, owner, "work", &docs.ID)
	if err != nil {
		t.Fatalf("не удалось создать папку work: %v", err)
	}
	file, err := env.files.Upload(ctx, owner, &work.ID, "report.txt", "text/plain", strings.NewReader("отчёт"))
	if err != nil {
		t.Fatalf("не удалось загрузить файл: %v", err)
	}

	if _, err := env.shares.Grant(ctx, owner, docs.ID, "reader", model.PermissionRead); err != nil {
		t.Fatalf("не удалось выдать read-грант: %v", err)
	}
	if _, err := env.shares.Grant(ctx, owner, docs.ID, "writer", model.PermissionWrite); err != nil {
		t.Fatalf("не удалось выдать write-грант: %v", err)
	}

	t.Run("грант read открывает вложенную папку", func(t *testing.T) {
		listing, err := env.files.List(ctx, reader, &work.ID)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(listing.Files) != 1 || listing.Files[0].ID != file.ID {
			t.Errorf("ожидается один файл %d, получено %+v", file.ID, listing.Files)
		}
	})

	t.Run("грант read разрешает скачивание", func(t *testing.T) {
		meta, rc, err := env.files.Download(ctx, reader, file.ID)
		if err != nil {
			t.Fatalf("Download: %v", err)
		}
		defer rc.Close()
		body, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("чтение содержимого: %v", err)
		}
		if string(body) != "отчёт" || meta.ID != file.ID {
			t.Errorf("получено %q для файла %d", body, meta.ID)
		}
	})

	t.Run("грант read не разрешает загрузку", func(t *testing.T) {
		_, err := env.files.Upload(ctx, reader, &work.ID, "new.txt", "text/plain", strings.NewReader("x"))
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("Upload = %v, ожидается ErrForbidden", err)
		}
	})

	t.Run("грант read не разрешает удаление", func(t *testing.T) {
		if err := env.files.Delete(ctx, reader, file.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("Delete = %v, ожидается ErrForbidden", err)
		}
	})

	t.Run("грант write разрешает загрузку во вложенную папку", func(t *testing.T) {
		uploaded, err := env.files.Upload(ctx, writer, &work.ID, "notes.txt", "text/plain", strings.NewReader("заметки"))
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}
		if uploaded.FolderID == nil || *uploaded.FolderID != work.ID {
			t.Errorf("файл попал в папку %v, ожидается %d", uploaded.FolderID, work.ID)
		}
	})

	t.Run("без гранта чужая папка не видна", func(t *testing.T) {
		if _, err := env.files.List(ctx, stranger, &work.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("List = %v, ожидается ErrNotFound", err)
		}
		if _, _, err := env.files.Download(ctx, stranger, file.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("Download = %v, ожидается ErrNotFound", err)
		}
		if err := env.folders.Delete(ctx, stranger, work.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("Delete папки = %v, ожидается ErrNotFound", err)
		}
	})

	t.Run("прямой грант отмечается в листинге родителя", func(t *testing.T) {
		if _, err := env.shares.Grant(ctx, owner, work.ID, "reader", model.PermissionWrite); err != nil {
			t.Fatalf("не удалось выдать грант на вложенную папку: %v", err)
		}

		listing, err := env.files.List(ctx, reader, &docs.ID)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		var entry *FolderEntry
		for i := range listing.Folders {
			if listing.Folders[i].Folder.ID == work.ID {
				entry = &listing.Folders[i]
			}
		}
		if entry == nil {
			t.Fatalf("папка work отсутствует в листинге: %+v", listing.Folders)
		}
		if !entry.Shared || entry.Permission != model.PermissionWrite {
			t.Errorf("запись папки work: shared=%v permission=%q, ожидается прямой write-грант", entry.Shared, entry.Permission)
		}
	})
}
