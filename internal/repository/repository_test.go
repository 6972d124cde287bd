package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/matatunos/moco/internal/database"
	"github.com/matatunos/moco/internal/domain/model"
)

// Интеграционные тесты репозиториев. Требуют Docker.
// Запуск: TEST_INTEGRATION=1 go test ./internal/repository/...

func setupTestDB(t *testing.T) *pgxpool.Pool {
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

	applyMigrations(t, dsn)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("не удалось подключиться к базе: %v", err)
	}
	t.Cleanup(pool.Close)

	return pool
}

func applyMigrations(t *testing.T, dsn string) {
	t.Helper()

	source, err := iofs.New(database.MigrationsFS, "migrations")
	if err != nil {
		t.Fatalf("не удалось открыть миграции: %v", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, "pgx5://"+trimScheme(dsn))
	if err != nil {
		t.Fatalf("не удалось создать мигратор: %v", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("не удалось применить миграции: %v", err)
	}
}

// trimScheme убирает схему postgres:// из DSN контейнера,
// чтобы подставить pgx5://.
func trimScheme(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if len(dsn) > len(prefix) && dsn[:len(prefix)] == prefix {
			return dsn[len(prefix):]
		}
	}
	return dsn
}

func createTestUser(t *testing.T, pool *pgxpool.Pool, username string) *model.User {
	t.Helper()

	u := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$10$test",
		Role:         model.RoleUser,
		IsActive:     true,
	}
	if err := NewUserRepository(pool).Create(context.Background(), u); err != nil {
		t.Fatalf("не удалось создать пользователя %s: %v", username, err)
	}

	return u
}

func createTestFolder(t *testing.T, pool *pgxpool.Pool, userID int64, name string, parent *model.Folder) *model.Folder {
	t.Helper()

	f := &model.Folder{Name: name, UserID: userID}
	if parent == nil {
		f.Path = "/"
	} else {
		f.Path = parent.Path + name + "/"
		f.ParentID = &parent.ID
	}
	if err := NewFolderRepository(pool).Create(context.Background(), f); err != nil {
		t.Fatalf("не удалось создать папку %s: %v", name, err)
	}

	return f
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(pool)

	u := createTestUser(t, pool, "alice")
	if u.ID == 0 {
		t.Fatal("ожидался ненулевой ID после создания")
	}

	got, err := repo.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if got.ID != u.ID || got.Email != "alice@example.com" {
		t.Errorf("получен неверный пользователь: %+v", got)
	}

	if _, err := repo.GetByID(ctx, 999999); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидался ErrNotFound, получено: %v", err)
	}
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(pool)

	createTestUser(t, pool, "bob")

	dup := &model.User{
		Username:     "bob",
		Email:        "other@example.com",
		PasswordHash: "$2a$10$test",
		Role:         model.RoleUser,
		IsActive:     true,
	}
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("ожидался ErrConflict, получено: %v", err)
	}
}

func TestUserRepository_ClaimAdminBootstrap(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(pool)

	first, err := repo.ClaimAdminBootstrap(ctx)
	if err != nil {
		t.Fatalf("ClaimAdminBootstrap: %v", err)
	}
	if !first {
		t.Fatal("первый вызов должен вернуть true")
	}

	second, err := repo.ClaimAdminBootstrap(ctx)
	if err != nil {
		t.Fatalf("повторный ClaimAdminBootstrap: %v", err)
	}
	if second {
		t.Error("повторный вызов должен вернуть false")
	}
}

func TestUserRepository_ClaimAdminBootstrap_Concurrent(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(pool)

	const workers = 10
	results := make(chan bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.ClaimAdminBootstrap(ctx)
			if err != nil {
				t.Errorf("ClaimAdminBootstrap: %v", err)
				return
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for ok := range results {
		if ok {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("победитель должен быть ровно один, получено: %d", winners)
	}
}

func TestUserRepository_Update(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(pool)

	u := createTestUser(t, pool, "carol")

	role := model.RoleAdmin
	if err := repo.Update(ctx, u.ID, &role, nil); err != nil {
		t.Fatalf("Update роли: %v", err)
	}

	got, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Role != model.RoleAdmin {
		t.Errorf("роль не обновилась: %s", got.Role)
	}
	if !got.IsActive {
		t.Error("is_active не должен был измениться")
	}

	inactive := false
	if err := repo.Update(ctx, u.ID, nil, &inactive); err != nil {
		t.Fatalf("Update активности: %v", err)
	}
	got, _ = repo.GetByID(ctx, u.ID)
	if got.IsActive {
		t.Error("is_active должен был стать false")
	}
	if got.Role != model.RoleAdmin {
		t.Error("роль не должна была измениться")
	}

	if err := repo.Update(ctx, 999999, &role, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидался ErrNotFound, получено: %v", err)
	}
}

func TestFolderRepository_Subtree(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewFolderRepository(pool)

	u := createTestUser(t, pool, "dave")
	root := createTestFolder(t, pool, u.ID, model.RootFolderName, nil)
	docs := createTestFolder(t, pool, u.ID, "docs", root)
	work := createTestFolder(t, pool, u.ID, "work", docs)
	createTestFolder(t, pool, u.ID, "photos", root)

	if docs.Path != "/docs/" || work.Path != "/docs/work/" {
		t.Errorf("неверные пути: docs=%s work=%s", docs.Path, work.Path)
	}

	descendants, err := repo.ListDescendants(ctx, docs.ID)
	if err != nil {
		t.Fatalf("ListDescendants: %v", err)
	}
	if len(descendants) != 2 {
		t.Fatalf("ожидались 2 папки поддерева, получено: %d", len(descendants))
	}
	if descendants[0].ID != docs.ID || descendants[1].ID != work.ID {
		t.Errorf("неверный порядок поддерева: %v, %v", descendants[0].Name, descendants[1].Name)
	}

	children, err := repo.ListChildren(ctx, u.ID, nil)
	if err != nil {
		t.Fatalf("ListChildren: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("на верхнем уровне ожидались 2 папки, получено: %d", len(children))
	}
	for _, c := range children {
		if c.Name == model.RootFolderName {
			t.Error("корневая папка не должна попадать в листинг")
		}
	}
}

func TestFolderRepository_RecursiveDelete(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	folders := NewFolderRepository(pool)
	files := NewFileRepository(pool)
	shares := NewShareRepository(pool)

	owner := createTestUser(t, pool, "erin")
	other := createTestUser(t, pool, "frank")
	root := createTestFolder(t, pool, owner.ID, model.RootFolderName, nil)
	top := createTestFolder(t, pool, owner.ID, "top", root)
	nested := createTestFolder(t, pool, owner.ID, "nested", top)

	f := &model.File{
		Name: "a.txt", OriginalName: "a.txt", Size: 3,
		MimeType: "text/plain", StorageKey: "erin/key-a",
		FolderID: &nested.ID, UserID: owner.ID,
	}
	if err := files.Create(ctx, f); err != nil {
		t.Fatalf("создание файла: %v", err)
	}
	share := &model.SharedFolder{
		FolderID: top.ID, SharedWithUserID: other.ID,
		Permission: model.PermissionRead,
	}
	if err := shares.Create(ctx, share); err != nil {
		t.Fatalf("создание шары: %v", err)
	}

	subtree, err := folders.ListDescendants(ctx, top.ID)
	if err != nil {
		t.Fatalf("ListDescendants: %v", err)
	}
	ids := make([]int64, 0, len(subtree))
	for _, sf := range subtree {
		ids = append(ids, sf.ID)
	}

	if err := files.DeleteByFolderIDs(ctx, ids); err != nil {
		t.Fatalf("удаление файлов: %v", err)
	}
	if err := shares.DeleteByFolderIDs(ctx, ids); err != nil {
		t.Fatalf("удаление шар: %v", err)
	}
	if err := folders.DeleteByIDs(ctx, ids); err != nil {
		t.Fatalf("удаление папок: %v", err)
	}

	if _, err := folders.GetByID(ctx, nested.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("вложенная папка должна быть удалена, получено: %v", err)
	}
	if _, err := files.GetByID(ctx, f.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("файл поддерева должен быть удалён, получено: %v", err)
	}

	var orphans int
	err = pool.QueryRow(ctx,
		`SELECT count(*) FROM files WHERE folder_id = ANY($1)`, ids).Scan(&orphans)
	if err != nil {
		t.Fatalf("проверка сирот: %v", err)
	}
	if orphans != 0 {
		t.Errorf("после удаления остались файлы-сироты: %d", orphans)
	}
}

func TestFileRepository_NamesAndList(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	files := NewFileRepository(pool)

	u := createTestUser(t, pool, "grace")
	root := createTestFolder(t, pool, u.ID, model.RootFolderName, nil)

	for i, name := range []string{"b.txt", "a.txt"} {
		f := &model.File{
			Name: name, OriginalName: name, Size: int64(i + 1),
			MimeType: "text/plain", StorageKey: fmt.Sprintf("grace/key-%d", i),
			FolderID: &root.ID, UserID: u.ID,
		}
		if err := files.Create(ctx, f); err != nil {
			t.Fatalf("создание файла %s: %v", name, err)
		}
	}

	names, err := files.ListNamesInFolder(ctx, root.ID)
	if err != nil {
		t.Fatalf("ListNamesInFolder: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("ожидались 2 имени, получено: %d", len(names))
	}

	listed, err := files.ListInFolder(ctx, root.ID)
	if err != nil {
		t.Fatalf("ListInFolder: %v", err)
	}
	if len(listed) != 2 || listed[0].Name != "a.txt" {
		t.Errorf("листинг должен быть отсортирован по имени: %+v", listed)
	}
}

func TestShareRepository_GrantAndPermission(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	shares := NewShareRepository(pool)

	owner := createTestUser(t, pool, "henry")
	guest := createTestUser(t, pool, "iris")
	root := createTestFolder(t, pool, owner.ID, model.RootFolderName, nil)
	shared := createTestFolder(t, pool, owner.ID, "shared", root)

	s := &model.SharedFolder{
		FolderID: shared.ID, SharedWithUserID: guest.ID,
		Permission: model.PermissionWrite,
	}
	if err := shares.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	dup := &model.SharedFolder{
		FolderID: shared.ID, SharedWithUserID: guest.ID,
		Permission: model.PermissionRead,
	}
	if err := shares.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("повторная выдача: ожидался ErrConflict, получено: %v", err)
	}

	perm, err := shares.GetPermission(ctx, shared.ID, guest.ID)
	if err != nil {
		t.Fatalf("GetPermission: %v", err)
	}
	if perm == nil || *perm != model.PermissionWrite {
		t.Errorf("ожидалось право write, получено: %v", perm)
	}

	none, err := shares.GetPermission(ctx, shared.ID, owner.ID)
	if err != nil {
		t.Fatalf("GetPermission без шары: %v", err)
	}
	if none != nil {
		t.Errorf("без шары право должно быть nil, получено: %v", *none)
	}

	listed, err := shares.ListByFolder(ctx, shared.ID)
	if err != nil {
		t.Fatalf("ListByFolder: %v", err)
	}
	if len(listed) != 1 || listed[0].SharedWithUsername != "iris" {
		t.Errorf("неверный листинг шар: %+v", listed)
	}

	folders, perms, err := shares.ListFoldersSharedWith(ctx, guest.ID)
	if err != nil {
		t.Fatalf("ListFoldersSharedWith: %v", err)
	}
	if len(folders) != 1 || perms[shared.ID] != model.PermissionWrite {
		t.Errorf("неверный список доступных папок: %+v, %+v", folders, perms)
	}

	if err := shares.Delete(ctx, s.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := shares.Delete(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторное удаление: ожидался ErrNotFound, получено: %v", err)
	}
}

func TestSettingsRepository_Defaults(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewSettingsRepository(pool)

	value, err := repo.Get(ctx, model.SettingAllowRegistration)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if value != "1" {
		t.Errorf("регистрация должна быть разрешена по умолчанию, получено: %q", value)
	}

	if err := repo.Set(ctx, model.SettingMaxFileSize, "1048576"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, _ = repo.Get(ctx, model.SettingMaxFileSize)
	if value != "1048576" {
		t.Errorf("настройка не обновилась: %q", value)
	}

	if _, err := repo.Get(ctx, "no_such_key"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидался ErrNotFound, получено: %v", err)
	}
}

func TestTxRunner_Rollback(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	runner := NewTxRunner(pool)

	boom := errors.New("boom")
	err := runner.RunInTx(ctx, func(tx pgx.Tx) error {
		u := &model.User{
			Username:     "ghost",
			Email:        "ghost@example.com",
			PasswordHash: "$2a$10$test",
			Role:         model.RoleUser,
			IsActive:     true,
		}
		if err := NewUserRepository(tx).Create(ctx, u); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("ожидалась ошибка boom, получено: %v", err)
	}

	if _, err := NewUserRepository(pool).GetByUsername(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("транзакция должна была откатиться, получено: %v", err)
	}
}
