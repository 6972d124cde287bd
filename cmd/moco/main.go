// MOCO — сервис персонального облачного хранилища файлов.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/matatunos/moco/internal/api/handlers"
	"github.com/matatunos/moco/internal/api/middleware"
	"github.com/matatunos/moco/internal/blob"
	"github.com/matatunos/moco/internal/config"
	"github.com/matatunos/moco/internal/database"
	"github.com/matatunos/moco/internal/repository"
	"github.com/matatunos/moco/internal/server"
	"github.com/matatunos/moco/internal/service"
	"github.com/matatunos/moco/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := config.SetupLogger(cfg)
	logger.Info("Запуск MOCO", slog.String("version", config.Version))

	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка применения миграций", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к базе данных", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	blobs, err := blob.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища файлов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Репозитории
	txRunner := repository.NewTxRunner(pool)
	users := repository.NewUserRepository(pool)
	folders := repository.NewFolderRepository(pool)
	files := repository.NewFileRepository(pool)
	shares := repository.NewShareRepository(pool)
	settings := repository.NewSettingsRepository(pool)

	// Сервисы
	tokens := token.New(cfg.JWTSecret, cfg.TokenTTL)
	cache := service.NewFileCache(cfg.CacheSize, cfg.CacheTTL)
	settingsSvc := service.NewSettingsService(settings, txRunner, logger)
	authSvc := service.NewAuthService(users, txRunner, tokens, settingsSvc, logger)
	fileSvc := service.NewFileService(files, folders, shares, blobs, cache, settingsSvc, logger)
	folderSvc := service.NewFolderService(folders, shares, txRunner, blobs, cache, logger)
	shareSvc := service.NewShareService(shares, folders, users, logger)
	adminSvc := service.NewAdminService(users, txRunner, blobs, cache, logger)

	// HTTP-слой
	api := handlers.New(authSvc, fileSvc, folderSvc, shareSvc, adminSvc, settingsSvc, logger)
	health := handlers.NewHealthHandler(map[string]handlers.ReadinessChecker{
		"postgresql": database.NewReadinessChecker(pool),
	})
	authMiddleware := middleware.NewAuthenticator(tokens, authSvc, logger)

	srv := server.New(cfg, api, health, authMiddleware, logger)
	if err := srv.Run(); err != nil {
		logger.Error("Сервер завершился с ошибкой", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
