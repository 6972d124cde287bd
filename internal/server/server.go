// Пакет server — HTTP-сервер: маршрутизация и graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/matatunos/moco/internal/api/handlers"
	"github.com/matatunos/moco/internal/api/middleware"
	"github.com/matatunos/moco/internal/config"
)

// Server — HTTP-сервер приложения.
type Server struct {
	httpServer *http.Server
	cfg        *config.Config
	logger     *slog.Logger
}

// New создаёт сервер с настроенной маршрутизацией.
func New(
	cfg *config.Config,
	api *handlers.APIHandler,
	health *handlers.HealthHandler,
	auth *middleware.Authenticator,
	logger *slog.Logger,
) *Server {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Metrics)

	// Служебные эндпоинты — без аутентификации
	r.Get("/health/live", health.Live)
	r.Get("/health/ready", health.Ready)
	r.Method(http.MethodGet, "/metrics", health.Metrics())

	r.Route("/api", func(r chi.Router) {
		// Открытые маршруты
		r.Post("/auth/register", api.Register)
		r.Post("/auth/login", api.Login)

		// Защищённые маршруты
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)

			r.Get("/auth/me", api.Me)

			r.Get("/files", api.ListFiles)
			r.Post("/files/upload", api.UploadFile)
			r.Get("/files/{id}/download", api.DownloadFile)
			r.Delete("/files/{id}", api.DeleteFile)

			r.Post("/folders", api.CreateFolder)
			r.Delete("/folders/{id}", api.DeleteFolder)
			r.Post("/folders/{id}/share", api.ShareFolder)
			r.Get("/folders/{id}/shares", api.ListShares)
			r.Delete("/shares/{id}", api.RevokeShare)

			r.Get("/admin/users", api.AdminListUsers)
			r.Put("/admin/users/{id}", api.AdminUpdateUser)
			r.Delete("/admin/users/{id}", api.AdminDeleteUser)
			r.Get("/admin/settings", api.AdminGetSettings)
			r.Post("/admin/settings", api.AdminUpdateSettings)
		})
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		cfg:    cfg,
		logger: logger,
	}
}

// Run запускает сервер и блокируется до SIGINT/SIGTERM,
// после чего выполняет graceful shutdown.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
			slog.String("version", config.Version),
		)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("ошибка HTTP-сервера: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Получен сигнал остановки, завершаем работу")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
