// Пакет blob — хранилище содержимого файлов.
// Метаданные живут в PostgreSQL, содержимое — здесь.
// Поддерживаются два бэкенда: локальная файловая система и MinIO/S3.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/matatunos/moco/internal/config"
)

// ErrNotFound — объект с таким ключом отсутствует в хранилище.
var ErrNotFound = errors.New("объект не найден в хранилище")

// Store — интерфейс blob-хранилища.
type Store interface {
	// Save сохраняет содержимое под ключом. Возвращает размер в байтах.
	Save(ctx context.Context, key string, r io.Reader) (int64, error)
	// Open открывает содержимое для чтения. Вызывающая сторона
	// обязана закрыть ридер.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete удаляет объект. Отсутствующий объект — не ошибка.
	Delete(ctx context.Context, key string) error
}

// NewFromConfig создаёт хранилище согласно конфигурации.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.BlobBackend {
	case config.BlobBackendFilesystem:
		logger.Info("Хранилище файлов: локальная файловая система",
			slog.String("data_dir", cfg.DataDir))
		return NewFilesystemStore(cfg.DataDir)
	case config.BlobBackendMinio:
		logger.Info("Хранилище файлов: MinIO",
			slog.String("endpoint", cfg.MinioEndpoint),
			slog.String("bucket", cfg.MinioBucket))
		return NewMinioStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("неизвестный бэкенд хранилища: %s", cfg.BlobBackend)
	}
}
