// Пакет config — загрузка и валидация конфигурации MOCO
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Бэкенды blob-хранилища.
const (
	// BlobBackendFilesystem — файлы на локальном диске.
	BlobBackendFilesystem = "filesystem"
	// BlobBackendMinio — объектное хранилище, совместимое с S3 (MinIO).
	BlobBackendMinio = "minio"
)

// Config содержит все параметры конфигурации MOCO.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Токены сессий ---

	// Секрет подписи HS256-токенов. Process-wide, read-only после старта.
	JWTSecret string
	// Срок жизни токена с момента выдачи
	TokenTTL time.Duration

	// --- Blob-хранилище ---

	// Бэкенд: filesystem или minio
	BlobBackend string
	// Корневая директория хранения файлов (для filesystem)
	DataDir string
	// Endpoint MinIO (host:port, для minio)
	MinioEndpoint string
	// Имя bucket MinIO
	MinioBucket string
	// Access key MinIO
	MinioAccessKey string
	// Secret key MinIO
	MinioSecretKey string
	// TLS при подключении к MinIO
	MinioUseSSL bool

	// --- Кэш метаданных ---

	// Максимальное количество записей в LRU-кэше метаданных файлов
	CacheSize int
	// TTL записи кэша
	CacheTTL time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// MOCO_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("MOCO_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("MOCO_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("MOCO_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// MOCO_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("MOCO_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("MOCO_LOG_LEVEL: %w", err)
	}

	// MOCO_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("MOCO_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("MOCO_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// MOCO_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("MOCO_DB_HOST")
	if err != nil {
		return nil, err
	}

	// MOCO_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("MOCO_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("MOCO_DB_PORT: %w", err)
	}

	// MOCO_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("MOCO_DB_NAME")
	if err != nil {
		return nil, err
	}

	// MOCO_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("MOCO_DB_USER")
	if err != nil {
		return nil, err
	}

	// MOCO_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("MOCO_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// MOCO_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("MOCO_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("MOCO_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Токены сессий ---

	// MOCO_JWT_SECRET — обязательный
	cfg.JWTSecret, err = getEnvRequired("MOCO_JWT_SECRET")
	if err != nil {
		return nil, err
	}

	// MOCO_TOKEN_TTL — срок жизни токена (по умолчанию 24h)
	cfg.TokenTTL, err = getEnvDuration("MOCO_TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("MOCO_TOKEN_TTL: %w", err)
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("MOCO_TOKEN_TTL: значение %s должно быть положительным", cfg.TokenTTL)
	}

	// --- Blob-хранилище ---

	// MOCO_BLOB_BACKEND — бэкенд хранения (по умолчанию filesystem)
	cfg.BlobBackend = getEnvDefault("MOCO_BLOB_BACKEND", BlobBackendFilesystem)
	switch cfg.BlobBackend {
	case BlobBackendFilesystem:
		// MOCO_DATA_DIR — директория данных (по умолчанию ./uploads)
		cfg.DataDir = getEnvDefault("MOCO_DATA_DIR", "./uploads")
	case BlobBackendMinio:
		// MOCO_MINIO_ENDPOINT — обязательный для бэкенда minio
		cfg.MinioEndpoint, err = getEnvRequired("MOCO_MINIO_ENDPOINT")
		if err != nil {
			return nil, err
		}
		cfg.MinioBucket = getEnvDefault("MOCO_MINIO_BUCKET", "moco")
		cfg.MinioAccessKey, err = getEnvRequired("MOCO_MINIO_ACCESS_KEY")
		if err != nil {
			return nil, err
		}
		cfg.MinioSecretKey, err = getEnvRequired("MOCO_MINIO_SECRET_KEY")
		if err != nil {
			return nil, err
		}
		cfg.MinioUseSSL = getEnvDefault("MOCO_MINIO_USE_SSL", "false") == "true"
	default:
		return nil, fmt.Errorf("MOCO_BLOB_BACKEND: недопустимое значение %q, допустимые: %s, %s",
			cfg.BlobBackend, BlobBackendFilesystem, BlobBackendMinio)
	}

	// --- Кэш метаданных ---

	// MOCO_CACHE_SIZE — размер LRU-кэша метаданных (по умолчанию 1024)
	cfg.CacheSize, err = getEnvInt("MOCO_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("MOCO_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize < 1 {
		return nil, fmt.Errorf("MOCO_CACHE_SIZE: значение %d должно быть положительным", cfg.CacheSize)
	}

	// MOCO_CACHE_TTL — TTL записи кэша (по умолчанию 5m)
	cfg.CacheTTL, err = getEnvDuration("MOCO_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("MOCO_CACHE_TTL: %w", err)
	}

	// --- Graceful shutdown ---

	// MOCO_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("MOCO_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MOCO_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
