package config

import (
	"log/slog"
	"testing"
	"time"
)

// setEnvs устанавливает переменные окружения на время теста.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

// minimalEnvs возвращает минимальный набор обязательных переменных.
func minimalEnvs() map[string]string {
	return map[string]string{
		"MOCO_DB_HOST":    "localhost",
		"MOCO_DB_NAME":    "moco",
		"MOCO_DB_USER":    "moco",
		"MOCO_DB_PASSWORD": "secret",
		"MOCO_JWT_SECRET":  "test-signing-secret",
	}
}

func TestLoad_MinimalConfig(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	// Проверяем значения по умолчанию
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, ожидается 8080", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидается Info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, ожидается json", cfg.LogFormat)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort = %d, ожидается 5432", cfg.DBPort)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v, ожидается 24h", cfg.TokenTTL)
	}
	if cfg.BlobBackend != BlobBackendFilesystem {
		t.Errorf("BlobBackend = %q, ожидается %q", cfg.BlobBackend, BlobBackendFilesystem)
	}
	if cfg.DataDir != "./uploads" {
		t.Errorf("DataDir = %q, ожидается ./uploads", cfg.DataDir)
	}
	if cfg.CacheSize != 1024 {
		t.Errorf("CacheSize = %d, ожидается 1024", cfg.CacheSize)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, ожидается 5s", cfg.ShutdownTimeout)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	required := []string{
		"MOCO_DB_HOST",
		"MOCO_DB_NAME",
		"MOCO_DB_USER",
		"MOCO_DB_PASSWORD",
		"MOCO_JWT_SECRET",
	}

	for _, missing := range required {
		t.Run(missing, func(t *testing.T) {
			envs := minimalEnvs()
			delete(envs, missing)
			setEnvs(t, envs)
			t.Setenv(missing, "")

			if _, err := Load(); err == nil {
				t.Errorf("Load() без %s не вернул ошибку", missing)
			}
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "нечисловой порт", key: "MOCO_PORT", val: "abc"},
		{name: "порт вне диапазона", key: "MOCO_PORT", val: "70000"},
		{name: "неизвестный уровень логирования", key: "MOCO_LOG_LEVEL", val: "trace"},
		{name: "неизвестный формат логов", key: "MOCO_LOG_FORMAT", val: "xml"},
		{name: "неизвестный SSL mode", key: "MOCO_DB_SSL_MODE", val: "maybe"},
		{name: "некорректный TTL токена", key: "MOCO_TOKEN_TTL", val: "sometimes"},
		{name: "отрицательный TTL токена", key: "MOCO_TOKEN_TTL", val: "-1h"},
		{name: "неизвестный blob backend", key: "MOCO_BLOB_BACKEND", val: "tape"},
		{name: "нулевой размер кэша", key: "MOCO_CACHE_SIZE", val: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnvs(t, minimalEnvs())
			t.Setenv(tt.key, tt.val)

			if _, err := Load(); err == nil {
				t.Errorf("Load() с %s=%q не вернул ошибку", tt.key, tt.val)
			}
		})
	}
}

func TestLoad_MinioBackend(t *testing.T) {
	setEnvs(t, minimalEnvs())
	t.Setenv("MOCO_BLOB_BACKEND", "minio")
	t.Setenv("MOCO_MINIO_ENDPOINT", "minio:9000")
	t.Setenv("MOCO_MINIO_ACCESS_KEY", "moco")
	t.Setenv("MOCO_MINIO_SECRET_KEY", "moco-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if cfg.BlobBackend != BlobBackendMinio {
		t.Errorf("BlobBackend = %q, ожидается %q", cfg.BlobBackend, BlobBackendMinio)
	}
	if cfg.MinioBucket != "moco" {
		t.Errorf("MinioBucket = %q, ожидается moco", cfg.MinioBucket)
	}
	if cfg.MinioUseSSL {
		t.Error("MinioUseSSL = true, ожидается false по умолчанию")
	}
}

func TestLoad_MinioBackendMissingEndpoint(t *testing.T) {
	setEnvs(t, minimalEnvs())
	t.Setenv("MOCO_BLOB_BACKEND", "minio")

	if _, err := Load(); err == nil {
		t.Error("Load() с backend=minio без endpoint не вернул ошибку")
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{
		DBHost:     "db.local",
		DBPort:     5433,
		DBName:     "moco",
		DBUser:     "moco",
		DBPassword: "pw",
		DBSSLMode:  "disable",
	}

	want := "host=db.local port=5433 dbname=moco user=moco password=pw sslmode=disable"
	if got := cfg.DatabaseDSN(); got != want {
		t.Errorf("DatabaseDSN() = %q, ожидается %q", got, want)
	}
}
