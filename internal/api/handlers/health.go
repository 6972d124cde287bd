package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matatunos/moco/internal/config"
)

// ReadinessChecker — проверка готовности зависимости сервиса.
type ReadinessChecker interface {
	CheckReady() (status string, message string)
}

// HealthHandler — обработчики health и metrics.
type HealthHandler struct {
	checkers map[string]ReadinessChecker
}

// NewHealthHandler создаёт обработчик health-эндпоинтов.
func NewHealthHandler(checkers map[string]ReadinessChecker) *HealthHandler {
	return &HealthHandler{checkers: checkers}
}

// Live обрабатывает GET /health/live — процесс жив.
func (h *HealthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	writeHealth(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": config.Version,
	})
}

// Ready обрабатывает GET /health/ready — зависимости доступны.
func (h *HealthHandler) Ready(w http.ResponseWriter, _ *http.Request) {
	checks := make(map[string]map[string]string, len(h.checkers))
	allOK := true
	for name, checker := range h.checkers {
		status, message := checker.CheckReady()
		checks[name] = map[string]string{"status": status, "message": message}
		if status != "ok" {
			allOK = false
		}
	}

	code := http.StatusOK
	overall := "ok"
	if !allOK {
		code = http.StatusServiceUnavailable
		overall = "fail"
	}

	writeHealth(w, code, map[string]any{
		"status": overall,
		"checks": checks,
	})
}

// Metrics обрабатывает GET /metrics в формате Prometheus.
func (h *HealthHandler) Metrics() http.Handler {
	return promhttp.Handler()
}

func writeHealth(w http.ResponseWriter, status int, payload map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
