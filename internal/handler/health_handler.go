package handler

import (
	"net/http"
	"time"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/database"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/logger"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/realtime"

	"github.com/gorilla/mux"
)

type HealthHandler struct {
	db       *database.Database
	registry *realtime.Registry
	log      *logger.Logger
	started  time.Time
}

func NewHealthHandler(db *database.Database, registry *realtime.Registry, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:       db,
		registry: registry,
		log:      log,
		started:  time.Now(),
	}
}

func (h *HealthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	dbStatus := "ok"
	if err := h.db.Health(r.Context()); err != nil {
		h.log.Error("Health check database failure: %v", err)
		dbStatus = err.Error()
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	respondJSON(w, code, map[string]interface{}{
		"status":   status,
		"database": dbStatus,
		"sessions": h.registry.SessionCount(),
		"uptime":   time.Since(h.started).Round(time.Second).String(),
	})
}
