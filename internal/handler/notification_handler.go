package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/logger"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/service"

	"github.com/gorilla/mux"
)

type NotificationHandler struct {
	notificationService service.INotificationService
	log                 *logger.Logger
}

func NewNotificationHandler(notificationService service.INotificationService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		log:                 log,
	}
}

func (h *NotificationHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/tenants/{tenant_id}/notifications", h.GetByTenant).Methods("GET")
	r.HandleFunc("/tenants/{tenant_id}/notifications/unread-count", h.UnreadCount).Methods("GET")
	r.HandleFunc("/notifications/{id}/read", h.MarkRead).Methods("PUT")
	r.HandleFunc("/notifications/{id}/acknowledge", h.Acknowledge).Methods("PUT")
}

func (h *NotificationHandler) GetByTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["tenant_id"]
	unreadOnly := r.URL.Query().Get("unread") == "true"
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	items, err := h.notificationService.GetByTenant(r.Context(), tenantID, unreadOnly, limit, offset)
	if err != nil {
		h.log.Error("Failed to get notifications for tenant %s: %v", tenantID, err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, items)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["tenant_id"]

	count, err := h.notificationService.UnreadCount(r.Context(), tenantID)
	if err != nil {
		h.log.Error("Failed to count unread notifications for tenant %s: %v", tenantID, err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	stats, err := h.notificationService.UnreadStats(r.Context(), tenantID)
	if err != nil {
		h.log.Error("Failed to get notification stats for tenant %s: %v", tenantID, err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":      count,
		"bySeverity": stats,
	})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	n, err := h.notificationService.MarkRead(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotificationNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		h.log.Error("Failed to mark notification %s read: %v", id, err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, n)
}

type acknowledgeRequest struct {
	UserID string `json:"userId"`
}

func (h *NotificationHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req acknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	n, err := h.notificationService.Acknowledge(r.Context(), id, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingUser):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrNotificationNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrAlreadyAcknowledged):
			respondError(w, http.StatusConflict, err.Error())
		default:
			h.log.Error("Failed to acknowledge notification %s: %v", id, err)
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, n)
}
