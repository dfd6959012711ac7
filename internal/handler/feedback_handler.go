package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/logger"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/models"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/service"

	"github.com/gorilla/mux"
)

type FeedbackHandler struct {
	feedbackService service.IFeedbackService
	log             *logger.Logger
}

func NewFeedbackHandler(feedbackService service.IFeedbackService, log *logger.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		feedbackService: feedbackService,
		log:             log,
	}
}

func (h *FeedbackHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/feedback", h.Submit).Methods("POST")
	r.HandleFunc("/tenants/{tenant_id}/feedback", h.GetByTenant).Methods("GET")
}

func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var fb models.Feedback
	if err := json.NewDecoder(r.Body).Decode(&fb); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.feedbackService.Submit(r.Context(), &fb); err != nil {
		if errors.Is(err, service.ErrInvalidFeedback) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error("Failed to submit feedback: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, fb)
}

func (h *FeedbackHandler) GetByTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["tenant_id"]
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	items, err := h.feedbackService.GetByTenant(r.Context(), tenantID, limit, offset)
	if err != nil {
		h.log.Error("Failed to get feedback for tenant %s: %v", tenantID, err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, items)
}
