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

type AlertRuleHandler struct {
	ruleService service.IAlertRuleService
	log         *logger.Logger
}

func NewAlertRuleHandler(ruleService service.IAlertRuleService, log *logger.Logger) *AlertRuleHandler {
	return &AlertRuleHandler{
		ruleService: ruleService,
		log:         log,
	}
}

func (h *AlertRuleHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/tenants/{tenant_id}/alert-rules", h.GetByTenant).Methods("GET")
	r.HandleFunc("/tenants/{tenant_id}/alert-rules", h.Create).Methods("POST")
}

func (h *AlertRuleHandler) GetByTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["tenant_id"]

	rules, err := h.ruleService.GetByTenant(r.Context(), tenantID)
	if err != nil {
		h.log.Error("Failed to get alert rules for tenant %s: %v", tenantID, err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, rules)
}

func (h *AlertRuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["tenant_id"]

	var rule models.AlertRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	rule.TenantID = tenantID

	if err := h.ruleService.Create(r.Context(), &rule); err != nil {
		if errors.Is(err, service.ErrInvalidRule) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error("Failed to create alert rule: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, rule)
}
