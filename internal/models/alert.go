package models

import (
	"encoding/json"
	"time"
)

// Severity levels, ordered info < warning < critical
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

var severityRanks = map[string]int{
	SeverityInfo:     0,
	SeverityWarning:  1,
	SeverityCritical: 2,
}

// SeverityRank returns the ordinal position of a severity, or -1 when the
// value is not a recognized severity.
func SeverityRank(s string) int {
	if rank, ok := severityRanks[s]; ok {
		return rank
	}
	return -1
}

func ValidSeverity(s string) bool {
	return SeverityRank(s) >= 0
}

// AlertRule is a tenant-owned trigger definition. The engine consumes rules
// read-only; CRUD on them is ordinary request/response plumbing.
type AlertRule struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenantId"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	IsActive        bool            `json:"isActive"`
	Condition       json.RawMessage `json:"condition"`
	Severity        string          `json:"severity"`
	TitleTemplate   string          `json:"titleTemplate"`
	MessageTemplate string          `json:"messageTemplate"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// ParseCondition decodes the stored predicate tree. A rule whose tree does
// not decode or validate is skipped by the engine, never fatal.
func (r *AlertRule) ParseCondition() (*Condition, error) {
	var cond Condition
	if err := json.Unmarshal(r.Condition, &cond); err != nil {
		return nil, err
	}
	if err := cond.Validate(); err != nil {
		return nil, err
	}
	return &cond, nil
}

// AlertNotification is a persisted alert produced by the rule engine.
// The pair (AlertRuleID, FeedbackID) is unique: a rule fires at most once
// per feedback event.
type AlertNotification struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenantId"`
	AlertRuleID    string     `json:"alertRuleId"`
	FeedbackID     *string    `json:"feedbackId,omitempty"`
	Title          string     `json:"title"`
	Message        string     `json:"message"`
	Severity       string     `json:"severity"`
	IsRead         bool       `json:"isRead"`
	IsAcknowledged bool       `json:"isAcknowledged"`
	AcknowledgedBy *string    `json:"acknowledgedBy,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledgedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}
