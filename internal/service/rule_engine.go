package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/logger"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/metrics"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/models"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/pkg/wire"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/repository"

	"github.com/google/uuid"
)

// Broadcaster pushes frames to a tenant's live sessions. Satisfied by
// *realtime.Registry; tests substitute a recorder.
type Broadcaster interface {
	Broadcast(tenantID string, ch wire.Channel, env wire.Envelope) int
}

// IRuleEngine evaluates incoming feedback against a tenant's active rules
// and emits alert notifications.
type IRuleEngine interface {
	HandleFeedback(ctx context.Context, fb *models.Feedback) error
}

type RuleEngine struct {
	rules         repository.IAlertRuleRepository
	notifications repository.INotificationRepository
	broadcaster   Broadcaster
	log           *logger.Logger
}

func NewRuleEngine(
	rules repository.IAlertRuleRepository,
	notifications repository.INotificationRepository,
	broadcaster Broadcaster,
	log *logger.Logger,
) *RuleEngine {
	return &RuleEngine{
		rules:         rules,
		notifications: notifications,
		broadcaster:   broadcaster,
		log:           log,
	}
}

// HandleFeedback runs every active rule of the event's tenant, in rule
// creation order. One rule's failure (malformed condition, persistence
// error) never halts the rest; each matching rule independently produces
// its own notification.
func (e *RuleEngine) HandleFeedback(ctx context.Context, fb *models.Feedback) error {
	rules, err := e.rules.GetActiveByTenant(ctx, fb.TenantID)
	if err != nil {
		return fmt.Errorf("failed to load alert rules for tenant %s: %w", fb.TenantID, err)
	}

	for i := range rules {
		rule := &rules[i]

		cond, err := rule.ParseCondition()
		if err != nil {
			metrics.RuleSkipped()
			e.log.Warn("Skipping rule %s (%s): malformed condition: %v", rule.ID, rule.Name, err)
			continue
		}

		if !cond.Matches(fb) {
			metrics.RuleNotMatched()
			continue
		}
		metrics.RuleMatched()

		notification := e.buildNotification(rule, fb)
		created, err := e.notifications.Create(ctx, notification)
		if err != nil {
			e.log.Error("Failed to persist notification for rule %s: %v", rule.ID, err)
			continue
		}
		if !created {
			// The rule already fired for this feedback event.
			e.log.Debug("Rule %s already fired for feedback %s", rule.ID, fb.ID)
			continue
		}

		metrics.NotificationCreated(notification.Severity)
		e.log.Info("Rule %q fired for tenant %s (severity: %s)", rule.Name, fb.TenantID, notification.Severity)

		if env, err := wire.NewEnvelope(wire.TypeAlert, notification); err == nil {
			e.broadcaster.Broadcast(fb.TenantID, wire.ChannelAlerts, env)
		}
	}

	return nil
}

func (e *RuleEngine) buildNotification(rule *models.AlertRule, fb *models.Feedback) *models.AlertNotification {
	severity := rule.Severity
	if !models.ValidSeverity(severity) {
		severity = models.SeverityInfo
	}

	title := renderTemplate(rule.TitleTemplate, fb)
	if title == "" {
		title = "Alert: " + rule.Name
	}

	message := renderTemplate(rule.MessageTemplate, fb)
	if message == "" {
		message = fmt.Sprintf("Rule %q matched feedback rated %d", rule.Name, fb.OverallRating)
	}

	feedbackID := fb.ID
	return &models.AlertNotification{
		ID:          uuid.NewString(),
		TenantID:    rule.TenantID,
		AlertRuleID: rule.ID,
		FeedbackID:  &feedbackID,
		Title:       title,
		Message:     message,
		Severity:    severity,
		CreatedAt:   time.Now(),
	}
}

// renderTemplate substitutes {{field}} placeholders from the feedback event.
func renderTemplate(tmpl string, fb *models.Feedback) string {
	if tmpl == "" {
		return ""
	}

	return strings.NewReplacer(
		"{{rating}}", strconv.Itoa(fb.OverallRating),
		"{{comment}}", fb.Comment,
		"{{sentiment}}", fb.Sentiment,
		"{{source}}", fb.Source,
		"{{locationId}}", fb.LocationID,
		"{{tenantId}}", fb.TenantID,
		"{{tags}}", strings.Join(fb.Tags, ", "),
	).Replace(tmpl)
}
