package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/logger"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/models"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/service"
)

// Ingest bridges on-site feedback kiosks into the regular create-feedback
// path. Kiosks publish on feedback/{tenant}/submit; the tenant comes from
// the topic, never from the payload.
type Ingest struct {
	feedback service.IFeedbackService
	log      *logger.Logger
}

func NewIngest(feedback service.IFeedbackService, log *logger.Logger) *Ingest {
	return &Ingest{
		feedback: feedback,
		log:      log,
	}
}

func (i *Ingest) Start(client *Client, topicPattern string) error {
	return client.Subscribe(topicPattern, i.handle)
}

func (i *Ingest) handle(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[1] == "" {
		return fmt.Errorf("unexpected feedback topic %q", topic)
	}
	tenantID := parts[1]

	var fb models.Feedback
	if err := json.Unmarshal(payload, &fb); err != nil {
		return fmt.Errorf("malformed kiosk payload on %s: %w", topic, err)
	}

	fb.ID = ""
	fb.TenantID = tenantID
	fb.Source = models.SourceKiosk

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := i.feedback.Submit(ctx, &fb); err != nil {
		i.log.Error("Failed to ingest kiosk feedback for tenant %s: %v", tenantID, err)
		return err
	}

	return nil
}
