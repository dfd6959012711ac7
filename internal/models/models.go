package models

import "time"

// Feedback sources
const (
	SourceWeb   = "web"
	SourceKiosk = "kiosk"
)

// Feedback is a single customer submission. It is the input event the
// alert rule engine evaluates.
type Feedback struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenantId"`
	LocationID    string    `json:"locationId,omitempty"`
	OverallRating int       `json:"overallRating"`
	Comment       string    `json:"comment,omitempty"`
	Sentiment     string    `json:"sentiment,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Source        string    `json:"source,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Field resolves a condition leaf's field name against this submission.
// Unknown names report ok=false so rule evaluation fails closed.
func (f *Feedback) Field(name string) (interface{}, bool) {
	switch name {
	case "rating", "overallRating":
		return float64(f.OverallRating), true
	case "comment", "text":
		return f.Comment, true
	case "sentiment":
		return f.Sentiment, true
	case "tags":
		return f.Tags, true
	case "source":
		return f.Source, true
	case "locationId":
		return f.LocationID, true
	case "tenantId":
		return f.TenantID, true
	default:
		return nil, false
	}
}
