package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "feedback_platform",
			Name:      "realtime_sessions_active",
			Help:      "Number of live websocket sessions in the registry.",
		},
	)

	broadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feedback_platform",
			Name:      "realtime_broadcasts_total",
			Help:      "Per-session broadcast deliveries, partitioned by channel and outcome.",
		},
		[]string{"channel", "outcome"},
	)

	ruleEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feedback_platform",
			Name:      "rule_evaluations_total",
			Help:      "Alert rule evaluations, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	notificationsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feedback_platform",
			Name:      "alert_notifications_created_total",
			Help:      "Alert notifications persisted by the rule engine, by severity.",
		},
		[]string{"severity"},
	)

	feedbackReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feedback_platform",
			Name:      "feedback_received_total",
			Help:      "Feedback submissions accepted, partitioned by source.",
		},
		[]string{"source"},
	)
)

// Register attaches all collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		sessionsActive,
		broadcastsTotal,
		ruleEvaluationsTotal,
		notificationsCreatedTotal,
		feedbackReceivedTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

func SessionOpened() {
	sessionsActive.Inc()
}

func SessionClosed() {
	sessionsActive.Dec()
}

func BroadcastDelivered(channel string) {
	broadcastsTotal.WithLabelValues(channel, "delivered").Inc()
}

func BroadcastFailed(channel string) {
	broadcastsTotal.WithLabelValues(channel, "failed").Inc()
}

func RuleMatched() {
	ruleEvaluationsTotal.WithLabelValues("matched").Inc()
}

func RuleNotMatched() {
	ruleEvaluationsTotal.WithLabelValues("not_matched").Inc()
}

func RuleSkipped() {
	ruleEvaluationsTotal.WithLabelValues("skipped").Inc()
}

func NotificationCreated(severity string) {
	notificationsCreatedTotal.WithLabelValues(severity).Inc()
}

func FeedbackReceived(source string) {
	feedbackReceivedTotal.WithLabelValues(source).Inc()
}
