package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Set struct {
	MessagesSent        prometheus.Counter
	MessagesEdited      prometheus.Counter
	MessagesDeleted     prometheus.Counter
	EventsPublished     prometheus.Counter
	PublishFailures     prometheus.Counter
	ActiveSubscriptions prometheus.Gauge
}

func New(reg prometheus.Registerer) *Set {
	s := &Set{
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prepchat_messages_sent_total",
			Help: "Messages committed to the store via send.",
		}),
		MessagesEdited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prepchat_messages_edited_total",
			Help: "Messages edited by their sender.",
		}),
		MessagesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prepchat_messages_deleted_total",
			Help: "Messages hard-deleted by their sender.",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prepchat_bus_events_published_total",
			Help: "Events published to channel topics after commit.",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prepchat_bus_publish_failures_total",
			Help: "Fire-and-forget publishes that failed.",
		}),
		ActiveSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prepchat_bus_active_subscriptions",
			Help: "Live channel-topic subscriptions held by connections.",
		}),
	}
	reg.MustRegister(
		s.MessagesSent, s.MessagesEdited, s.MessagesDeleted,
		s.EventsPublished, s.PublishFailures, s.ActiveSubscriptions,
	)
	return s
}

// NewUnregistered is for tests that only need the counters to exist.
func NewUnregistered() *Set {
	return New(prometheus.NewRegistry())
}
