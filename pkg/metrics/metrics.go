package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Booking metrics
	BookingsConfirmed prometheus.Counter
	BookingConflicts  prometheus.Counter
	BookingFailures   prometheus.Counter
	SlotsOffered      prometheus.Histogram

	// Conversation metrics
	EventsProcessed  *prometheus.CounterVec
	EventsRejected   prometheus.Counter
	MessagesSent     *prometheus.CounterVec
	MessageSendFails prometheus.Counter
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		BookingsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_confirmed_total",
			Help:      "Total number of appointments booked successfully",
		}),
		BookingConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_conflicts_total",
			Help:      "Total number of booking attempts rejected for slot overlap",
		}),
		BookingFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_failures_total",
			Help:      "Total number of booking attempts failed on storage errors",
		}),
		SlotsOffered: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "slots_offered",
			Help:      "Number of open slots offered per availability query",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
		}),
		EventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_events_total",
			Help:      "Total number of inbound webhook events processed",
		}, []string{"type"}),
		EventsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_events_rejected_total",
			Help:      "Total number of inbound events dropped as malformed",
		}),
		MessagesSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Total number of outbound messages sent",
		}, []string{"kind"}),
		MessageSendFails: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "message_send_failures_total",
			Help:      "Total number of outbound message sends that failed",
		}),
	}
}
