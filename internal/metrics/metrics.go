// Package metrics defines the Prometheus collectors exported by the forum API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "devcove"
	votesSubsystem   = "votes"
	notifySubsystem  = "notifications"
)

// Metrics groups the forum collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	// VotesTotal counts settled vote mutations by target type and action.
	VotesTotal *prometheus.CounterVec

	// VoteRejectionsTotal counts votes refused before or during the mutation.
	VoteRejectionsTotal *prometheus.CounterVec

	// NotificationsCreatedTotal counts notifications by type.
	NotificationsCreatedTotal *prometheus.CounterVec

	// MarkedReadTotal counts notifications flipped to read.
	MarkedReadTotal prometheus.Counter

	// UnreadCacheTotal counts unread-count cache lookups by result (hit, miss, error).
	UnreadCacheTotal *prometheus.CounterVec
}

// New registers every collector with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		VotesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: votesSubsystem,
				Name:      "mutations_total",
				Help:      "Total settled vote mutations by target type and action",
			},
			[]string{"target", "action"},
		),
		VoteRejectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: votesSubsystem,
				Name:      "rejections_total",
				Help:      "Total vote requests rejected by reason",
			},
			[]string{"reason"},
		),
		NotificationsCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: notifySubsystem,
				Name:      "created_total",
				Help:      "Total notifications created by type",
			},
			[]string{"type"},
		),
		MarkedReadTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: notifySubsystem,
				Name:      "marked_read_total",
				Help:      "Total notifications marked as read",
			},
		),
		UnreadCacheTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: notifySubsystem,
				Name:      "unread_cache_total",
				Help:      "Unread-count cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) ObserveVote(target, action string) {
	if m == nil {
		return
	}
	m.VotesTotal.WithLabelValues(target, action).Inc()
}

func (m *Metrics) ObserveVoteRejected(reason string) {
	if m == nil {
		return
	}
	m.VoteRejectionsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveNotification(kind string) {
	if m == nil {
		return
	}
	m.NotificationsCreatedTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveMarkedRead(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.MarkedReadTotal.Add(float64(n))
}

func (m *Metrics) ObserveUnreadCache(result string) {
	if m == nil {
		return
	}
	m.UnreadCacheTotal.WithLabelValues(result).Inc()
}
