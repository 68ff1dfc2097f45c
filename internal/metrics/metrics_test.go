package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_ObserveVote(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveVote("post", "applied")
	m.ObserveVote("post", "applied")
	m.ObserveVote("comment", "removed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.VotesTotal.WithLabelValues("post", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VotesTotal.WithLabelValues("comment", "removed")))
}

func TestMetrics_ObserveMarkedRead_IgnoresZero(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveMarkedRead(0)
	m.ObserveMarkedRead(3)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.MarkedReadTotal))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveVote("post", "applied")
		m.ObserveVoteRejected("rate_limited")
		m.ObserveNotification("vote")
		m.ObserveMarkedRead(1)
		m.ObserveUnreadCache("hit")
	})
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	assert.Panics(t, func() { New(reg) })
}
