package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry operations that can lose a race.
const (
	OpReplace     = "replace"
	OpPutIfAbsent = "put_if_absent"
)

// Metrics holds the tester's Prometheus collectors.
type Metrics struct {
	SessionsStarted  prometheus.Counter
	SessionsFinished prometheus.Counter
	SessionsFailed   prometheus.Counter
	RegistryRaceLost *prometheus.CounterVec
	StoreErrors      *prometheus.CounterVec
	Instructions     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stacktester_sessions_started_total",
			Help: "Total number of sessions that started executing instructions",
		}),
		SessionsFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stacktester_sessions_finished_total",
			Help: "Total number of sessions that terminated after draining their children",
		}),
		SessionsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stacktester_sessions_failed_total",
			Help: "Total number of sessions whose instruction stream ended with an uncaught failure",
		}),
		RegistryRaceLost: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stacktester_registry_race_lost_total",
				Help: "Transactions cancelled after losing a registry race",
			},
			[]string{"op"},
		),
		StoreErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stacktester_store_errors_total",
				Help: "Store errors converted to stack values",
			},
			[]string{"code"},
		),
		Instructions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stacktester_instructions_total",
				Help: "Executed instructions by operation",
			},
			[]string{"op"},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.SessionsStarted,
			m.SessionsFinished,
			m.SessionsFailed,
			m.RegistryRaceLost,
			m.StoreErrors,
			m.Instructions,
		)
	}
	return m
}

func (m *Metrics) SessionStarted() {
	if m != nil {
		m.SessionsStarted.Inc()
	}
}

func (m *Metrics) SessionFinished() {
	if m != nil {
		m.SessionsFinished.Inc()
	}
}

func (m *Metrics) SessionFailed() {
	if m != nil {
		m.SessionsFailed.Inc()
	}
}

func (m *Metrics) RaceLost(op string) {
	if m != nil {
		m.RegistryRaceLost.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) StoreError(code int) {
	if m != nil {
		m.StoreErrors.WithLabelValues(strconv.Itoa(code)).Inc()
	}
}

func (m *Metrics) Instruction(op string) {
	if m != nil {
		m.Instructions.WithLabelValues(op).Inc()
	}
}
