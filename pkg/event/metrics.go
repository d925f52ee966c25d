package event

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/metric"
)

// Metrics is the built-in metrics subscriber (§4.5): it aggregates
// per-kind, per-agent, success/failure counters and a histogram of
// step durations, exported through both a Prometheus registry and an
// OpenTelemetry meter so deployments can wire either ecosystem.
type Metrics struct {
	sub *Subscription

	mu           sync.Mutex
	countsByKind map[Kind]uint64
	countsByAgent map[string]uint64
	failures     uint64
	successes    uint64

	eventsTotal   *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	otelEvents    metric.Int64Counter
	otelStepHisto metric.Float64Histogram
}

// NewMetrics subscribes to bus and begins aggregating. registry may be
// nil to skip Prometheus registration; meter may be nil to skip OTel.
func NewMetrics(bus *Bus, registry *prometheus.Registry, meter metric.Meter) (*Metrics, error) {
	m := &Metrics{
		countsByKind:  make(map[Kind]uint64),
		countsByAgent: make(map[string]uint64),
	}

	if registry != nil {
		m.eventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loom_events_total",
			Help: "Total events published by kind and agent.",
		}, []string{"kind", "agent_id"})
		m.stepDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loom_step_duration_seconds",
			Help:    "Executor step duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"agent_id"})
		if err := registry.Register(m.eventsTotal); err != nil {
			return nil, err
		}
		if err := registry.Register(m.stepDuration); err != nil {
			return nil, err
		}
	}

	if meter != nil {
		counter, err := meter.Int64Counter("loom.events.total")
		if err != nil {
			return nil, err
		}
		histo, err := meter.Float64Histogram("loom.step.duration")
		if err != nil {
			return nil, err
		}
		m.otelEvents = counter
		m.otelStepHisto = histo
	}

	m.sub = bus.Subscribe(Filter{})
	go m.drain()
	return m, nil
}

func (m *Metrics) drain() {
	for e := range m.sub.Events() {
		m.observe(e)
	}
}

func (m *Metrics) observe(e Event) {
	m.mu.Lock()
	m.countsByKind[e.Kind]++
	m.countsByAgent[e.AgentID]++
	if e.Kind == KindErrorRaised {
		m.failures++
	} else {
		m.successes++
	}
	m.mu.Unlock()

	if m.eventsTotal != nil {
		m.eventsTotal.WithLabelValues(string(e.Kind), e.AgentID).Inc()
	}
	if m.otelEvents != nil {
		m.otelEvents.Add(context.Background(), 1)
	}

	if e.Kind == KindStepCompleted {
		if durMs, ok := e.Metadata["duration_ms"].(float64); ok {
			dur := time.Duration(durMs) * time.Millisecond
			if m.stepDuration != nil {
				m.stepDuration.WithLabelValues(e.AgentID).Observe(dur.Seconds())
			}
			if m.otelStepHisto != nil {
				m.otelStepHisto.Record(context.Background(), dur.Seconds())
			}
		}
	}
}

// Snapshot is a point-in-time read of the aggregated counters.
type Snapshot struct {
	CountsByKind  map[Kind]uint64
	CountsByAgent map[string]uint64
	Successes     uint64
	Failures      uint64
}

// Snapshot returns a copy of the current aggregate counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := Snapshot{
		CountsByKind:  make(map[Kind]uint64, len(m.countsByKind)),
		CountsByAgent: make(map[string]uint64, len(m.countsByAgent)),
		Successes:     m.successes,
		Failures:      m.failures,
	}
	for k, v := range m.countsByKind {
		out.CountsByKind[k] = v
	}
	for k, v := range m.countsByAgent {
		out.CountsByAgent[k] = v
	}
	return out
}

// Close unsubscribes from the bus.
func (m *Metrics) Close() { m.sub.Unsubscribe() }
