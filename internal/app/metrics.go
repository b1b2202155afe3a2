package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the coordinator's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	eventsTotal     *prometheus.CounterVec
	rejectedTotal   *prometheus.CounterVec
	forwardsTotal   *prometheus.CounterVec
	droppedConns    prometheus.Counter
	kicksTotal      prometheus.Counter
	rateLimitedChat prometheus.Counter
}

// NewMetrics registers collectors on reg. Connection and room gauges read the
// live registry and store at scrape time.
func NewMetrics(reg prometheus.Registerer, conns *Registry, rooms *RoomStore) *Metrics {
	factory := promauto.With(reg)
	const ns = "medcall"

	if conns != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "connections",
			Help:      "Attached signaling connections",
		}, func() float64 { return float64(conns.ConnCount()) })
	}
	if rooms != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "rooms",
			Help:      "Live rooms",
		}, func() float64 { return float64(rooms.RoomCount()) })
	}

	return &Metrics{
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "events_total",
			Help:      "Inbound events dispatched, by type",
		}, []string{"type"}),
		rejectedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "events_rejected_total",
			Help:      "Inbound frames rejected as malformed or unknown",
		}, []string{"reason"}),
		forwardsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "signaling_forwards_total",
			Help:      "Point-to-point signaling forwards, by result",
		}, []string{"type", "result"}),
		droppedConns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "dropped_connections_total",
			Help:      "Connections dropped because their outbound queue overflowed",
		}),
		kicksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "kicks_total",
			Help:      "Participants removed by an administrator",
		}),
		rateLimitedChat: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "chat_rate_limited_total",
			Help:      "Chat messages refused by the rate limiter",
		}),
	}
}

func (m *Metrics) Event(typ string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(typ).Inc()
}

func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) Forward(typ, result string) {
	if m == nil {
		return
	}
	m.forwardsTotal.WithLabelValues(typ, result).Inc()
}

func (m *Metrics) DroppedConn() {
	if m == nil {
		return
	}
	m.droppedConns.Inc()
}

func (m *Metrics) Kick() {
	if m == nil {
		return
	}
	m.kicksTotal.Inc()
}

func (m *Metrics) ChatRateLimited() {
	if m == nil {
		return
	}
	m.rateLimitedChat.Inc()
}
