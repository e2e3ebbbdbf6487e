package phone

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Причины отклонения входящих сессий
const (
	RejectReasonNoCommonCodec = "no_common_codec"
	RejectReasonBadOffer      = "bad_offer"
)

// MetricsConfig конфигурация метрик клиента
type MetricsConfig struct {
	// Namespace префикс для Prometheus метрик
	Namespace string

	// Subsystem подсистема для Prometheus метрик
	Subsystem string

	// Registerer реестр метрик, nil означает prometheus.DefaultRegisterer
	Registerer prometheus.Registerer
}

// DefaultMetricsConfig возвращает конфигурацию по умолчанию
func DefaultMetricsConfig() *MetricsConfig {
	return &MetricsConfig{
		Namespace: "jingle",
		Subsystem: "phone",
	}
}

// Metrics собирает Prometheus метрики реестра звонков.
// Методы nil-безопасны: клиент без метрик хранит nil.
type Metrics struct {
	callsCreated     prometheus.Counter
	callsDestroyed   prometheus.Counter
	callsActive      prometheus.Gauge
	callsJoined      prometheus.Counter
	focusChanges     prometheus.Counter
	sessionsRejected *prometheus.CounterVec
	sessionsAttached prometheus.Gauge
}

// NewMetrics создает и регистрирует метрики
func NewMetrics(config *MetricsConfig) *Metrics {
	if config == nil {
		config = DefaultMetricsConfig()
	}
	reg := config.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	ns, sub := config.Namespace, config.Subsystem

	return &Metrics{
		callsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "calls_created_total",
			Help:      "Total number of calls created",
		}),
		callsDestroyed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "calls_destroyed_total",
			Help:      "Total number of calls destroyed",
		}),
		callsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "calls_active",
			Help:      "Number of calls currently held by the registry",
		}),
		callsJoined: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "calls_joined_total",
			Help:      "Total number of call merges",
		}),
		focusChanges: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "focus_changes_total",
			Help:      "Total number of focus changes",
		}),
		sessionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "sessions_rejected_total",
			Help:      "Total number of inbound sessions rejected by negotiation",
		}, []string{"reason"}),
		sessionsAttached: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "sessions_attached",
			Help:      "Number of sessions mapped to calls",
		}),
	}
}

func (m *Metrics) callCreated() {
	if m == nil {
		return
	}
	m.callsCreated.Inc()
	m.callsActive.Inc()
}

func (m *Metrics) callDestroyed() {
	if m == nil {
		return
	}
	m.callsDestroyed.Inc()
	m.callsActive.Dec()
}

func (m *Metrics) callJoined() {
	if m == nil {
		return
	}
	m.callsJoined.Inc()
}

func (m *Metrics) focusChanged() {
	if m == nil {
		return
	}
	m.focusChanges.Inc()
}

func (m *Metrics) sessionRejected(reason string) {
	if m == nil {
		return
	}
	m.sessionsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) sessionMapped() {
	if m == nil {
		return
	}
	m.sessionsAttached.Inc()
}

func (m *Metrics) sessionUnmapped() {
	if m == nil {
		return
	}
	m.sessionsAttached.Dec()
}
