package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/petstead/api/internal/instance"
)

type Options struct {
	Labels prometheus.Labels
}

func New(o Options) instance.Prometheus {
	return &Instance{
		storeOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "petstead_store_operations_total",
			Help:        "Document store operations by operation and outcome",
			ConstLabels: o.Labels,
		}, []string{"operation", "outcome"}),
		presenceWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "petstead_presence_writes_total",
			Help:        "Presence facts written by status",
			ConstLabels: o.Labels,
		}, []string{"status"}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "petstead_store_subscriptions",
			Help:        "Currently open store subscriptions",
			ConstLabels: o.Labels,
		}),
		profileSwitches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "petstead_profile_switches_total",
			Help:        "Profile switch attempts by outcome",
			ConstLabels: o.Labels,
		}, []string{"outcome"}),
	}
}

type Instance struct {
	storeOperations *prometheus.CounterVec
	presenceWrites  *prometheus.CounterVec
	subscriptions   prometheus.Gauge
	profileSwitches *prometheus.CounterVec
}

func (m *Instance) Register(r prometheus.Registerer) {
	r.MustRegister(
		m.storeOperations,
		m.presenceWrites,
		m.subscriptions,
		m.profileSwitches,
	)
}

func (m *Instance) StoreOperation(op string, outcome string) {
	m.storeOperations.WithLabelValues(op, outcome).Inc()
}

func (m *Instance) PresenceWrite(status string) {
	m.presenceWrites.WithLabelValues(status).Inc()
}

func (m *Instance) SubscriptionOpen() {
	m.subscriptions.Inc()
}

func (m *Instance) SubscriptionClose() {
	m.subscriptions.Dec()
}

func (m *Instance) ProfileSwitch(outcome string) {
	m.profileSwitches.WithLabelValues(outcome).Inc()
}
