package instance

import "github.com/prometheus/client_golang/prometheus"

type Prometheus interface {
	Register(prometheus.Registerer)

	StoreOperation(op string, outcome string)
	PresenceWrite(status string)
	SubscriptionOpen()
	SubscriptionClose()
	ProfileSwitch(outcome string)
}
