// Package events publishes realtime facts to the message bus so other
// clients' listeners converge without polling the store.
package events

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/petstead/api/internal/instance"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func SubjectPresence(subjectID string) string {
	return fmt.Sprintf("petstead.presence.%s", subjectID)
}

func SubjectNotifications(receiverID string) string {
	return fmt.Sprintf("petstead.notifications.%s", receiverID)
}

type Options struct {
	URL string
}

func New(opt Options) (instance.Events, error) {
	nc, err := nats.Connect(opt.URL,
		nats.Name("petstead-api"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			zap.S().Warnw("nats disconnected",
				"error", err,
			)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			zap.S().Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}

	return &inst{nc: nc}, nil
}

type inst struct {
	nc *nats.Conn
}

func (e *inst) Publish(subject string, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return e.nc.Publish(subject, b)
}

func (e *inst) Connected() bool {
	return e.nc.IsConnected()
}

func (e *inst) Close() error {
	return e.nc.Drain()
}

// NewNoop is the bus used when nats is disabled in config.
func NewNoop() instance.Events {
	return noop{}
}

type noop struct{}

func (noop) Publish(string, interface{}) error { return nil }
func (noop) Connected() bool                   { return true }
func (noop) Close() error                      { return nil }
