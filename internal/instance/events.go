package instance

// Events is the realtime fan-out bus. Publishing is best-effort everywhere
// it is used; a disconnected bus only costs liveness of other clients'
// views, never correctness of the store.
type Events interface {
	Publish(subject string, payload interface{}) error
	Connected() bool
	// Close drains buffered messages before disconnecting.
	Close() error
}
