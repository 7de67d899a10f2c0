// Package navigation is the seam to the shell's router. The core hands
// over a route and parameters and never renders anything itself.
package navigation

import (
	"sync"

	"go.uber.org/zap"
)

type Navigator interface {
	Navigate(route string, params map[string]string) error
}

const (
	RouteLogin = "auth/login"
)

// Logger is the navigator used when the process runs headless: it records
// the intent in the log for the shell to act on.
type Logger struct{}

func (Logger) Navigate(route string, params map[string]string) error {
	zap.S().Infow("navigate",
		"route", route,
		"params", params,
	)

	return nil
}

// Recorder captures navigation calls for tests.
type Recorder struct {
	mu    sync.Mutex
	calls []Call

	// Hook, when set, runs synchronously inside Navigate before the call
	// is recorded.
	Hook func(Call)
}

type Call struct {
	Route  string
	Params map[string]string
}

func (r *Recorder) Navigate(route string, params map[string]string) error {
	call := Call{Route: route, Params: params}

	if r.Hook != nil {
		r.Hook(call)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, call)

	return nil
}

func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Call, len(r.calls))
	copy(out, r.calls)

	return out
}
