package lifecycle

import (
	"testing"

	"github.com/petstead/api/data/model"
	"github.com/petstead/api/internal/testutil"
)

func TestPresenceClassification(t *testing.T) {
	t.Parallel()

	testutil.Assert(t, model.ActiveStatusActive, StateActive.Presence(), "foreground is active")
	testutil.Assert(t, model.ActiveStatusInactive, StateBackground.Presence(), "background is inactive")
	testutil.Assert(t, model.ActiveStatusInactive, StateInactive.Presence(), "inactive is inactive")
}

func TestSubscribeAndRemove(t *testing.T) {
	t.Parallel()

	src := New()

	got := []State{}
	remove := src.Subscribe(func(s State) {
		got = append(got, s)
	})

	src.Report(StateBackground)
	src.Report(StateActive)

	testutil.AssertDeep(t, []State{StateBackground, StateActive}, got, "events in report order")

	remove()
	remove()

	src.Report(StateInactive)
	testutil.Assert(t, 2, len(got), "no events after removal")
}
