package global

import (
	"context"

	"go.uber.org/multierr"
)

// Shutdown tears the long-lived instances down in dependency order: the
// presence and notification feeds detach from the session first, then the
// event bus drains, then the store connection closes. All teardown errors
// are reported together.
func (i *Instances) Shutdown(ctx context.Context) error {
	if i.Presence != nil {
		i.Presence.Close()
	}
	if i.Notifications != nil {
		i.Notifications.Close()
	}

	var err error

	if i.Events != nil {
		err = multierr.Append(err, i.Events.Close())
	}
	if i.Mongo != nil {
		err = multierr.Append(err, i.Mongo.Disconnect(ctx))
	}

	return err
}
