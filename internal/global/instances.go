package global

import (
	"github.com/petstead/api/internal/instance"
	"github.com/petstead/api/internal/lifecycle"
	"github.com/petstead/api/internal/mongo"
	"github.com/petstead/api/internal/svc/auth"
	"github.com/petstead/api/internal/svc/docstore"
	"github.com/petstead/api/internal/svc/notifications"
	"github.com/petstead/api/internal/svc/presence"
	"github.com/petstead/api/internal/svc/profiles"
	"github.com/petstead/api/internal/svc/session"
	"github.com/petstead/api/internal/svc/storage"
)

type Instances struct {
	Mongo      mongo.Instance
	Events     instance.Events
	Prometheus instance.Prometheus

	Store         docstore.Instance
	Session       session.Instance
	Auth          auth.Authorizer
	Presence      presence.Instance
	Notifications notifications.Instance
	Profiles      profiles.Instance
	Storage       storage.Instance
	Lifecycle     lifecycle.Source
}
