// Package profiles implements the profile-switch protocol: enumerating
// the profiles and pages this device can switch into, and executing a
// switch. Pages are listed but are not switch targets; selecting one is
// rejected explicitly rather than silently ignored.
package profiles

import (
	"context"
	"strings"
	"time"

	cache "github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/petstead/api/data/model"
	"github.com/petstead/api/internal/errors"
	"github.com/petstead/api/internal/instance"
	"github.com/petstead/api/internal/navigation"
	"github.com/petstead/api/internal/svc/auth"
	"github.com/petstead/api/internal/svc/docstore"
	"github.com/petstead/api/internal/svc/session"
	"github.com/petstead/api/internal/svc/storage"
)

type Instance interface {
	// ListSwitchable resolves device-remembered profile ids to live
	// records. Ids with no matching record are omitted, not an error.
	ListSwitchable(ctx context.Context, deviceProfileIDs []string) (Switchable, error)
	// SwitchTo signs the active identity out and redirects to
	// re-authentication scoped to the target's email. Switching to the
	// already-active profile does nothing.
	SwitchTo(ctx context.Context, target model.ProfileSummary) error
	// SwitchToPage always fails with ErrUnsupported; pages cannot be
	// signed into.
	SwitchToPage(ctx context.Context, target model.PageSummary) error

	// CreatePage creates a page owned by the active identity.
	CreatePage(ctx context.Context, draft PageDraft) (string, error)

	// RememberDevice appends a profile id to this device's remembered
	// list.
	RememberDevice(profileID string) error
	// DeviceProfiles returns this device's remembered profile ids.
	DeviceProfiles() ([]string, error)
}

type Switchable struct {
	Profiles []model.ProfileSummary `json:"profiles"`
	Pages    []model.PageSummary    `json:"pages"`
}

type PageDraft struct {
	Name              string   `json:"name"`
	Categories        []string `json:"categories"`
	AllowAppointments bool     `json:"allow_appointments"`
	Profile           string   `json:"profile"`
}

type Options struct {
	Session    session.Instance
	Store      docstore.Instance
	Auth       auth.Authorizer
	Navigator  navigation.Navigator
	Storage    storage.Instance
	Prometheus instance.Prometheus

	// ListTTL bounds how long a switch listing may be served from cache.
	ListTTL time.Duration
}

func New(opt Options) Instance {
	ttl := opt.ListTTL
	if ttl == 0 {
		ttl = time.Second * 30
	}

	return &inst{
		session:    opt.Session,
		store:      opt.Store,
		auth:       opt.Auth,
		navigator:  opt.Navigator,
		storage:    opt.Storage,
		prometheus: opt.Prometheus,
		listings:   cache.New(ttl, ttl*2),
	}
}

type inst struct {
	session    session.Instance
	store      docstore.Instance
	auth       auth.Authorizer
	navigator  navigation.Navigator
	storage    storage.Instance
	prometheus instance.Prometheus
	listings   *cache.Cache
}

func (p *inst) ListSwitchable(ctx context.Context, deviceProfileIDs []string) (Switchable, error) {
	if len(deviceProfileIDs) == 0 {
		return Switchable{Profiles: []model.ProfileSummary{}, Pages: []model.PageSummary{}}, nil
	}

	key := strings.Join(deviceProfileIDs, ",")
	if cached, ok := p.listings.Get(key); ok {
		return cached.(Switchable), nil
	}

	out := Switchable{Profiles: []model.ProfileSummary{}, Pages: []model.PageSummary{}}

	users, err := p.store.Query(ctx, "users", docstore.Where("_id", docstore.OpIn, deviceProfileIDs))
	if err != nil {
		return Switchable{}, err
	}

	for _, doc := range users {
		out.Profiles = append(out.Profiles, model.ProfileSummary{
			ID:         doc.ID,
			Name:       displayName(doc.Data),
			Email:      asString(doc.Data, "email"),
			AvatarPath: asString(doc.Data, "img_path"),
		})
	}

	pages, err := p.store.Query(ctx, "pages", docstore.Where("ownerId", docstore.OpIn, deviceProfileIDs))
	if err != nil {
		return Switchable{}, err
	}

	for _, doc := range pages {
		out.Pages = append(out.Pages, model.PageSummary{
			ID:         doc.ID,
			Name:       asString(doc.Data, "name"),
			AvatarPath: asString(doc.Data, "profile"),
			OwnerID:    asString(doc.Data, "ownerId"),
		})
	}

	p.listings.SetDefault(key, out)

	return out, nil
}

func (p *inst) SwitchTo(ctx context.Context, target model.ProfileSummary) error {
	active, ok := p.session.Active()
	if ok && active.ID == target.ID {
		return nil
	}

	if ok {
		// Outgoing presence is advisory; a dropped write must not block
		// the switch.
		if err := p.store.PutMerged(ctx, "users/"+active.ID, bson.M{
			"active_status":  model.ActiveStatusInactive,
			"last_online_at": p.store.Now(),
		}); err != nil {
			zap.S().Errorw("failed to write outgoing presence",
				"error", err,
				"user_id", active.ID,
			)
		}
	}

	// Session termination must succeed before anything else changes: two
	// simultaneously active sessions on one device is worse than an
	// aborted switch.
	if err := p.auth.SignOut(ctx); err != nil {
		p.switchOutcome("failed")

		return err
	}

	p.session.Clear()
	p.switchOutcome("ok")

	return p.navigator.Navigate(navigation.RouteLogin, map[string]string{
		"email": target.Email,
	})
}

func (p *inst) SwitchToPage(ctx context.Context, target model.PageSummary) error {
	return errors.ErrUnsupported().SetDetail("pages cannot be switched into")
}

func (p *inst) CreatePage(ctx context.Context, draft PageDraft) (string, error) {
	active, ok := p.session.Active()
	if !ok {
		return "", errors.ErrUnauthorized()
	}

	if strings.TrimSpace(draft.Name) == "" {
		return "", errors.ErrValidationRejected().SetDetail("page name is required")
	}

	if len(draft.Categories) == 0 {
		return "", errors.ErrValidationRejected().SetDetail("at least one category is required")
	}

	return p.store.Create(ctx, "pages", bson.M{
		"name":               strings.TrimSpace(draft.Name),
		"categories":         draft.Categories,
		"allow_appointments": draft.AllowAppointments,
		"profile":            draft.Profile,
		"created_at":         p.store.Now(),
		"ownerId":            active.ID,
	})
}

func (p *inst) RememberDevice(profileID string) error {
	ids, err := p.DeviceProfiles()
	if err != nil {
		return err
	}

	for _, id := range ids {
		if id == profileID {
			return nil
		}
	}

	ids = append(ids, profileID)

	return p.storage.Write(storage.KeyProfiles, strings.Join(ids, ","))
}

func (p *inst) DeviceProfiles() ([]string, error) {
	raw, err := p.storage.Read(storage.KeyProfiles)
	if err != nil {
		return nil, err
	}

	if raw == "" {
		return []string{}, nil
	}

	ids := []string{}
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

func (p *inst) switchOutcome(outcome string) {
	if p.prometheus != nil {
		p.prometheus.ProfileSwitch(outcome)
	}
}

func displayName(data bson.M) string {
	return strings.TrimSpace(strings.TrimSpace(asString(data, "firstname")) + " " + strings.TrimSpace(asString(data, "lastname")))
}

func asString(m bson.M, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}

	return ""
}
