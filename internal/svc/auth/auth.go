// Package auth is the authentication service: email/password sign-in
// against the user collection, a server-side session record per device,
// and HS256 tokens for the shell API.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/petstead/api/data/model"
	"github.com/petstead/api/internal/errors"
	"github.com/petstead/api/internal/svc/docstore"
	"github.com/petstead/api/internal/svc/session"
)

type Authorizer interface {
	// SignIn verifies credentials, opens a session record, installs the
	// identity into the session context and returns the signed token.
	SignIn(ctx context.Context, email string, password string) (session.Identity, string, error)
	// SignOut deletes the session record. A failure here is fatal to any
	// caller mid-switch: the identity context is left untouched.
	// Signing out twice is a no-op.
	SignOut(ctx context.Context) error

	SignJWT(claim jwt.Claims) (string, error)
	VerifyJWT(token string, out jwt.Claims) (*jwt.Token, error)
}

type Options struct {
	JWTSecret  string
	SessionTTL time.Duration

	Store   docstore.Instance
	Session session.Instance
}

func New(opt Options) Authorizer {
	ttl := opt.SessionTTL
	if ttl == 0 {
		ttl = time.Hour * 24 * 30
	}

	return &authorizer{
		jwtSecret:  opt.JWTSecret,
		sessionTTL: ttl,
		store:      opt.Store,
		session:    opt.Session,
	}
}

type authorizer struct {
	jwtSecret  string
	sessionTTL time.Duration
	store      docstore.Instance
	session    session.Instance

	mu        sync.Mutex
	sessionID string
}

// JWTClaimSession is the token claim for one device session.
type JWTClaimSession struct {
	SessionID string `json:"sid"`

	jwt.RegisteredClaims
}

func (a *authorizer) SignIn(ctx context.Context, email string, password string) (session.Identity, string, error) {
	docs, err := a.store.Query(ctx, "users", docstore.Where("email", docstore.OpEqual, email))
	if err != nil {
		return session.Identity{}, "", err
	}

	if len(docs) == 0 {
		return session.Identity{}, "", errors.ErrBadSignIn().SetDetail("account not found")
	}

	user := decodeUser(docs[0])

	// An auth record without a usable profile document must not produce a
	// half-signed-in state.
	if user.PasswordHash == "" {
		return session.Identity{}, "", errors.ErrBadSignIn().SetDetail("account not found")
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return session.Identity{}, "", errors.ErrBadSignIn()
	}

	sid, err := a.store.Create(ctx, "sessions", bson.M{
		"user_id":    user.ID,
		"issued_at":  a.store.Now(),
		"expires_at": time.Now().Add(a.sessionTTL),
	})
	if err != nil {
		return session.Identity{}, "", err
	}

	expiry := time.Now().Add(a.sessionTTL)

	token, err := a.SignJWT(&JWTClaimSession{
		SessionID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	})
	if err != nil {
		return session.Identity{}, "", err
	}

	identity := session.Identity{
		ID:         user.ID,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Email:      user.Email,
		AvatarPath: user.ImagePath,
	}

	a.mu.Lock()
	a.sessionID = sid
	a.mu.Unlock()

	a.session.SetActive(identity)

	// Initial presence fact; best-effort like every presence write.
	if err = a.store.PutMerged(ctx, "users/"+user.ID, bson.M{
		"active_status":  model.ActiveStatusActive,
		"last_online_at": a.store.Now(),
	}); err != nil {
		zap.S().Errorw("failed to write sign-in presence",
			"error", err,
			"user_id", user.ID,
		)
	}

	return identity, token, nil
}

func (a *authorizer) SignOut(ctx context.Context) error {
	a.mu.Lock()
	sid := a.sessionID
	a.mu.Unlock()

	if sid == "" {
		return nil
	}

	if err := a.store.Delete(ctx, "sessions/"+sid); err != nil {
		return err
	}

	a.mu.Lock()
	a.sessionID = ""
	a.mu.Unlock()

	return nil
}

func (a *authorizer) SignJWT(claim jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claim).SignedString([]byte(a.jwtSecret))
}

func (a *authorizer) VerifyJWT(token string, out jwt.Claims) (*jwt.Token, error) {
	return jwt.ParseWithClaims(token, out, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}

		return []byte(a.jwtSecret), nil
	})
}

func decodeUser(doc docstore.Document) model.UserModel {
	u := model.UserModel{ID: doc.ID}

	u.FirstName = asString(doc.Data, "firstname")
	u.LastName = asString(doc.Data, "lastname")
	u.Email = asString(doc.Data, "email")
	u.ImagePath = asString(doc.Data, "img_path")
	u.PasswordHash = asString(doc.Data, "password_hash")

	return u
}

func asString(m bson.M, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}

	return ""
}
