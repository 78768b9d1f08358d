package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidCredentials is returned by Login for any failed credential check.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Session is the result of a successful login.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// GateConfig holds the token settings.
type GateConfig struct {
	Issuer     string
	SigningKey string
	TTL        time.Duration
}

// Gate validates credentials and tracks sessions. Callers pass the session
// token explicitly on every call.
type Gate struct {
	dir      *Directory
	sessions SessionStore
	cfg      GateConfig
}

// NewGate creates a gate.
func NewGate(dir *Directory, sessions SessionStore, cfg GateConfig) *Gate {
	return &Gate{dir: dir, sessions: sessions, cfg: cfg}
}

// Login checks the credential pair and persists a session record holding
// the user without its secret.
func (g *Gate) Login(ctx context.Context, email, secret string) (Session, error) {
	u, ok := g.dir.Authenticate(email, secret)
	if !ok {
		return Session{}, ErrInvalidCredentials
	}
	sid := uuid.NewString()
	token, err := Issue(sid, u.ID, g.cfg.Issuer, g.cfg.SigningKey, g.cfg.TTL)
	if err != nil {
		return Session{}, err
	}
	if err := g.sessions.Put(ctx, sid, u); err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: u}, nil
}

// Logout clears the session behind token. Unknown or invalid tokens are ignored.
// Expired tokens still clear their record as long as the signature holds.
func (g *Gate) Logout(ctx context.Context, token string) error {
	claims, err := Parse(token, g.cfg.SigningKey, g.cfg.Issuer, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil
	}
	return g.sessions.Delete(ctx, claims.SessionID)
}

// CurrentUser reads the session record behind token.
func (g *Gate) CurrentUser(ctx context.Context, token string) (User, bool, error) {
	claims, err := Parse(token, g.cfg.SigningKey, g.cfg.Issuer)
	if err != nil {
		return User{}, false, nil
	}
	return g.sessions.Get(ctx, claims.SessionID)
}

// IsAuthenticated reports whether token maps to a live session.
func (g *Gate) IsAuthenticated(ctx context.Context, token string) bool {
	_, ok, err := g.CurrentUser(ctx, token)
	return err == nil && ok
}
