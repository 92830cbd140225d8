// Package identitysvc resolves the current user from the hosted-auth access
// token saved on disk by `admin login`. The token is a JWT issued and verified
// by the auth service; locally its claims are only decoded, never re-verified
// (we hold no signing secret, the backend enforces it on every call).
package identitysvc

import (
	"os"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/BlackishOne/StudySync/core"
)

// Claims carries the token claims the app cares about.
type Claims struct {
	jwt.StandardClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

type Session struct {
	path string

	mu     sync.RWMutex
	cached *Claims
}

var _ core.Identity = (*Session)(nil)

func NewSession(path string) *Session {
	return &Session{path: path}
}

// CurrentUserID returns the token subject, or core.ErrNoIdentity when no
// session is stored or the stored token has expired.
func (s *Session) CurrentUserID() (string, error) {
	claims, err := s.Claims()
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (s *Session) Claims() (Claims, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		if expired(cached) {
			return Claims{}, core.ErrNoIdentity
		}
		return *cached, nil
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Claims{}, core.ErrNoIdentity
		}
		return Claims{}, errors.Wrap(err, "reading session file")
	}

	claims, err := decodeToken(string(raw))
	if err != nil {
		return Claims{}, err
	}

	s.mu.Lock()
	s.cached = &claims
	s.mu.Unlock()

	if expired(&claims) {
		return Claims{}, core.ErrNoIdentity
	}
	return claims, nil
}

// Login validates the token decodes at all, then stores it.
func (s *Session) Login(token string) error {
	claims, err := decodeToken(token)
	if err != nil {
		return err
	}
	if err = os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		return errors.Wrap(err, "writing session file")
	}

	s.mu.Lock()
	s.cached = &claims
	s.mu.Unlock()
	return nil
}

func (s *Session) Logout() error {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing session file")
	}
	return nil
}

func decodeToken(token string) (Claims, error) {
	token = core.CleanString(token)
	if token == "" {
		return Claims{}, core.ErrNoIdentity
	}

	var claims Claims
	if _, _, err := new(jwt.Parser).ParseUnverified(token, &claims); err != nil {
		return Claims{}, errors.Wrap(err, "decoding access token")
	}
	if claims.Subject == "" {
		return Claims{}, errors.New("access token has no subject")
	}
	return claims, nil
}

func expired(claims *Claims) bool {
	return claims.ExpiresAt > 0 && time.Now().Unix() >= claims.ExpiresAt
}
