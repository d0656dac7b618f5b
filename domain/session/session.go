// Package session implements stateless, cookie-transported sessions.
// A session is a self-contained signed token (HMAC-SHA256 JWT); no
// server-side session store exists, so rotating the signing secret
// invalidates every previously issued session.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gopkg.in/yaml.v3"

	"github.com/shelf-cms/shelf/ports"
)

// MinSecretLength is the minimum length of the signing secret.
const MinSecretLength = 32

// DefaultMaxAge is the session lifetime when none is configured.
const DefaultMaxAge = 30 * 24 * time.Hour

// DefaultCookieName is the session cookie name when none is configured.
const DefaultCookieName = "shelf_session"

var (
	// ErrNoSession indicates the request carries no session cookie.
	ErrNoSession = errors.New("no session")

	// ErrInvalidSession indicates the token failed verification:
	// expired, tampered with, or signed with a rotated-away secret.
	ErrInvalidSession = errors.New("invalid session")
)

// Data is the payload carried by a session: the authenticated item and
// the field values projected into the token at sign-in.
type Data struct {
	// ItemID is the id of the authenticated item.
	ItemID string `json:"itemId"`

	// ListKey is the list the item belongs to.
	ListKey string `json:"listKey"`

	// Data holds the projected session fields (e.g. name, role).
	Data map[string]any `json:"data,omitempty"`
}

// Config configures the session mechanism.
type Config struct {
	// Secret signs session tokens. Must be at least MinSecretLength
	// bytes.
	Secret string `yaml:"secret"`

	// MaxAge is the session lifetime. Defaults to DefaultMaxAge.
	MaxAge time.Duration `yaml:"max_age"`

	// CookieName defaults to DefaultCookieName.
	CookieName string `yaml:"cookie_name"`

	// Secure marks the cookie HTTPS-only.
	Secure bool `yaml:"secure"`
}

// UnmarshalYAML accepts max_age as a duration string ("30m", "720h").
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Secret     string `yaml:"secret"`
		MaxAge     string `yaml:"max_age"`
		CookieName string `yaml:"cookie_name"`
		Secure     bool   `yaml:"secure"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.Secret = raw.Secret
	c.CookieName = raw.CookieName
	c.Secure = raw.Secure
	if raw.MaxAge != "" {
		d, err := time.ParseDuration(raw.MaxAge)
		if err != nil {
			return fmt.Errorf("session.max_age: %w", err)
		}
		c.MaxAge = d
	}
	return nil
}

// Manager issues and verifies session tokens and moves them through
// cookies. Thread-safe and suitable for concurrent use.
type Manager struct {
	secret     []byte
	maxAge     time.Duration
	cookieName string
	secure     bool
	clock      ports.Clock
}

type claims struct {
	ListKey string         `json:"list"`
	Data    map[string]any `json:"data,omitempty"`
	jwt.RegisteredClaims
}

// New creates a session manager. A nil clock uses real time.
func New(cfg Config, clk ports.Clock) (*Manager, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d characters, got %d",
			MinSecretLength, len(cfg.Secret))
	}

	m := &Manager{
		secret:     []byte(cfg.Secret),
		maxAge:     cfg.MaxAge,
		cookieName: cfg.CookieName,
		secure:     cfg.Secure,
		clock:      clk,
	}
	if m.maxAge <= 0 {
		m.maxAge = DefaultMaxAge
	}
	if m.cookieName == "" {
		m.cookieName = DefaultCookieName
	}
	if m.clock == nil {
		m.clock = realClock{}
	}

	return m, nil
}

// MaxAge returns the configured session lifetime.
func (m *Manager) MaxAge() time.Duration {
	return m.maxAge
}

// Issue creates a signed token for the given session data.
func (m *Manager) Issue(data Data) (string, time.Time, error) {
	now := m.clock.Now().UTC()
	expiresAt := now.Add(m.maxAge)

	c := claims{
		ListKey: data.ListKey,
		Data:    data.Data,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "shelf",
			Subject:   data.ItemID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// Verify validates a token and returns its session data.
func (m *Manager) Verify(tokenString string) (*Data, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return m.clock.Now() }))

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidSession
	}

	return &Data{
		ItemID:  c.Subject,
		ListKey: c.ListKey,
		Data:    c.Data,
	}, nil
}

// Start issues a session for data and sets the cookie on w.
func (m *Manager) Start(w http.ResponseWriter, data Data) error {
	signed, expiresAt, err := m.Issue(data)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    signed,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.secure,
	})
	return nil
}

// Read extracts and verifies the session from r's cookie.
func (m *Manager) Read(r *http.Request) (*Data, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return nil, ErrNoSession
	}
	return m.Verify(cookie.Value)
}

// End clears the session cookie on w.
func (m *Manager) End(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.secure,
	})
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
