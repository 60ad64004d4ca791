// Package session implements the signed cookie session store. Sessions are
// held entirely by the client: the payload is a small key/value map wrapped in
// a signed, time-limited envelope, so the server keeps no session table and
// trusts a payload only after its signature validates.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultName is the cookie name used when Options.Name is empty.
const DefaultName = "_session"

// ErrNoSecrets is returned by NewStore when no signing secret is configured.
// Callers are expected to treat it as fatal at startup.
var ErrNoSecrets = errors.New("session: at least one signing secret is required")

// Options configures cookie attributes and the signing secrets. Secrets are
// ordered: the first one signs, every one of them is tried during
// verification, which allows rotating secrets without invalidating sessions
// signed with an older one.
type Options struct {
	Name    string
	Path    string
	TTL     time.Duration
	Secure  bool
	Secrets [][]byte
}

// Store signs, serializes and parses session cookies.
type Store struct {
	opts Options
}

func NewStore(opts Options) (*Store, error) {
	if len(opts.Secrets) == 0 {
		return nil, ErrNoSecrets
	}
	for _, secret := range opts.Secrets {
		if len(secret) == 0 {
			return nil, ErrNoSecrets
		}
	}
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Path == "" {
		opts.Path = "/"
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	return &Store{opts: opts}, nil
}

// Name returns the configured cookie name.
func (st *Store) Name() string {
	return st.opts.Name
}

// TTL returns the configured session lifetime.
func (st *Store) TTL() time.Duration {
	return st.opts.TTL
}

// Session is the mutable, in-memory view of a session payload.
type Session struct {
	values map[string]string
}

func (s *Session) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *Session) Set(key, value string) {
	s.values[key] = value
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Data map[string]string `json:"data,omitempty"`
}

// New produces an empty session.
func (st *Store) New() *Session {
	return &Session{values: map[string]string{}}
}

// Decode parses and signature-validates a raw cookie value. A missing,
// malformed, tampered or expired value yields an empty session, never an
// error. Verification tries each configured secret in order.
func (st *Store) Decode(value string) *Session {
	if value == "" {
		return st.New()
	}
	for _, secret := range st.opts.Secrets {
		claims := &sessionClaims{}
		token, err := jwt.ParseWithClaims(value, claims,
			func(*jwt.Token) (any, error) { return secret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		)
		if err != nil || !token.Valid {
			continue
		}
		sess := st.New()
		for k, v := range claims.Data {
			sess.values[k] = v
		}
		return sess
	}
	return st.New()
}

// FromRequest decodes the session carried by the request's cookie header.
func (st *Store) FromRequest(r *http.Request) *Session {
	cookie, err := r.Cookie(st.opts.Name)
	if err != nil {
		return st.New()
	}
	return st.Decode(cookie.Value)
}

// Cookie signs the session payload with the first secret and returns the
// cookie to attach to the response. The envelope expires at expiresAt, after
// which Decode treats it as absent.
func (st *Store) Cookie(sess *Session, expiresAt time.Time) (*http.Cookie, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Data: sess.values,
	})
	signed, err := token.SignedString(st.opts.Secrets[0])
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &http.Cookie{
		Name:     st.opts.Name,
		Value:    signed,
		Path:     st.opts.Path,
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Round(time.Second).Seconds()),
		HttpOnly: true,
		Secure:   st.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Issue is Cookie with the store's configured TTL from now.
func (st *Store) Issue(sess *Session) (*http.Cookie, error) {
	return st.Cookie(sess, time.Now().Add(st.opts.TTL))
}

// Expire returns a cookie that overwrites and immediately invalidates the
// session on the client.
func (st *Store) Expire() *http.Cookie {
	return &http.Cookie{
		Name:     st.opts.Name,
		Value:    "",
		Path:     st.opts.Path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   st.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
