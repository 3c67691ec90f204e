// Package session provides the access token of the current dashboard user to the REST client.
package session

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/prefs"
	"github.com/trezcool/schoolhealth/core/user"
)

// TokenKey is the preference holding the access token of the CLI session.
const TokenKey = "accessToken"

var (
	ErrNoSession    = errors.New("not signed in")
	ErrExpired      = errors.New("session expired")
	ErrInvalidToken = errors.New("invalid access token")

	NowFunc = time.Now // mockable
)

// Claims are the claims of the access tokens issued by the REST API.
type Claims struct {
	jwt.StandardClaims
	UserID core.ID `json:"id,omitempty"`
	Name   string  `json:"name,omitempty"`
	Email  string  `json:"email,omitempty"`
	Role   string  `json:"role,omitempty"`
}

// User returns the user the token was issued to.
func (c Claims) User() user.User {
	id := c.UserID
	if id == "" {
		id = core.ID(c.Subject)
	}
	return user.User{ID: id, Name: c.Name, Email: c.Email, Role: c.Role, IsActive: true}
}

func (c Claims) Expired() bool {
	return !c.VerifyExpiresAt(NowFunc().Unix(), false)
}

// ParseUnverified reads the claims of token without checking its signature,
// which only the REST API can do.
func ParseUnverified(token string) (*Claims, error) {
	claims := new(Claims)
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	return claims, nil
}

// ParseHS256 verifies token with secret and returns its claims.
func ParseHS256(token string, secret []byte) (*Claims, error) {
	claims := new(Claims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Static always provides the same token.
type Static string

func (s Static) Token(context.Context) (string, error) { return string(s), nil }

type tokenKey struct{}

// WithToken returns a context carrying the caller's token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// Context provides the token carried by the request context, as forwarded by the BFF.
type Context struct{}

func (Context) Token(ctx context.Context) (string, error) {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token, nil
}

// Store keeps the CLI session token in the preference store.
type Store struct {
	store prefs.Store
}

var _ core.CredentialProvider = (*Store)(nil)

func NewStore(store prefs.Store) *Store {
	return &Store{store: store}
}

// Token returns the saved token, ErrExpired once it has expired.
// No session is not an error: the request goes out unauthenticated.
func (s *Store) Token(ctx context.Context) (string, error) {
	raw, err := s.store.Get(ctx, TokenKey)
	if err != nil {
		if errors.Is(err, prefs.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	token := string(raw)
	claims, err := ParseUnverified(token)
	if err != nil {
		return "", err
	}
	if claims.Expired() {
		return "", ErrExpired
	}
	return token, nil
}

// Save stores token after checking it is a well-formed, unexpired JWT.
func (s *Store) Save(ctx context.Context, token string) (*Claims, error) {
	token = core.CleanString(token)
	claims, err := ParseUnverified(token)
	if err != nil {
		return nil, err
	}
	if claims.Expired() {
		return nil, ErrExpired
	}
	return claims, s.store.Set(ctx, TokenKey, []byte(token))
}

// Claims returns the claims of the saved token.
func (s *Store) Claims(ctx context.Context) (*Claims, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrNoSession
	}
	return ParseUnverified(token)
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.store.Delete(ctx, TokenKey); err != nil && !errors.Is(err, prefs.ErrNotFound) {
		return err
	}
	return nil
}
