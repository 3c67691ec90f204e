// Package prefs holds the dashboard's locally persisted key/value state.
package prefs

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("preference not found")

// Store persists raw values by key. Values are opaque; no versioning or migration.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// GetJSON decodes the value stored under key into v.
func GetJSON(ctx context.Context, store Store, key string, v interface{}) error {
	raw, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	return errors.Wrapf(json.Unmarshal(raw, v), "decoding preference %q", key)
}

// SetJSON stores v as JSON under key.
func SetJSON(ctx context.Context, store Store, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encoding preference %q", key)
	}
	return store.Set(ctx, key, raw)
}

type scopeKey struct{}

// WithScope returns a context whose preferences are kept apart from other scopes,
// eg. one scope per signed-in user.
func WithScope(ctx context.Context, scope string) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// Scoped prefixes every key with the scope of the context, when there is one.
func Scoped(store Store) Store {
	return scoped{store: store}
}

type scoped struct {
	store Store
}

func scopedKey(ctx context.Context, key string) string {
	if scope, ok := ctx.Value(scopeKey{}).(string); ok && scope != "" {
		return scope + ":" + key
	}
	return key
}

func (s scoped) Get(ctx context.Context, key string) ([]byte, error) {
	return s.store.Get(ctx, scopedKey(ctx, key))
}

func (s scoped) Set(ctx context.Context, key string, value []byte) error {
	return s.store.Set(ctx, scopedKey(ctx, key), value)
}

func (s scoped) Delete(ctx context.Context, key string) error {
	return s.store.Delete(ctx, scopedKey(ctx, key))
}
