// Package channel resolves an opaque custom key presented by a client into
// the upstream Channel record it names.
package channel

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/url"

	"github.com/digitallysavvy/llm-gateway-proxy/pkg/family"
)

// Channel is one configured upstream: a family, a base URL, a credential,
// and the optional model remapping and outbound proxy settings that apply
// to every request routed through it.
type Channel struct {
	ID         string
	CustomKey  string
	Family     family.Family
	BaseURL    string
	Credential string
	ModelMap   map[string]string
	ProxyURL   string
	TimeoutMS  int
}

// Store looks up Channel records by their opaque custom key. The real
// store (a database, a config file watcher) lives outside this module; only
// the interface and an in-memory reference implementation live here.
type Store interface {
	Lookup(ctx context.Context, customKey string) (*Channel, bool, error)
}

// MemoryStore is a Store backed by an in-memory map, suitable for tests and
// for small single-node deployments that configure channels at startup.
type MemoryStore struct {
	byKey map[string]*Channel
}

// NewMemoryStore builds a MemoryStore from a fixed set of channels.
func NewMemoryStore(channels []*Channel) (*MemoryStore, error) {
	s := &MemoryStore{byKey: make(map[string]*Channel, len(channels))}
	for _, c := range channels {
		if c.CustomKey == "" {
			return nil, fmt.Errorf("channel %q: empty custom key", c.ID)
		}
		if !c.Family.Valid() {
			return nil, fmt.Errorf("channel %q: invalid family %q", c.ID, c.Family)
		}
		if _, err := url.Parse(c.BaseURL); err != nil {
			return nil, fmt.Errorf("channel %q: invalid base URL: %w", c.ID, err)
		}
		s.byKey[c.CustomKey] = c
	}
	return s, nil
}

// Lookup implements Store. The comparison against every stored key is
// constant-time so that a client probing for a valid key cannot distinguish
// "wrong key" from "right key, wrong channel" by response latency.
func (s *MemoryStore) Lookup(ctx context.Context, customKey string) (*Channel, bool, error) {
	var found *Channel
	for key, c := range s.byKey {
		if constantTimeEqual(key, customKey) {
			found = c
		}
	}
	if found == nil {
		return nil, false, nil
	}
	return found, true, nil
}

func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		// Still perform a comparison of equal length to avoid leaking the
		// stored key's length distribution through early return timing.
		subtle.ConstantTimeCompare([]byte(a), []byte(a))
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Resolver resolves a custom key to a Channel, wrapping a Store with the
// not-found error the ingress layer maps to an unauthorized response.
type Resolver struct {
	store Store
}

// NewResolver builds a Resolver over the given Store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// ErrChannelNotFound is returned when no channel matches the custom key.
var ErrChannelNotFound = fmt.Errorf("channel: no channel for custom key")

// Resolve looks up the Channel for customKey.
func (r *Resolver) Resolve(ctx context.Context, customKey string) (*Channel, error) {
	c, ok, err := r.store.Lookup(ctx, customKey)
	if err != nil {
		return nil, fmt.Errorf("channel: lookup failed: %w", err)
	}
	if !ok {
		return nil, ErrChannelNotFound
	}
	return c, nil
}
