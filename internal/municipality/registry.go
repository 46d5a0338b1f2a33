// Package municipality holds the set of municipalities that accept bookings.
package municipality

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Registry is the set of known municipalities plus a blacklist.
type Registry struct {
	mu        sync.RWMutex
	names     map[string]struct{}
	blacklist map[string]struct{}
}

// NewRegistry creates a registry from static names. Blank names are ignored.
func NewRegistry(names, blacklist []string) *Registry {
	r := &Registry{
		names:     make(map[string]struct{}, len(names)),
		blacklist: make(map[string]struct{}, len(blacklist)),
	}
	r.Merge(names)
	for _, n := range blacklist {
		if n = strings.TrimSpace(n); n != "" {
			r.blacklist[n] = struct{}{}
		}
	}
	return r
}

// Merge adds names to the registry.
func (r *Registry) Merge(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			r.names[n] = struct{}{}
		}
	}
}

// IsValid reports whether name is known.
func (r *Registry) IsValid(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.names[name]
	return ok
}

// IsBlacklisted reports whether bookings for name are refused.
func (r *Registry) IsBlacklisted(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.blacklist[name]
	return ok
}

// List returns the known names sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.names))
	for n := range r.names {
		out = append(out, n)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Fetch downloads a JSON array of municipality names from url.
func Fetch(ctx context.Context, client *http.Client, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build municipality request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch municipalities: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch municipalities: unexpected status %d", resp.StatusCode)
	}

	var names []string
	if err := json.NewDecoder(resp.Body).Decode(&names); err != nil {
		return nil, fmt.Errorf("failed to decode municipalities: %w", err)
	}
	return names, nil
}
