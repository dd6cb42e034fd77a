package sdk

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// tokenFreshWindow is how long tokens are trusted without a probe.
	// E*TRADE access tokens nominally last two hours of inactivity.
	tokenFreshWindow = 2 * time.Hour
	// tokenMaxAge is the hard cutoff after which cached tokens are discarded.
	tokenMaxAge = 12 * time.Hour
)

// CachedTokens is the JSON payload persisted between runs. Consumer key and
// environment are stored so a cache written for one set of credentials is
// never replayed against another.
type CachedTokens struct {
	ConsumerKey  string    `json:"consumer_key"`
	Sandbox      bool      `json:"sandbox"`
	AccessToken  string    `json:"access_token"`
	AccessSecret string    `json:"access_token_secret"`
	ObtainedAt   time.Time `json:"obtained_at"`
}

// Fresh reports whether the tokens are young enough to use without a
// validation probe against the API.
func (t *CachedTokens) Fresh() bool {
	return time.Since(t.ObtainedAt) < tokenFreshWindow
}

// TokenStore persists OAuth access tokens across restarts.
type TokenStore struct {
	path string
}

// NewTokenStore creates a token store backed by the given file path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Path returns the file the store reads and writes.
func (s *TokenStore) Path() string {
	return s.path
}

// Save writes the tokens with owner-only permissions.
func (s *TokenStore) Save(t CachedTokens) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tokens: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create token cache directory: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token cache: %w", err)
	}
	return nil
}

// Load reads cached tokens. It returns nil without error when no usable
// cache exists: missing file, credentials or environment mismatch, or
// tokens past the hard age cutoff.
func (s *TokenStore) Load(consumerKey string, sandbox bool) (*CachedTokens, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token cache: %w", err)
	}

	var t CachedTokens
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse token cache: %w", err)
	}

	if t.ConsumerKey != consumerKey || t.Sandbox != sandbox {
		return nil, nil
	}
	if t.AccessToken == "" || t.AccessSecret == "" {
		return nil, nil
	}
	if time.Since(t.ObtainedAt) > tokenMaxAge {
		return nil, nil
	}

	return &t, nil
}

// Clear removes the cache file. Missing files are not an error.
func (s *TokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token cache: %w", err)
	}
	return nil
}
