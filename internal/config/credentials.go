package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	// CredentialsFileName stores the Spotify client credentials below
	// the config directory.
	CredentialsFileName = "spotify_oauth.yaml"

	// TokenFileName caches the most recent access token.
	TokenFileName = "spotify_token.yaml"

	envClientID     = "SPOTIFY_CLIENT_ID"
	envClientSecret = "SPOTIFY_CLIENT_SECRET"
)

// ErrNoCredentials is returned when no Spotify credentials could be
// found in the environment or the config directory.
var ErrNoCredentials = errors.New("no Spotify credentials found")

// Credentials holds the Spotify client-credentials pair.
//
// An application registered at https://developer.spotify.com/dashboard
// provides both values.
type Credentials struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// LoadCredentials resolves Spotify credentials.
//
// Resolution order:
//  1. SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET environment variables
//     (a .env file loaded at startup counts)
//  2. spotify_oauth.yaml in the config directory
//
// Returns ErrNoCredentials when neither source is available.
func LoadCredentials(dir string) (*Credentials, error) {
	id, secret := os.Getenv(envClientID), os.Getenv(envClientSecret)
	if id != "" && secret != "" {
		return &Credentials{ClientID: id, ClientSecret: secret}, nil
	}

	path := filepath.Join(dir, CredentialsFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCredentials
		}
		return nil, err
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse %s: %w", CredentialsFileName, err)
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, ErrNoCredentials
	}

	return &creds, nil
}

// Save writes the credentials to spotify_oauth.yaml in dir with owner-only
// permissions.
func (c *Credentials) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, CredentialsFileName), data, 0600)
}

// CachedToken is the persisted access token from a previous run.
//
// Client-credentials tokens last an hour; caching one avoids a token
// request on every invocation.
type CachedToken struct {
	AccessToken string    `yaml:"access_token"`
	TokenType   string    `yaml:"token_type"`
	Expiry      time.Time `yaml:"expiry"`
}

// Valid reports whether the token can still be used. A short safety
// margin avoids using a token that expires mid-run of a request.
func (t *CachedToken) Valid() bool {
	return t.AccessToken != "" && time.Now().Add(30*time.Second).Before(t.Expiry)
}

// LoadToken reads the cached token from dir. A missing or unreadable
// cache returns nil without error; the caller requests a fresh token.
func LoadToken(dir string) *CachedToken {
	data, err := os.ReadFile(filepath.Join(dir, TokenFileName))
	if err != nil {
		return nil
	}

	var token CachedToken
	if err := yaml.Unmarshal(data, &token); err != nil {
		return nil
	}

	return &token
}

// Save writes the token cache to dir with owner-only permissions.
func (t *CachedToken) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(t)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, TokenFileName), data, 0600)
}
