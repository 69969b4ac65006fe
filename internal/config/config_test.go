package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	settings, err := Load(filepath.Join(t.TempDir(), "nope", SettingsFileName))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	defaults := DefaultSettings()
	if settings.Searchers != defaults.Searchers {
		t.Errorf("Searchers = %d, want %d", settings.Searchers, defaults.Searchers)
	}
	if settings.Downloaders != defaults.Downloaders {
		t.Errorf("Downloaders = %d, want %d", settings.Downloaders, defaults.Downloaders)
	}
	if settings.FileNameFormat != "{artist} - {title}" {
		t.Errorf("FileNameFormat = %q, want %q", settings.FileNameFormat, "{artist} - {title}")
	}
}

func TestSettings_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", SettingsFileName)

	settings := DefaultSettings()
	settings.Downloaders = 8
	settings.SearchLimit = 10
	if err := settings.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Downloaders != 8 {
		t.Errorf("Downloaders = %d, want 8", loaded.Downloaders)
	}
	if loaded.SearchLimit != 10 {
		t.Errorf("SearchLimit = %d, want 10", loaded.SearchLimit)
	}
	// Untouched fields keep their defaults
	if loaded.Searchers != 3 {
		t.Errorf("Searchers = %d, want 3", loaded.Searchers)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), SettingsFileName)
	if err := os.WriteFile(path, []byte(`{"downloaders": 2}`), 0644); err != nil {
		t.Fatal(err)
	}

	settings, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if settings.Downloaders != 2 {
		t.Errorf("Downloaders = %d, want 2", settings.Downloaders)
	}
	if settings.SearchRetries != 3 {
		t.Errorf("SearchRetries = %d, want 3", settings.SearchRetries)
	}
}

func TestLoadCredentials_Environment(t *testing.T) {
	t.Setenv(envClientID, "id-from-env")
	t.Setenv(envClientSecret, "secret-from-env")

	creds, err := LoadCredentials(t.TempDir())
	if err != nil {
		t.Fatalf("LoadCredentials() error = %v", err)
	}
	if creds.ClientID != "id-from-env" {
		t.Errorf("ClientID = %q, want %q", creds.ClientID, "id-from-env")
	}
	if creds.ClientSecret != "secret-from-env" {
		t.Errorf("ClientSecret = %q, want %q", creds.ClientSecret, "secret-from-env")
	}
}

func TestLoadCredentials_File(t *testing.T) {
	t.Setenv(envClientID, "")
	t.Setenv(envClientSecret, "")
	dir := t.TempDir()

	saved := &Credentials{ClientID: "file-id", ClientSecret: "file-secret"}
	if err := saved.Save(dir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	creds, err := LoadCredentials(dir)
	if err != nil {
		t.Fatalf("LoadCredentials() error = %v", err)
	}
	if creds.ClientID != "file-id" || creds.ClientSecret != "file-secret" {
		t.Errorf("LoadCredentials() = %+v, want the saved pair", creds)
	}
}

func TestLoadCredentials_Missing(t *testing.T) {
	t.Setenv(envClientID, "")
	t.Setenv(envClientSecret, "")

	_, err := LoadCredentials(t.TempDir())
	if !errors.Is(err, ErrNoCredentials) {
		t.Errorf("LoadCredentials() error = %v, want ErrNoCredentials", err)
	}
}

func TestCachedToken_Valid(t *testing.T) {
	tests := []struct {
		name  string
		token CachedToken
		want  bool
	}{
		{"fresh", CachedToken{AccessToken: "tok", Expiry: time.Now().Add(time.Hour)}, true},
		{"expired", CachedToken{AccessToken: "tok", Expiry: time.Now().Add(-time.Hour)}, false},
		{"about to expire", CachedToken{AccessToken: "tok", Expiry: time.Now().Add(5 * time.Second)}, false},
		{"empty", CachedToken{Expiry: time.Now().Add(time.Hour)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCachedToken_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)

	token := &CachedToken{AccessToken: "tok", TokenType: "Bearer", Expiry: expiry}
	if err := token.Save(dir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded := LoadToken(dir)
	if loaded == nil {
		t.Fatal("LoadToken() = nil, want token")
	}
	if loaded.AccessToken != "tok" || loaded.TokenType != "Bearer" {
		t.Errorf("LoadToken() = %+v, want the saved token", loaded)
	}
	if !loaded.Expiry.Equal(expiry) {
		t.Errorf("Expiry = %v, want %v", loaded.Expiry, expiry)
	}
}

func TestLoadToken_MissingReturnsNil(t *testing.T) {
	if token := LoadToken(t.TempDir()); token != nil {
		t.Errorf("LoadToken() = %+v, want nil", token)
	}
}
