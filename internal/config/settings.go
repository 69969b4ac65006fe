package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/Trevrosa/sptfydl/internal/model"
)

// SettingsFileName is the settings file name below the config directory.
const SettingsFileName = "settings.json"

// Settings holds all persistent configuration options.
//
// Values here are defaults; the corresponding command line flags take
// precedence when given.
type Settings struct {
	// Worker pools
	Searchers   int `json:"searchers"`
	Downloaders int `json:"downloaders"`

	// Retry behavior
	SearchRetries         int     `json:"search_retries"`
	SearchRetryCooldown   float64 `json:"search_retry_cooldown"`
	SearchRetryExponent   float64 `json:"search_retry_exponent"`
	DownloadRetries       int     `json:"download_retries"`
	DownloadRetryCooldown float64 `json:"download_retry_cooldown"`
	DownloadRetryExponent float64 `json:"download_retry_exponent"`

	// Search settings
	SearchLimit int `json:"search_limit"`

	// Output location, overridden by the -P flag
	DownloadsPath string `json:"downloads_path"`

	// File naming
	FileNameFormat string `json:"file_name_format"`

	// Cover art settings
	EmbedCoverArt   bool `json:"embed_cover_art"`
	CoverArtResize  bool `json:"cover_art_resize"`
	CoverArtMaxSize int  `json:"cover_art_max_size"`

	// Playlist settings
	CreatePlaylist bool   `json:"create_playlist"`
	PlaylistFormat string `json:"playlist_format"` // m3u, pls, wpl, zpl
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		Searchers:   3,
		Downloaders: 5,

		SearchRetries:         3,
		SearchRetryCooldown:   3.0,
		SearchRetryExponent:   2.0,
		DownloadRetries:       5,
		DownloadRetryCooldown: 1.0,
		DownloadRetryExponent: 2.0,

		SearchLimit: 5,

		DownloadsPath: ".",

		FileNameFormat: "{artist} - {title}",

		EmbedCoverArt:   true,
		CoverArtResize:  true,
		CoverArtMaxSize: 1000,

		CreatePlaylist: false,
		PlaylistFormat: "m3u",
	}
}

// Load reads settings from a JSON file.
//
// A missing file is not an error; defaults are returned so a fresh
// install works without any configuration.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ToNameConfig converts settings to the model naming configuration.
func (s *Settings) ToNameConfig() *model.NameConfig {
	return &model.NameConfig{
		FileNameFormat: s.FileNameFormat,
	}
}
