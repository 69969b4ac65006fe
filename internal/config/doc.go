// Package config provides configuration management for sptfydl.
//
// This package handles:
//   - Resolving the per-user configuration directory
//   - Loading and saving settings from JSON files
//   - Loading and saving Spotify credentials and the token cache
//   - Default configuration values
//
// # Configuration Directory
//
// All files live in one directory, resolved via $XDG_CONFIG_HOME with a
// fallback to ~/.config:
//
//	dir := config.Dir() // e.g. "/home/user/.config/sptfydl"
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// 3 searchers, 5 downloaders
//	// "{artist} - {title}" file names
//	// cover art embedded and resized to 1000px
//
// # Loading from File
//
//	settings, err := config.Load(filepath.Join(dir, config.SettingsFileName))
//	// Uses defaults if the file doesn't exist
//
// # Spotify Credentials
//
// Credentials come from the environment (SPOTIFY_CLIENT_ID and
// SPOTIFY_CLIENT_SECRET, optionally via a .env file) or from
// spotify_oauth.yaml in the config directory:
//
//	creds, err := config.LoadCredentials(dir)
//	if errors.Is(err, config.ErrNoCredentials) {
//	    // prompt the user
//	}
//
// Access tokens are cached in spotify_token.yaml between runs and
// refreshed when expired.
package config
