package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Trevrosa/sptfydl/internal/audio"
	"github.com/Trevrosa/sptfydl/internal/config"
	"github.com/Trevrosa/sptfydl/internal/http"
	ioutils "github.com/Trevrosa/sptfydl/internal/io"
	"github.com/Trevrosa/sptfydl/internal/logging"
	"github.com/Trevrosa/sptfydl/internal/model"
	"github.com/Trevrosa/sptfydl/internal/pipeline"
	"github.com/Trevrosa/sptfydl/internal/prompt"
	"github.com/Trevrosa/sptfydl/internal/spotify"
	"github.com/Trevrosa/sptfydl/internal/ytdlp"
)

const version = "0.3.0"

// Exit codes
const (
	exitOK          = 0
	exitFatal       = 1
	exitPartial     = 2
	exitInterrupted = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		showHelp        = pflag.BoolP("help", "h", false, "Show this help message")
		showVersion     = pflag.BoolP("version", "V", false, "Print the version and exit")
		formatFlag      = pflag.StringP("format", "f", "mp3", "Audio output format: mp3, flac or original")
		pathFlag        = pflag.StringP("path", "P", ".", "Directory to download into")
		downloaders     = pflag.IntP("downloaders", "d", 5, "How many tracks to download in parallel")
		searchers       = pflag.IntP("searchers", "s", 3, "How many tracks to search for in parallel")
		useISRC         = pflag.Bool("isrc", false, "Search by ISRC before the artist and title query")
		noMetadata      = pflag.Bool("no-metadata", false, "Skip writing metadata tags")
		noInteraction   = pflag.BoolP("no-interaction", "n", false, "Never prompt; pick the best match automatically")
		downloadRetries = pflag.Int("download-retries", 5, "Download attempts per track")
		searchRetries   = pflag.Int("search-retries", 3, "Search attempts per track")
		showYtdlp       = pflag.Bool("show-ytdlp", false, "Print yt-dlp output")
		verbosity       = pflag.CountP("verbose", "v", "Increase log verbosity, repeatable")
	)

	pflag.Usage = usage
	pflag.Parse()

	if *showHelp {
		usage()
		return exitOK
	}
	if *showVersion {
		fmt.Println("sptfydl", version)
		return exitOK
	}

	// Arguments after -- go to yt-dlp untouched.
	args := pflag.Args()
	var extraArgs []string
	if at := pflag.CommandLine.ArgsLenAtDash(); at >= 0 {
		extraArgs = args[at:]
		args = args[:at]
	}
	if len(args) != 1 {
		usage()
		return exitFatal
	}
	url := args[0]

	format, err := model.ParseFormat(*formatFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitFatal
	}

	// A .env file can carry the Spotify credentials.
	_ = godotenv.Load()

	dir, err := config.EnsureDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not create config directory: %v\n", err)
		return exitFatal
	}

	log := logging.New(logging.Options{
		Verbosity: *verbosity,
		FilePath:  filepath.Join(dir, "sptfydl.log"),
		Console:   true,
	})
	defer log.Sync()

	settings, err := config.Load(filepath.Join(dir, config.SettingsFileName))
	if err != nil {
		log.Warn("could not load settings, using defaults", zap.Error(err))
		settings = config.DefaultSettings()
	}

	// Flags outrank the settings file, but only when actually given.
	flags := pflag.CommandLine
	if flags.Changed("path") || settings.DownloadsPath == "" {
		settings.DownloadsPath = *pathFlag
	}
	if flags.Changed("downloaders") {
		settings.Downloaders = *downloaders
	}
	if flags.Changed("searchers") {
		settings.Searchers = *searchers
	}
	if flags.Changed("download-retries") {
		settings.DownloadRetries = *downloadRetries
	}
	if flags.Changed("search-retries") {
		settings.SearchRetries = *searchRetries
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var interrupted atomic.Bool
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		interrupted.Store(true)
		fmt.Fprintln(os.Stderr, "\nInterrupted, cancelling...")
		cancel()
	}()

	creds, err := loadCredentials(dir, *noInteraction, log)
	if err != nil {
		if errors.Is(err, prompt.ErrInterrupted) {
			return exitInterrupted
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFatal
	}

	if err := ytdlp.EnsureInstalled(ctx); err != nil {
		if interrupted.Load() {
			return exitInterrupted
		}
		fmt.Fprintf(os.Stderr, "Error: yt-dlp is not available: %v\n", err)
		return exitFatal
	}

	resolver, err := spotify.NewResolver(ctx, creds, dir, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFatal
	}

	res, err := resolver.Resolve(ctx, url)
	if err != nil {
		if interrupted.Load() {
			return exitInterrupted
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFatal
	}

	fmt.Printf("♫ %s (%d tracks)\n\n", res.Name, res.Total)

	client := ytdlp.NewClient(ytdlp.ClientConfig{
		Dir:        settings.DownloadsPath,
		Format:     format,
		Names:      settings.ToNameConfig(),
		ExtraArgs:  extraArgs,
		ShowOutput: *showYtdlp,
	}, log)

	var tagger pipeline.Tagger
	if !*noMetadata {
		tagger = audio.NewTagger(audio.Config{
			EmbedCoverArt:   settings.EmbedCoverArt,
			CoverArtResize:  settings.CoverArtResize,
			CoverArtMaxSize: settings.CoverArtMaxSize,
		}, http.NewClient(), log)
	}

	onProgress := func(event pipeline.ProgressEvent) {
		if event.Level == pipeline.LevelVerbose && *verbosity == 0 {
			return
		}
		prefix := "  "
		switch event.Level {
		case pipeline.LevelError:
			prefix = "✗ "
		case pipeline.LevelWarning:
			prefix = "! "
		case pipeline.LevelSuccess:
			prefix = "✓ "
		case pipeline.LevelInfo:
			prefix = "› "
		}
		fmt.Println(prefix + event.Message)
	}

	coord := pipeline.NewCoordinator(pipeline.Config{
		Searchers:       settings.Searchers,
		Downloaders:     settings.Downloaders,
		SearchRetries:   settings.SearchRetries,
		DownloadRetries: settings.DownloadRetries,
		SearchLimit:     settings.SearchLimit,
		SearchBackoff: pipeline.Backoff{
			Cooldown: settings.SearchRetryCooldown,
			Exponent: settings.SearchRetryExponent,
		},
		DownloadBackoff: pipeline.Backoff{
			Cooldown: settings.DownloadRetryCooldown,
			Exponent: settings.DownloadRetryExponent,
		},
		UseISRC:       *useISRC,
		NoInteraction: *noInteraction,
	}, client, client, tagger, &prompt.Selector{}, onProgress, log)

	report, runErr := coord.Run(ctx, pipeline.Source{
		Name:   res.Name,
		Total:  res.Total,
		Tracks: res.Tracks,
		Err:    res.Err,
	})

	if report.Len() > 0 {
		fmt.Println()
		report.Render(os.Stdout)
		fmt.Println(report.Summary())

		// The failure list and playlist still get written on an aborted
		// run; they cover whatever the run managed to do.
		if path, err := report.WriteFailed(context.Background(), settings.DownloadsPath); err != nil {
			log.Warn("could not write failed tracks file", zap.Error(err))
		} else if path != "" {
			fmt.Println("Failed tracks written to", path)
		}

		if settings.CreatePlaylist && res.Kind != spotify.KindTrack {
			writePlaylist(settings, res.Name, report, log)
		}
	}

	if runErr != nil {
		if interrupted.Load() || errors.Is(runErr, prompt.ErrInterrupted) {
			return exitInterrupted
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		return exitFatal
	}
	if interrupted.Load() {
		return exitInterrupted
	}
	if !report.AllSucceeded() {
		return exitPartial
	}
	return exitOK
}

// loadCredentials resolves the Spotify credentials, asking interactively
// when none are stored and interaction is allowed.
func loadCredentials(dir string, noInteraction bool, log *zap.Logger) (*config.Credentials, error) {
	creds, err := config.LoadCredentials(dir)
	if err == nil {
		return creds, nil
	}
	if !errors.Is(err, config.ErrNoCredentials) {
		return nil, err
	}
	if noInteraction {
		return nil, fmt.Errorf("no Spotify credentials: set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET or create %s", filepath.Join(dir, config.CredentialsFileName))
	}

	fmt.Println("Spotify credentials are required once; create an app at https://developer.spotify.com/dashboard")
	asked, err := prompt.AskCredentials()
	if err != nil {
		return nil, err
	}
	if err := asked.Save(dir); err != nil {
		log.Warn("could not save credentials", zap.Error(err))
	}
	return &asked, nil
}

// writePlaylist writes a playlist of the downloaded tracks next to them.
func writePlaylist(settings *config.Settings, name string, report *pipeline.Report, log *zap.Logger) {
	var entries []audio.PlaylistEntry
	for _, o := range report.Outcomes() {
		if o.Downloaded() {
			entries = append(entries, audio.PlaylistEntry{
				Path:  filepath.Base(o.Path),
				Track: o.Track,
			})
		}
	}
	if len(entries) == 0 {
		return
	}

	format := audio.ParsePlaylistFormat(settings.PlaylistFormat)
	creator := audio.NewPlaylistCreator(format, true)
	content := creator.CreatePlaylist(name, entries)

	path := filepath.Join(settings.DownloadsPath, ioutils.SanitizeFileName(name)+format.Extension())
	if err := ioutils.WriteFile(context.Background(), path, []byte(content)); err != nil {
		log.Warn("could not write playlist", zap.Error(err))
		return
	}
	fmt.Println("Playlist written to", path)
}

func usage() {
	fmt.Fprintf(os.Stderr, `sptfydl %s - download Spotify tracks, albums and playlists through yt-dlp

Usage:
  sptfydl [flags] <URL> [-- YTDLP_ARGS...]

The URL may point at a Spotify track, album or playlist. Arguments after
-- are handed to yt-dlp untouched.

Flags:
%s`, version, pflag.CommandLine.FlagUsages())
}
