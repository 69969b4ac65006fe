// Package tui provides a Bubble Tea terminal user interface for sptfydl.
package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/Trevrosa/sptfydl/internal/audio"
	"github.com/Trevrosa/sptfydl/internal/config"
	"github.com/Trevrosa/sptfydl/internal/http"
	"github.com/Trevrosa/sptfydl/internal/model"
	"github.com/Trevrosa/sptfydl/internal/pipeline"
	"github.com/Trevrosa/sptfydl/internal/prompt"
	"github.com/Trevrosa/sptfydl/internal/spotify"
	"github.com/Trevrosa/sptfydl/internal/ytdlp"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	collectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateResolving
	StateRunning
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   pipeline.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	logs      []LogEntry
	err       error
	log       *zap.Logger

	// Run context
	ctx    context.Context
	cancel context.CancelFunc

	// Pipeline references, set once the URL resolved
	coord  *pipeline.Coordinator
	source pipeline.Source
	report *pipeline.Report

	// Progress events from the workers
	events chan pipeline.ProgressEvent

	// Collection info
	collection string

	// Pipeline progress
	resolved int64
	done     int64
	failed   int64
	total    int64

	// Options
	format   model.Format
	isrc     bool
	skipTags bool
	verbose  bool

	width  int
	height int
}

// NewModel creates a new TUI model. Settings come from the config file,
// falling back to defaults when it is missing or unreadable.
func NewModel(log *zap.Logger) Model {
	ti := textinput.New()
	ti.Placeholder = "https://open.spotify.com/album/..."
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	settings, err := config.Load(filepath.Join(config.Dir(), config.SettingsFileName))
	if err != nil {
		log.Warn("could not load settings, using defaults", zap.Error(err))
		settings = config.DefaultSettings()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		format:    model.FormatMP3,
		logs:      make([]LogEntry, 0),
		events:    make(chan pipeline.ProgressEvent, 64),
		ctx:       ctx,
		cancel:    cancel,
		log:       log,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg carries one pipeline progress event into the log pane.
	ProgressMsg struct {
		Event pipeline.ProgressEvent
	}

	// ResolveDoneMsg is sent when the Spotify URL finished resolving.
	ResolveDoneMsg struct {
		Name   string
		Total  int
		Coord  *pipeline.Coordinator
		Source pipeline.Source
		Err    error
	}

	// RunDoneMsg is sent when the pipeline finished.
	RunDoneMsg struct {
		Report *pipeline.Report
		Err    error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 20
		if m.progress.Width > 80 {
			m.progress.Width = 80
		}
		if m.progress.Width < 20 {
			m.progress.Width = 20
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateRunning || m.state == StateResolving {
				m.cancel()
				m.state = StateError
				m.err = fmt.Errorf("cancelled by user")
			}

		case "enter":
			if m.state == StateInput && m.textInput.Value() != "" {
				m.state = StateResolving
				return m, tea.Batch(m.startResolve(m.textInput.Value()), m.spinner.Tick)
			}

		// Option toggles use control keys so pasting a URL that
		// contains the plain letters cannot flip them.
		case "ctrl+f":
			if m.state == StateInput {
				m.format = nextFormat(m.format)
				return m, nil
			}

		case "ctrl+r":
			if m.state == StateInput {
				m.isrc = !m.isrc
				return m, nil
			}

		case "ctrl+t":
			if m.state == StateInput {
				m.skipTags = !m.skipTags
				return m, nil
			}

		case "ctrl+v":
			if m.state == StateInput {
				m.verbose = !m.verbose
				return m, nil
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				// Reset for a new run
				m.state = StateInput
				m.logs = nil
				m.collection = ""
				m.err = nil
				m.coord = nil
				m.report = nil
				m.resolved, m.done, m.failed, m.total = 0, 0, 0, 0
				m.events = make(chan pipeline.ProgressEvent, 64)
				m.ctx, m.cancel = context.WithCancel(context.Background())
				m.textInput.SetValue("")
				m.textInput.Focus()
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		// Filter verbose messages if not in verbose mode
		if msg.Event.Level == pipeline.LevelVerbose && !m.verbose {
			cmds = append(cmds, m.waitForEvent())
			break
		}
		m.logs = append(m.logs, LogEntry{
			Message: msg.Event.Message,
			Level:   msg.Event.Level,
		})
		// Keep only last 10 logs
		if len(m.logs) > 10 {
			m.logs = m.logs[len(m.logs)-10:]
		}
		cmds = append(cmds, m.waitForEvent())

	case ResolveDoneMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		} else {
			m.collection = msg.Name
			m.total = int64(msg.Total)
			m.coord = msg.Coord
			m.source = msg.Source
			m.state = StateRunning
			cmds = append(cmds, m.startRun(), m.tickProgress(), m.waitForEvent())
		}

	case RunDoneMsg:
		m.report = msg.Report
		if m.coord != nil {
			m.resolved, m.done, m.failed, m.total = m.coord.Progress()
		}
		if msg.Err != nil && m.ctx.Err() == nil {
			m.state = StateError
			m.err = msg.Err
		} else if m.ctx.Err() != nil {
			m.state = StateError
			m.err = fmt.Errorf("cancelled by user")
		} else {
			m.state = StateComplete
		}

	case TickMsg:
		if m.coord != nil && m.state == StateRunning {
			m.resolved, m.done, m.failed, m.total = m.coord.Progress()

			var percent float64
			if m.total > 0 {
				percent = float64(m.done+m.failed) / float64(m.total)
			}
			cmds = append(cmds, m.progress.SetPercent(percent), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text input
	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// waitForEvent blocks on the event channel and resurfaces the next
// progress event as a message.
func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return ProgressMsg{Event: e}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("♫ sptfydl"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download Spotify tracks through yt-dlp"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateResolving:
		b.WriteString(m.viewResolving())
	case StateRunning:
		b.WriteString(m.viewRunning())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter Spotify URL:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	isrcCheck := "[ ]"
	if m.isrc {
		isrcCheck = "[×]"
	}
	tagsCheck := "[ ]"
	if m.skipTags {
		tagsCheck = "[×]"
	}
	verboseCheck := "[ ]"
	if m.verbose {
		verboseCheck = "[×]"
	}

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  format: %s (ctrl+f)\n", m.format))
	b.WriteString(fmt.Sprintf("  %s Search by ISRC (ctrl+r)\n", isrcCheck))
	b.WriteString(fmt.Sprintf("  %s Skip metadata tags (ctrl+t)\n", tagsCheck))
	b.WriteString(fmt.Sprintf("  %s Verbose/debug output (ctrl+v)\n", verboseCheck))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Download path: %s", m.settings.DownloadsPath)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewResolving() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Resolving Spotify link..."))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewRunning() string {
	var b strings.Builder

	if m.collection != "" {
		b.WriteString(collectionStyle.Render(fmt.Sprintf("♪ %s", m.collection)))
		b.WriteString(dimStyle.Render(fmt.Sprintf("  (%d tracks)", m.total)))
		b.WriteString("\n\n")
	}

	// Progress bar
	var percent float64
	if m.total > 0 {
		percent = float64(m.done+m.failed) / float64(m.total)
	}
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Tracks: %d/%d | Failed: %d",
		m.done,
		m.total,
		m.failed,
	)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	box := boxStyle.Render(fmt.Sprintf(
		"✨ Download Complete!\n\n"+
			"%s\n"+
			"Downloaded: %d/%d\n"+
			"Failed: %d",
		m.collection,
		m.done,
		m.total,
		m.failed,
	))
	b.WriteString(box)

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("✗ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case pipeline.LevelError:
			style = errorStyle
			prefix = "✗"
		case pipeline.LevelWarning:
			style = warningStyle
			prefix = "!"
		case pipeline.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case pipeline.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • ctrl+f: format • ctrl+r: isrc • ctrl+t: skip tags • ctrl+v: verbose • esc: quit"
	case StateResolving, StateRunning:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new download • q: quit"
	}
	return ""
}

// startResolve authenticates, resolves the URL and builds the pipeline.
func (m *Model) startResolve(url string) tea.Cmd {
	return func() tea.Msg {
		dir, err := config.EnsureDir()
		if err != nil {
			return ResolveDoneMsg{Err: err}
		}

		// Credential prompts cannot run inside the alternate screen, so
		// the TUI requires credentials to exist already.
		creds, err := config.LoadCredentials(dir)
		if err != nil {
			if errors.Is(err, config.ErrNoCredentials) {
				err = fmt.Errorf("no Spotify credentials: run sptfydl once, or set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET")
			}
			return ResolveDoneMsg{Err: err}
		}

		if err := ytdlp.EnsureInstalled(m.ctx); err != nil {
			return ResolveDoneMsg{Err: err}
		}

		resolver, err := spotify.NewResolver(m.ctx, creds, dir, m.log)
		if err != nil {
			return ResolveDoneMsg{Err: err}
		}

		res, err := resolver.Resolve(m.ctx, url)
		if err != nil {
			return ResolveDoneMsg{Err: err}
		}

		client := ytdlp.NewClient(ytdlp.ClientConfig{
			Dir:    m.settings.DownloadsPath,
			Format: m.format,
			Names:  m.settings.ToNameConfig(),
		}, m.log)

		var tagger pipeline.Tagger
		if !m.skipTags {
			tagger = audio.NewTagger(audio.Config{
				EmbedCoverArt:   m.settings.EmbedCoverArt,
				CoverArtResize:  m.settings.CoverArtResize,
				CoverArtMaxSize: m.settings.CoverArtMaxSize,
			}, http.NewClient(), m.log)
		}

		events := m.events
		coord := pipeline.NewCoordinator(pipeline.Config{
			Searchers:       m.settings.Searchers,
			Downloaders:     m.settings.Downloaders,
			SearchRetries:   m.settings.SearchRetries,
			DownloadRetries: m.settings.DownloadRetries,
			SearchLimit:     m.settings.SearchLimit,
			SearchBackoff: pipeline.Backoff{
				Cooldown: m.settings.SearchRetryCooldown,
				Exponent: m.settings.SearchRetryExponent,
			},
			DownloadBackoff: pipeline.Backoff{
				Cooldown: m.settings.DownloadRetryCooldown,
				Exponent: m.settings.DownloadRetryExponent,
			},
			UseISRC: m.isrc,
			// Survey prompts would fight Bubble Tea for the terminal.
			NoInteraction: true,
		}, client, client, tagger, &prompt.Selector{}, func(e pipeline.ProgressEvent) {
			select {
			case events <- e:
			default:
			}
		}, m.log)

		return ResolveDoneMsg{
			Name:  res.Name,
			Total: res.Total,
			Coord: coord,
			Source: pipeline.Source{
				Name:   res.Name,
				Total:  res.Total,
				Tracks: res.Tracks,
				Err:    res.Err,
			},
		}
	}
}

// startRun runs the pipeline in the background.
func (m *Model) startRun() tea.Cmd {
	coord, source, events := m.coord, m.source, m.events
	ctx := m.ctx
	return func() tea.Msg {
		report, err := coord.Run(ctx, source)
		// All workers are done, no more events can arrive.
		close(events)
		return RunDoneMsg{Report: report, Err: err}
	}
}

func nextFormat(f model.Format) model.Format {
	switch f {
	case model.FormatMP3:
		return model.FormatFLAC
	case model.FormatFLAC:
		return model.FormatOriginal
	default:
		return model.FormatMP3
	}
}

// Run starts the TUI application.
func Run(log *zap.Logger) error {
	p := tea.NewProgram(NewModel(log), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
