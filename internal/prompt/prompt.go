// Package prompt implements the interactive console prompts: candidate
// disambiguation during searches and first-run credential entry.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/Trevrosa/sptfydl/internal/config"
	"github.com/Trevrosa/sptfydl/internal/model"
)

// ErrInterrupted is returned when the user aborts a prompt with Ctrl+C.
var ErrInterrupted = errors.New("prompt interrupted")

// Selector asks the user to pick one search candidate from a ranked
// list. The first (highest scoring) option is the default.
type Selector struct {
	// PageSize caps the number of options shown at once.
	PageSize int
}

// Select presents the candidates for a track and returns the index of
// the chosen one.
func (s *Selector) Select(ctx context.Context, track model.TrackDescriptor, candidates []model.SearchCandidate) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	options := make([]string, len(candidates))
	for i, cand := range candidates {
		options[i] = formatCandidate(cand)
	}

	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}

	q := &survey.Select{
		Message:  fmt.Sprintf("Choose link to download for %s:", track.Query()),
		Options:  options,
		PageSize: pageSize,
	}

	choice := 0
	if err := survey.AskOne(q, &choice); err != nil {
		return 0, mapErr(err)
	}

	return choice, nil
}

// AskCredentials prompts for the Spotify application credentials on
// first run.
func AskCredentials() (config.Credentials, error) {
	var creds config.Credentials

	id := &survey.Input{Message: "spotify client_id?"}
	if err := survey.AskOne(id, &creds.ClientID, survey.WithValidator(survey.Required)); err != nil {
		return config.Credentials{}, mapErr(err)
	}

	secret := &survey.Password{Message: "spotify client_secret?"}
	if err := survey.AskOne(secret, &creds.ClientSecret, survey.WithValidator(survey.Required)); err != nil {
		return config.Credentials{}, mapErr(err)
	}

	return creds, nil
}

func mapErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrInterrupted
	}
	return err
}

// formatCandidate renders one selectable option line.
func formatCandidate(cand model.SearchCandidate) string {
	line := fmt.Sprintf("%s [%s]", cand.Title, formatDuration(cand.Duration))
	if cand.Uploader != "" {
		line += " by " + cand.Uploader
	}
	return fmt.Sprintf("%s (score %d)", line, cand.Score)
}

// formatDuration renders a duration as m:ss.
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "?:??"
	}
	total := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
