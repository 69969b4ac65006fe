package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/Trevrosa/sptfydl/internal/config"
	"github.com/Trevrosa/sptfydl/internal/logging"
	"github.com/Trevrosa/sptfydl/internal/tui"
)

const version = "0.3.0"

func main() {
	showVersion := pflag.BoolP("version", "V", false, "Print the version and exit")
	verbosity := pflag.CountP("verbose", "v", "Increase log verbosity, repeatable")
	pflag.Parse()

	if *showVersion {
		fmt.Println("sptfydl-tui", version)
		return
	}

	_ = godotenv.Load()

	// No console core: log lines would corrupt the alternate screen.
	// The debug file below the config directory keeps recording.
	log := logging.New(logging.Options{
		Verbosity: *verbosity,
		FilePath:  filepath.Join(config.Dir(), "sptfydl.log"),
		Console:   false,
	})
	defer log.Sync()

	if err := tui.Run(log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
