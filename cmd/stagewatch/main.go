// Command stagewatch is a terminal client for a team-dynamics analysis
// service.
//
// Usage:
//
//	stagewatch                      Interactive TUI
//	stagewatch team <team>          Team stage distribution
//	stagewatch member <team> <who>  Member stage distribution and emotions
//	stagewatch status <team> <who>  Team and member side by side
//	stagewatch analyze <team>       Analyze a chat log (file or stdin)
//	stagewatch reset <team>         Clear the team's server-side history
//	stagewatch history [team]       Results recorded in the local journal
//	stagewatch events               JSONL event log viewer
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/abelbrown/stagewatch/internal/api"
	"github.com/abelbrown/stagewatch/internal/config"
	"github.com/abelbrown/stagewatch/internal/logging"
	"github.com/abelbrown/stagewatch/internal/orchestrator"
	"github.com/abelbrown/stagewatch/internal/otel"
	"github.com/abelbrown/stagewatch/internal/store"
	"github.com/abelbrown/stagewatch/internal/ui"
)

// Global flags
var (
	configPath string
	serverURL  string
	teamFlag   string
	memberFlag string
)

var rootCmd = &cobra.Command{
	Use:   "stagewatch",
	Short: "Track a team's development stage from its conversation",
	Long: `stagewatch talks to a team-dynamics analysis service. Members chat
through it, or paste whole chat logs, and the service reports which
development stage (Forming, Storming, Norming, Performing, Adjourning)
the team is in and how each message moved the picture.

Without a subcommand it starts the interactive TUI.

Environment:
  STAGEWATCH_SERVER     Service base URL (overrides the config file)
  STAGEWATCH_LOG_LEVEL  debug, info, warn or error
  STAGEWATCH_TRACE      1 to log every UI message to the event log, or a
                        comma-separated list of message types (KeyMsg,ChatDone)`,
	SilenceUsage: true,
	RunE:         runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.stagewatch/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "service base URL")
	rootCmd.Flags().StringVar(&teamFlag, "team", "", "team to load on startup")
	rootCmd.Flags().StringVar(&memberFlag, "member", "", "member name to prefill")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the --server override.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if serverURL != "" {
		cfg.Server.BaseURL = serverURL
	}
	return cfg, nil
}

func newClient(cfg *config.Config) *api.Client {
	return api.NewClient(api.Options{
		BaseURL:           cfg.Server.BaseURL,
		Timeout:           cfg.Server.Timeout(),
		RequestsPerSecond: cfg.Server.RequestsPerSecond,
		Burst:             cfg.Server.Burst,
	})
}

// openJournal opens the results journal when enabled. Failures are logged
// and the app runs without one.
func openJournal(cfg *config.Config) *store.Store {
	if !cfg.Journal.Enabled {
		return nil
	}
	st, err := store.Open(cfg.JournalPath())
	if err != nil {
		logging.Warn("journal unavailable", "path", cfg.JournalPath(), "err", err)
		return nil
	}
	return st
}

func runTUI(cmd *cobra.Command, _ []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("stagewatch needs a terminal; use a subcommand for scripted use")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if dir, err := logging.Dir(); err == nil {
		if err := logging.Init(dir, cfg.Logging.Level); err != nil {
			fmt.Fprintf(os.Stderr, "warning: file logging disabled: %v\n", err)
		}
	}
	defer logging.Close()

	// Event log: ~/.stagewatch/events/events-YYYY-MM-DD.jsonl
	events := otel.NewNullLogger()
	if path, err := otel.DefaultPath(time.Now()); err == nil {
		if l, err := otel.OpenFile(path); err == nil {
			events = l
		} else {
			logging.Warn("event log unavailable", "path", path, "err", err)
		}
	}
	ring := otel.NewRingBuffer(otel.DefaultRingSize)
	events.SetRingBuffer(ring)
	defer events.Close()

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var journal orchestrator.Journal
	if st := openJournal(cfg); st != nil {
		defer st.Close()
		journal = st
	}

	client := newClient(cfg)
	orch := orchestrator.New(ctx, client, events, journal)

	events.Info(otel.KindStartup, "main", "server "+client.BaseURL())
	logging.Info("connecting", "server", client.BaseURL(), "journal", journal != nil)

	app := ui.NewApp(ui.AppConfig{
		Orchestrator:   orch,
		Events:         events,
		Ring:           ring,
		ServerURL:      client.BaseURL(),
		Team:           teamFlag,
		Member:         memberFlag,
		LastTopK:       cfg.UI.LastEmotionTopK,
		AccumTopK:      cfg.UI.AccumulatedEmotionTopK,
		AutoLoadOnBlur: cfg.UI.AutoLoadOnBlur,
	})

	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()

	// Abort whatever is still in flight before the deferred closes run.
	cancel()
	events.Info(otel.KindShutdown, "main", "")
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logging.Error("program exited", "err", err)
		return err
	}
	return nil
}
