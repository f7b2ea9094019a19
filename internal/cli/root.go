// Package cli implements the convo command tree. Identity resolution,
// flag parsing and output formatting live here; the store does the rest.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hasna/convo/internal/config"
	"github.com/hasna/convo/internal/storage/sqlite"
)

type app struct {
	cfgPath string
	dbPath  string
	asJSON  bool

	cfg config.Config
	log zerolog.Logger
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "convo",
		Short:         "Local message exchange for agents",
		Long:          "convo is a local, file-backed message exchange for autonomous agents:\ndirect messages and broadcast channels with live tailing.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.cfgPath)
			if err != nil {
				return err
			}
			if a.dbPath != "" {
				cfg.DBPath = a.dbPath
			}
			a.cfg = cfg
			level := zerolog.WarnLevel
			if os.Getenv("CONVO_DEBUG") != "" {
				level = zerolog.DebugLevel
			}
			a.log = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
				Level(level).With().Timestamp().Logger()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default ~/.conversations/config.yaml)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "database file (overrides config)")
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "emit JSON output")

	root.AddCommand(
		a.sendCmd(),
		a.readCmd(),
		a.replyCmd(),
		a.sessionsCmd(),
		a.channelCmd(),
		a.watchCmd(),
		a.dashboardCmd(),
		a.mcpCmd(),
		a.initCmd(),
	)
	return root
}

// Execute runs the CLI and returns a process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// openStore opens the configured database behind the resilience wrapper.
func (a *app) openStore() (*sqlite.Resilient, error) {
	st, err := sqlite.New(a.cfg.DBPath, a.log)
	if err != nil {
		return nil, err
	}
	return sqlite.NewResilient(st), nil
}
