package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/me/blogd/internal/logging"
	"github.com/me/blogd/internal/store"
)

var (
	flagDB        string
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
)

// defaultDB returns the default database path, checking BLOGD_DB env var first.
func defaultDB() string {
	if p := os.Getenv("BLOGD_DB"); p != "" {
		return p
	}
	return "blogd.db"
}

// NewRootCmd creates the root cobra command for the blogctl CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "blogctl",
		Short: "blogctl — admin tool for the blogd server",
		Long:  "blogctl manages users, sessions, and the security event log of a blogd instance by operating directly on its database.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagDB, "db", defaultDB(), "Path to the blogd database (or BLOGD_DB env)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newCreateAdminCmd(),
		newSessionsCmd(),
		newEventsCmd(),
	)

	return root
}

// openStore opens the configured database and runs migrations, so blogctl
// works against a fresh file as well as a live one.
func openStore(cmd *cobra.Command) (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(flagDB, store.DefaultPoolConfig(), logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(cmd.Context()); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}
