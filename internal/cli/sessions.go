package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/blogd/internal/session"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage server sessions",
	}
	cmd.AddCommand(newSessionsCleanupCmd())
	return cmd
}

func newSessionsCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			mgr := session.NewManager(session.NewSQLStore(st))
			n, err := mgr.Cleanup(cmd.Context())
			if err != nil {
				return fmt.Errorf("cleanup sessions: %w", err)
			}

			fmt.Printf("Removed %d expired session(s)\n", n)
			return nil
		},
	}
}
