package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var (
		limit  int
		action string
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent security events",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			events, err := st.ListSecurityEvents(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list events: %w", err)
			}

			if action != "" {
				filtered := events[:0]
				for _, ev := range events {
					if ev.Action == action {
						filtered = append(filtered, ev)
					}
				}
				events = filtered
			}

			if len(events) == 0 {
				fmt.Println("No security events found.")
				return nil
			}

			fmt.Printf("%-6s  %-30s  %-8s  %-18s  %s\n", "ID", "ACTION", "USER", "WHEN", "IP")
			fmt.Printf("%-6s  %-30s  %-8s  %-18s  %s\n", "--", "------", "----", "----", "--")
			for _, ev := range events {
				user := "-"
				if ev.UserID != 0 {
					user = fmt.Sprintf("%d", ev.UserID)
				}
				fmt.Printf("%-6d  %-30s  %-8s  %-18s  %s\n",
					ev.ID, ev.Action, user, humanize.Time(ev.CreatedAt), ev.IP)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of events to show")
	cmd.Flags().StringVar(&action, "action", "", "Only show events with this action")
	return cmd
}
