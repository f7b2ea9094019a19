package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hasna/convo/internal/core"
)

func (a *app) sessionsCmd() *cobra.Command {
	var agent string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List conversation sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			sessions, err := st.ListSessions(agent)
			if err != nil {
				return err
			}
			if a.asJSON {
				if sessions == nil {
					sessions = []core.Session{}
				}
				return printJSON(cmd, sessions)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
				return nil
			}
			for _, s := range sessions {
				unread := ""
				if s.UnreadCount > 0 {
					unread = fmt.Sprintf(" (%d unread)", s.UnreadCount)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %d messages%s\n",
					s.SessionID, strings.Join(s.Participants, ", "), s.MessageCount, unread)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&agent, "agent", "", "only sessions involving this agent")
	return cmd
}
