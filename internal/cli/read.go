package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hasna/convo/internal/core"
	"github.com/hasna/convo/internal/identity"
	"github.com/hasna/convo/internal/storage"
)

func (a *app) readCmd() *cobra.Command {
	var (
		sessionID, from, to, channel string
		unreadOnly, markRead         bool
		limit                        int
	)

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read messages matching the given filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			msgs, err := st.Query(storage.MessageFilter{
				SessionID:  sessionID,
				From:       from,
				To:         to,
				Channel:    channel,
				UnreadOnly: unreadOnly,
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			if markRead {
				reader := identity.Resolve(to)
				ids := make([]int64, 0, len(msgs))
				for _, m := range msgs {
					if m.To == reader && !m.Read() {
						ids = append(ids, m.ID)
					}
				}
				if _, err := st.MarkRead(ids, reader); err != nil {
					return err
				}
			}

			if a.asJSON {
				if msgs == nil {
					msgs = []core.Message{}
				}
				return printJSON(cmd, msgs)
			}
			for _, m := range msgs {
				printMessage(cmd, m)
			}
			if len(msgs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no messages")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "filter by session id")
	cmd.Flags().StringVar(&from, "from", "", "filter by sender")
	cmd.Flags().StringVar(&to, "to", "", "filter by recipient")
	cmd.Flags().StringVar(&channel, "channel", "", "filter by channel")
	cmd.Flags().BoolVar(&unreadOnly, "unread", false, "only unread messages")
	cmd.Flags().BoolVar(&markRead, "mark-read", false, "mark returned messages read for the recipient")
	cmd.Flags().IntVar(&limit, "limit", 0, "max messages (0 = all)")
	return cmd
}

func printMessage(cmd *cobra.Command, m core.Message) {
	status := " "
	if !m.Read() {
		status = "*"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s #%d [%s] %s -> %s: %s\n",
		status, m.ID, m.CreatedAt.Local().Format("15:04:05"), m.From, m.To, m.Content)
}

func (a *app) replyCmd() *cobra.Command {
	var priority string

	cmd := &cobra.Command{
		Use:   "reply <message-id> [content...]",
		Short: "Reply to a message in its session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int64
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
				return fmt.Errorf("message id must be an integer: %q", args[0])
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			original, err := st.Get(id)
			if err != nil {
				return err
			}
			content := ""
			for i, word := range args[1:] {
				if i > 0 {
					content += " "
				}
				content += word
			}
			msg, err := st.Append(storage.AppendOptions{
				From:      identity.Resolve(""),
				To:        original.From,
				Content:   content,
				SessionID: original.SessionID,
				Channel:   original.Channel,
				Priority:  core.Priority(priority),
			})
			if err != nil {
				return err
			}
			if a.asJSON {
				return printJSON(cmd, msg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent #%d to %s (session %s)\n", msg.ID, msg.To, msg.SessionID)
			return nil
		},
	}

	cmd.Flags().StringVar(&priority, "priority", "", "low|normal|high|urgent")
	return cmd
}
