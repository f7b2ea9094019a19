package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hasna/convo/internal/core"
	"github.com/hasna/convo/internal/identity"
	"github.com/hasna/convo/internal/poll"
)

func (a *app) watchCmd() *cobra.Command {
	var sessionID, to, channel string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live-tail new messages (only messages sent after start)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sessionID == "" && channel == "" {
				// Default to tailing the acting agent's inbox.
				agent, err := identity.Require(to)
				if err != nil {
					return err
				}
				to = agent
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			sub, err := poll.Subscribe(st, poll.Options{
				SessionID: sessionID,
				To:        to,
				Channel:   channel,
				Interval:  a.cfg.PollInterval(),
				OnMessages: func(msgs []core.Message) {
					for _, m := range msgs {
						if a.asJSON {
							_ = printJSON(cmd, m)
						} else {
							printMessage(cmd, m)
						}
					}
				},
			}, a.log)
			if err != nil {
				return err
			}
			defer sub.Stop()

			if !a.asJSON {
				fmt.Fprintln(cmd.ErrOrStderr(), "watching... (ctrl-c to stop)")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "tail one session")
	cmd.Flags().StringVar(&to, "to", "", "tail messages addressed to this agent")
	cmd.Flags().StringVar(&channel, "channel", "", "tail one channel")
	return cmd
}
