package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hasna/convo/internal/core"
	"github.com/hasna/convo/internal/identity"
	"github.com/hasna/convo/internal/metrics"
	"github.com/hasna/convo/internal/storage"
)

func (a *app) sendCmd() *cobra.Command {
	var (
		from, to, channel, sessionID, priority string
		workingDir, repository, branch         string
		metadataJSON                           string
	)

	cmd := &cobra.Command{
		Use:   "send [content...]",
		Short: "Send a direct or channel message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == "" && channel == "" {
				return fmt.Errorf("--to or --channel required")
			}
			var metadata map[string]any
			if metadataJSON != "" {
				if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
					return fmt.Errorf("parse --metadata: %w", err)
				}
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			msg, err := st.Append(storage.AppendOptions{
				From:       identity.Resolve(from),
				To:         to,
				Content:    strings.Join(args, " "),
				SessionID:  sessionID,
				Channel:    channel,
				Priority:   core.Priority(priority),
				WorkingDir: workingDir,
				Repository: repository,
				Branch:     branch,
				Metadata:   metadata,
			})
			if err != nil {
				return err
			}
			kind := "direct"
			if msg.Channel != "" {
				kind = "channel"
			}
			metrics.MessagesSent.WithLabelValues(kind).Inc()

			if a.asJSON {
				return printJSON(cmd, msg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent #%d to %s (session %s)\n", msg.ID, msg.To, msg.SessionID)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "sender agent id (default resolved from env)")
	cmd.Flags().StringVar(&to, "to", "", "recipient agent id")
	cmd.Flags().StringVar(&channel, "channel", "", "send to a channel instead of an agent")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id (derived when omitted)")
	cmd.Flags().StringVar(&priority, "priority", "", "low|normal|high|urgent")
	cmd.Flags().StringVar(&workingDir, "working-dir", "", "working directory context")
	cmd.Flags().StringVar(&repository, "repository", "", "repository context")
	cmd.Flags().StringVar(&branch, "branch", "", "branch context")
	cmd.Flags().StringVar(&metadataJSON, "metadata", "", "JSON metadata object")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
