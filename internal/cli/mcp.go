package cli

import (
	"github.com/spf13/cobra"

	"github.com/hasna/convo/internal/mcp"
)

func (a *app) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the exchange as MCP tools over stdio",
		Long:  "Runs a Model Context Protocol server on stdin/stdout so agent\nharnesses can send and read messages as tool calls. The calling\nagent's identity comes from CONVERSATIONS_AGENT_ID.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			return mcp.Serve(st)
		},
	}
}
