package cli

import (
	"github.com/spf13/cobra"

	"github.com/hasna/convo/internal/identity"
	"github.com/hasna/convo/internal/tui"
)

// runTUI opens the interactive viewer. Invoked when convo runs with no
// subcommand.
func (a *app) runTUI(cmd *cobra.Command) error {
	agent := identity.Resolve(a.cfg.Agent)
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	return tui.Run(st, agent)
}
