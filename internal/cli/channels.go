package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hasna/convo/internal/core"
	"github.com/hasna/convo/internal/identity"
)

func (a *app) channelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "channel",
		Aliases: []string{"channels"},
		Short:   "Manage broadcast channels",
	}
	cmd.AddCommand(
		a.channelCreateCmd(),
		a.channelListCmd(),
		a.channelJoinCmd(),
		a.channelLeaveCmd(),
		a.channelMembersCmd(),
		a.channelReadCmd(),
	)
	return cmd
}

func (a *app) channelCreateCmd() *cobra.Command {
	var description, as string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a channel (creator is auto-joined)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			channel, err := st.CreateChannel(args[0], identity.Resolve(as), description)
			if err != nil {
				return err
			}
			if a.asJSON {
				return printJSON(cmd, channel)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created #%s\n", channel.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "channel description")
	cmd.Flags().StringVar(&as, "as", "", "acting agent id (default resolved from env)")
	return cmd
}

func (a *app) channelListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List channels with member and message counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			channels, err := st.ListChannels()
			if err != nil {
				return err
			}
			if a.asJSON {
				if channels == nil {
					channels = []core.ChannelInfo{}
				}
				return printJSON(cmd, channels)
			}
			if len(channels) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no channels")
				return nil
			}
			for _, c := range channels {
				fmt.Fprintf(cmd.OutOrStdout(), "#%-20s %d members, %d messages\n",
					c.Name, c.MemberCount, c.MessageCount)
			}
			return nil
		},
	}
}

func (a *app) channelJoinCmd() *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "join <name>",
		Short: "Join a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ok, err := st.JoinChannel(args[0], identity.Resolve(as))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("channel %q not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "joined #%s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&as, "as", "", "acting agent id (default resolved from env)")
	return cmd
}

func (a *app) channelLeaveCmd() *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "leave <name>",
		Short: "Leave a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			removed, err := st.LeaveChannel(args[0], identity.Resolve(as))
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "not a member of #%s\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "left #%s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&as, "as", "", "acting agent id (default resolved from env)")
	return cmd
}

func (a *app) channelMembersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "members <name>",
		Short: "List channel members by join time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			members, err := st.ChannelMembers(args[0])
			if err != nil {
				return err
			}
			if a.asJSON {
				if members == nil {
					members = []core.ChannelMember{}
				}
				return printJSON(cmd, members)
			}
			for _, m := range members {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (joined %s)\n",
					m.Agent, m.JoinedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func (a *app) channelReadCmd() *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "read <name>",
		Short: "Mark everyone else's channel messages read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			count, err := st.MarkChannelRead(args[0], identity.Resolve(as))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "marked %d read in #%s\n", count, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&as, "as", "", "acting agent id (default resolved from env)")
	return cmd
}
