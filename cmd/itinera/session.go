package main

import (
	"github.com/aretw0/itinera/internal/cli"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage saved drafts",
	Long:  `List, inspect, and remove the session slots kept in the configured store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List saved sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPersistence(cmd, func(p *cli.Persistence) error {
			return cli.ListSessions(cmd.Context(), p, cmd.OutOrStdout())
		})
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Print the saved state of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPersistence(cmd, func(p *cli.Persistence) error {
			return cli.InspectSession(cmd.Context(), p, args[0], cmd.OutOrStdout())
		})
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPersistence(cmd, func(p *cli.Persistence) error {
			return cli.RemoveSessions(cmd.Context(), p, args, cmd.OutOrStdout())
		})
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd, sessionInspectCmd, sessionRmCmd)
}

func withPersistence(cmd *cobra.Command, fn func(*cli.Persistence) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	p, err := openPersistence(cmd, cfg)
	if err != nil {
		return err
	}
	defer p.Close()
	return fn(p)
}
