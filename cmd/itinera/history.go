package main

import (
	"fmt"
	"strconv"

	"github.com/aretw0/itinera/internal/cli"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the conversations stored on the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return cli.ListConversations(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

var showCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Print a stored conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid conversation id %q", args[0])
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		return cli.ShowConversation(cmd.Context(), cfg, id, asJSON, cmd.OutOrStdout())
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <file>",
	Short: "Download a generated itinerary PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
			cfg.DownloadDir = dir
		}
		path, err := cli.DownloadItinerary(cmd.Context(), cfg, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd, showCmd, downloadCmd)
	showCmd.Flags().Bool("json", false, "Print the raw JSON")
	downloadCmd.Flags().StringP("dir", "d", "", "Directory to save into (default from config)")
}
