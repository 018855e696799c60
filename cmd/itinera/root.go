package main

import (
	"fmt"
	"os"

	"github.com/aretw0/itinera/internal/cli"
	"github.com/aretw0/itinera/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "itinera",
	Short: "Itinera is a terminal client for the AI travel planner",
	Long: `Itinera walks you through a short travel questionnaire, streams the
generated itinerary from the planner server and keeps your draft between runs.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the YAML config (default $"+config.EnvConfig+" or "+config.DefaultPath+")")
	rootCmd.PersistentFlags().String("server", "", "Planner server URL (overrides the config)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log debug output to stderr")
}

// loadConfig reads the config file and applies the persistent flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if server, _ := cmd.Flags().GetString("server"); server != "" {
		cfg.Server = server
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// openPersistence opens the configured session store; the caller closes it.
func openPersistence(cmd *cobra.Command, cfg *config.Config) (*cli.Persistence, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	logger, err := cli.NewLogger(cfg.Log, debug)
	if err != nil {
		return nil, err
	}
	return cli.OpenPersistence(cfg.Session, logger)
}
