package main

import (
	"time"

	"github.com/aretw0/itinera/internal/cli"
	"github.com/aretw0/itinera/internal/config"
	"github.com/spf13/cobra"
)

var serveFakeCmd = &cobra.Command{
	Use:   "serve-fake",
	Short: "Run a stand-in planner server for local testing",
	Long: `Serves the planner API with canned answers: validation, image search,
conversation history, PDF download and a websocket that streams a scripted itinerary.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		delay, _ := cmd.Flags().GetDuration("delay")
		debug, _ := cmd.Flags().GetBool("debug")

		logger, err := cli.NewLogger(config.LogConfig{Level: "info"}, debug)
		if err != nil {
			return err
		}
		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		return cli.ServeFake(sigCtx, cli.FakeOptions{
			Addr:   addr,
			Delay:  delay,
			Logger: logger,
			Output: cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(serveFakeCmd)
	serveFakeCmd.Flags().String("addr", "127.0.0.1:5000", "Address to listen on")
	serveFakeCmd.Flags().Duration("delay", 50*time.Millisecond, "Pause between streamed chunks")
}
