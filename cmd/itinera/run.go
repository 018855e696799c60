package main

import (
	"github.com/aretw0/itinera/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start an interactive trip planning conversation",
	Long: `Connects to the planner server and starts the questionnaire, or resumes
the saved draft of the session. Type /help inside the conversation for commands.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		sessionID, _ := cmd.Flags().GetString("session")
		fresh, _ := cmd.Flags().GetBool("fresh")
		quiet, _ := cmd.Flags().GetBool("quiet")
		debug, _ := cmd.Flags().GetBool("debug")

		return cli.RunSession(cmd.Context(), cfg, cli.RunOptions{
			SessionID: sessionID,
			Fresh:     fresh,
			Debug:     debug,
			Quiet:     quiet,
			Input:     cmd.InOrStdin(),
			Output:    cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("session", "s", "", "Session slot to resume (default from config, then \""+cli.DefaultSessionID+"\")")
	runCmd.Flags().Bool("fresh", false, "Discard the saved draft and start over")
	runCmd.Flags().BoolP("quiet", "q", false, "Skip the banner and system messages")

	// 'run' is the default when no command is given.
	rootCmd.RunE = runCmd.RunE
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
}
