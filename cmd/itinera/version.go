package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/itinera"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of itinera",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "itinera version %s\n", strings.TrimSpace(itinera.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
