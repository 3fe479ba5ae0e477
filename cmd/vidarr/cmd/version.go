package cmd

import (
	"fmt"

	"github.com/jmylchreest/vidarr/internal/version"
	"github.com/spf13/cobra"
)

var versionFull bool

// versionCmd represents the version command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print the version, commit, and build date of vidarr.",
	Run: func(cmd *cobra.Command, args []string) {
		if versionFull {
			fmt.Println(version.Full())
			return
		}

		fmt.Println(version.Short())
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionFull, "full", false, "include commit, build date and runtime details")
	rootCmd.AddCommand(versionCmd)
}
