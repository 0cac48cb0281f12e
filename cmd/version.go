package cmd

import (
	"fmt"

	"payroll-auditor/core/audit"

	"github.com/spf13/cobra"
)

// versionCmd prints the engine version.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the engine version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("payroll-auditor " + audit.Version)
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
