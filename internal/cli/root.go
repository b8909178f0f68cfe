package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "warpdns",
		Short: "WARP tunnel + NextDNS filtering — host setup and supervision",
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		newVersionCmd(),
		newStatusCmd(),
		newSetupCmd(),
		newStartCmd(),
		newStopCmd(),
		newRestartCmd(),
		newTestCmd(),
		newMonitorCmd(),
		newBackupCmd(),
		newLogsCmd(),
		newInteractiveCmd(),
		newUninstallCmd(),
	)

	return root
}

// SetVersion sets the version string (called from main).
func SetVersion(v string) {
	version = v
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}
