package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent resolver daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			out, err := app.ResolverTool.Logs(cmd.Context(), lines)
			if err != nil {
				return err
			}
			fmt.Print(out)
			if out != "" && !strings.HasSuffix(out, "\n") {
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of log lines")
	return cmd
}
