package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guras256/warp-dns-manager/internal/setup"
)

func newSetupCmd() *cobra.Command {
	var auto bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Install, configure and start both services",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			if app.Env.Auto || app.Cfg.Auto {
				auto = true
			}

			var promptFn func(label, def string) (string, error)
			if !auto {
				reader := bufio.NewReader(os.Stdin)
				promptFn = func(label, def string) (string, error) {
					return prompt(reader, label, def), nil
				}
				fmt.Println("=== WARP + NextDNS Setup ===")
				fmt.Println()
			}

			orch := app.orchestrator(promptFn)
			cfg, err := orch.CollectConfig()
			if err != nil {
				return err
			}

			res := orch.Run(cmd.Context(), cfg)
			return reportSetup(res)
		},
	}

	cmd.Flags().BoolVar(&auto, "auto", false, "unattended mode: no prompts, defaults and config file only")
	return cmd
}

func reportSetup(res *setup.Result) error {
	fmt.Println()
	for _, w := range res.Warnings {
		printWarn(w)
	}
	switch res.Outcome {
	case setup.Completed:
		printPass("setup completed")
		return nil
	case setup.Partial:
		printWarn("setup partially completed — services are up, but some checks failed")
		return nil
	default:
		printFail(fmt.Sprintf("setup aborted at step %q: %v", res.FailedStep, res.Failure))
		if res.RolledBack {
			fmt.Println("  configuration rolled back to the pre-setup backup")
		}
		return fmt.Errorf("setup aborted")
	}
}

func prompt(reader *bufio.Reader, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return defaultVal
	}
	return line
}
