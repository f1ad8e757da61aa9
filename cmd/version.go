package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mnemo-ai/mnemo/internal/config"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and configuration information",
	RunE: func(_ *cobra.Command, _ []string) error {
		fmt.Printf("mnemo %s\n", AppVersion)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

		cfg, err := config.Load()
		if err != nil {
			// version must work even with a broken config file
			fmt.Printf("\nConfiguration: unavailable (%v)\n", err)
			return nil
		}

		// Config.MarshalJSON masks the secrets
		out, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("rendering config: %w", err)
		}
		fmt.Printf("\nConfiguration:\n%s\n", out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
