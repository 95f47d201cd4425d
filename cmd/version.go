package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/landingkit/lander/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for lander.

Examples:
  lander version                 # Version and commit
  lander version --detailed      # Every known build fact
  lander version --format json   # Output as JSON`,
	Args: cobra.NoArgs,
	RunE: runVersionCommand,
}

var (
	versionFormat   string
	versionDetailed bool
)

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", "text", "Output format (text, json)")
	versionCmd.Flags().BoolVar(&versionDetailed, "detailed", false, "Show detailed version information")
}

func runVersionCommand(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	switch versionFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(version.GetBuildInfo())
	case "text":
		if versionDetailed {
			fmt.Fprintln(out, version.GetDetailedVersion())
			return nil
		}
		fmt.Fprintf(out, "lander %s\n", version.GetShortVersion())
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json)", versionFormat)
	}
}
