package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/landingkit/lander/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate or show the configuration",
	Long: `Validate or show the project configuration (lander.yml) and the site
configuration it names (site_config, data.yml by default).

Examples:
  lander config validate            # Check both documents
  lander config validate --strict   # Also fail on sites lacking cdn_url or gtm_code
  lander config show --format json  # Print the resolved project configuration`,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the project and site configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved project configuration",
	Long: `Display the project configuration after the configuration file,
LANDER_ environment variables and defaults have been applied.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var (
	configFormat string
	configStrict bool
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd, configShowCmd)

	configValidateCmd.Flags().BoolVar(&configStrict, "strict", false, "Treat sites lacking a cdn_url or gtm_code as errors")
	configShowCmd.Flags().StringVar(&configFormat, "format", "yaml", "Output format (yaml, json)")
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Project configuration is valid")

	site, err := config.LoadSiteConfig(appFs, cfg.SiteConfig)
	if err != nil {
		return err
	}
	if cfg.Deploy.Method == config.DeployFTP && len(cfg.Deploy.Targets) > 0 {
		if err := site.ValidateFTP(cfg.SiteConfig); err != nil {
			return err
		}
	}

	missing := site.MissingKeys()
	for _, m := range missing {
		fmt.Fprintf(out, "warning: site %s has no %s\n", m.Site, m.Key)
	}
	if configStrict && len(missing) > 0 {
		return fmt.Errorf("%s: %d missing site values", cfg.SiteConfig, len(missing))
	}

	fmt.Fprintf(out, "Site configuration %s is valid (%d sites)\n", cfg.SiteConfig, len(site.Sites()))
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if _, _, err := loadConfig(cmd); err != nil {
		return err
	}
	settings := viper.AllSettings()

	out := cmd.OutOrStdout()
	switch configFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(settings)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(settings); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format: %s (supported: yaml, json)", configFormat)
	}
}
