package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/landingkit/lander/internal/build"
	"github.com/landingkit/lander/internal/config"
	"github.com/landingkit/lander/internal/logging"
)

// ConfigFileEnv names a project configuration file to use instead of lander.yml.
const ConfigFileEnv = "LANDER_CONFIG_FILE"

var (
	cfgFile string

	// appFs is the filesystem every command works on.
	appFs afero.Fs = afero.NewOsFs()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lander",
	Short: "Build pipeline for multi-language landing sites",
	Long: `Lander builds multi-language marketing landing sites: it compiles
stylesheets, minifies scripts, optimizes images and renders Handlebars page
templates with per-locale data, then deploys the output.

Quick Start:
  lander build                    Build every asset into dist/
  lander serve                    Build, serve and rebuild on change
  lander build --optimized        Production build
  lander deploy                   Production build and upload`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is lander.yml, can also use "+ConfigFileEnv+" env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	if err := bindFlags(rootCmd.PersistentFlags(), map[string]string{
		"log_level":  "log-level",
		"log_format": "log-format",
	}); err != nil {
		panic(err)
	}
}

// initConfig points Viper at the project configuration file. Precedence is
// --config, then LANDER_CONFIG_FILE, then lander.yml in the working directory.
// A missing default file is not an error; every key has a default.
func initConfig() {
	viper.SetFs(appFs)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(ConfigFileEnv); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("lander")
	}

	viper.SetEnvPrefix("LANDER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// readConfigFile reads the configuration file chosen by initConfig. Only an
// explicitly named file is required to exist.
func readConfigFile() error {
	err := viper.ReadInConfig()
	if err == nil {
		return nil
	}
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return nil
	}
	return fmt.Errorf("read configuration: %w", err)
}

// app is what most commands need: both configurations, a logger and the
// build pipeline.
type app struct {
	cfg      *config.Config
	site     *config.SiteConfig
	logger   logging.Logger
	pipeline *build.Pipeline
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	site, err := config.LoadSiteConfig(appFs, cfg.SiteConfig)
	if err != nil {
		return nil, err
	}
	for _, missing := range site.MissingKeys() {
		logger.Warn(cmd.Context(), nil, "Site lacks a value; pages of this site will miss it",
			"site", missing.Site, "key", missing.Key)
	}

	pipeline, err := build.NewPipeline(appFs, cfg, site, logger)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, site: site, logger: logger, pipeline: pipeline}, nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, logging.Logger, error) {
	if err := readConfigFile(); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  cfg.Level(),
		Format: cfg.LogFormat,
		Output: cmd.ErrOrStderr(),
	})
	return cfg, logger, nil
}
