package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/landingkit/lander/internal/resolver"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <template>",
	Short: "Print the data a template is rendered with",
	Long: `Resolve a template path, relative to paths.templates, and print the
data file it reads and the data it is rendered with, including the injected
language, meta.canonical, cdn_url and gtm_code. Recovered issues, such as a
missing locale file, are listed after the data.

Examples:
  lander resolve ub/de/index.hbs
  lander resolve ub/index.hbs`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

type resolveOutput struct {
	Template string                 `yaml:"template"`
	Site     string                 `yaml:"site,omitempty"`
	Language string                 `yaml:"language"`
	DataFile string                 `yaml:"data_file"`
	Context  resolver.RenderContext `yaml:"context"`
	Issues   []string               `yaml:"issues,omitempty"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	r, err := resolver.New(appFs, a.site, resolver.OptionsFromConfig(a.cfg), a.logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	res, err := r.Resolve(ctx, args[0])
	if err != nil {
		return err
	}

	out := resolveOutput{
		Template: res.Source.RelPath,
		Site:     res.Source.Site,
		Language: res.Source.Language,
		DataFile: res.DataFile,
		Context:  res.Context,
	}
	for _, issue := range res.Issues {
		out.Issues = append(out.Issues, fmt.Sprintf("%s %s", issue.Severity(), issue.Error()))
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}
