package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/landingkit/lander/internal/build"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Clean and build every asset",
	Long: `Clean the output directory and build every asset: stylesheets, scripts,
images, fonts, resources and the page templates.

With --optimized, stylesheets and SVG images are minified and every page has
its inline-marked scripts, stylesheets and SVG images embedded before it is
minified.

Examples:
  lander build                    # Development build
  lander build --optimized        # Production build
  lander build --workers 8        # Render 8 pages at a time`,
	PreRunE: bindTemplateFlags,
	RunE:    runBuild,
}

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Run one task of the build graph",
	Long: `Run one named task, e.g. templates or styles:optimized.
Use "lander tasks" to list them.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: bindTemplateFlags,
	RunE:    runTask,
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the registered tasks",
	Args:  cobra.NoArgs,
	RunE:  runTasks,
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the output directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runNamedTask(cmd, build.TaskClean)
	},
}

var buildOptimized bool

func init() {
	rootCmd.AddCommand(buildCmd, runCmd, tasksCmd, cleanCmd)

	buildCmd.Flags().BoolVar(&buildOptimized, "optimized", false, "Production build: minify and inline assets")
	addTemplateFlags(buildCmd.Flags())
	addTemplateFlags(runCmd.Flags())
}

func runBuild(cmd *cobra.Command, _ []string) error {
	task := build.TaskBuild
	if buildOptimized {
		task = build.TaskBuildOptimized
	}
	return runNamedTask(cmd, task)
}

func runTask(cmd *cobra.Command, args []string) error {
	return runNamedTask(cmd, args[0])
}

func runNamedTask(cmd *cobra.Command, task string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	if !a.pipeline.Runner().Has(task) {
		return fmt.Errorf("unknown task %q (see \"lander tasks\")", task)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	err = a.pipeline.Run(ctx, task)
	printSummary(cmd.OutOrStdout(), a.pipeline)
	return err
}

func runTasks(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, task := range a.pipeline.Runner().Tasks() {
		fmt.Fprintf(w, "%s\t%s\n", task.Name, task.Description)
	}
	return w.Flush()
}

// printSummary reports what the last run produced and the recovered issues.
func printSummary(out io.Writer, p *build.Pipeline) {
	snap := p.Metrics().GetSnapshot()
	fmt.Fprintf(out, "%d tasks (%d failed), %d pages rendered, %d pages failed, %d files written (%d bytes)\n",
		snap.TasksRun, snap.TasksFailed, snap.PagesRendered, snap.PagesFailed, snap.FilesWritten, snap.BytesWritten)
	if issues := p.Issues(); issues.Len() > 0 {
		fmt.Fprintln(out, issues.Summary())
	}
}
