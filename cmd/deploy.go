package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/landingkit/lander/internal/build"
	"github.com/landingkit/lander/internal/deploy"
)

// TaskDeploy builds for production and uploads the output.
const TaskDeploy = "deploy"

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Build for production and upload the output",
	Long: `Run the production build, then upload every deploy target: each
{local, remote} pair of deploy.targets. The ftp method uses the credentials of
the site configuration (LANDER_FTP_PASSWORD overrides the password); the rsync
method syncs each target to deploy.rsync_destination.

Examples:
  lander deploy                 # Build and upload
  lander deploy --dry-run       # List what would be uploaded
  lander deploy --skip-build    # Upload the current output`,
	Args:    cobra.NoArgs,
	PreRunE: bindTemplateFlags,
	RunE:    runDeploy,
}

var (
	deployDryRun    bool
	deploySkipBuild bool
)

func init() {
	rootCmd.AddCommand(deployCmd)

	deployCmd.Flags().BoolVar(&deployDryRun, "dry-run", false, "List the uploads without transferring")
	deployCmd.Flags().BoolVar(&deploySkipBuild, "skip-build", false, "Upload the existing output without building")
	addTemplateFlags(deployCmd.Flags())
}

func runDeploy(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	uploader, err := deploy.New(appFs, a.cfg, a.site, deploy.Options{
		DryRun: deployDryRun,
		Out:    cmd.OutOrStdout(),
	}, a.logger)
	if err != nil {
		return err
	}

	upload := func(ctx context.Context) error {
		report, err := uploader.Deploy(ctx, a.cfg.Deploy.Targets)
		if err != nil {
			return err
		}
		if !deployDryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "Deployed %d targets, %d files (%d bytes)\n", report.Targets, report.Files, report.Bytes)
		}
		return nil
	}

	runner := a.pipeline.Runner()
	if deploySkipBuild {
		runner.Register(TaskDeploy, "Upload the output", upload)
	} else {
		runner.Register(TaskDeploy, "Build for production and upload the output",
			build.Series(runner.Ref(build.TaskBuildOptimized), upload))
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	err = a.pipeline.Run(ctx, TaskDeploy)
	printSummary(cmd.OutOrStdout(), a.pipeline)
	return err
}
