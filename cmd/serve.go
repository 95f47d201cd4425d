package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/landingkit/lander/internal/build"
	"github.com/landingkit/lander/internal/server"
	"github.com/landingkit/lander/internal/watcher"
	"github.com/landingkit/lander/internal/websocket"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Build, serve the output and rebuild on change",
	Long: `Build every asset, serve the output directory and rebuild what a source
change affects. Served pages reload themselves after a rebuild; a stylesheet
change only refreshes the stylesheets.

Examples:
  lander serve                      # Serve on localhost:3000
  lander serve --port 8080          # Serve on another port
  lander serve --live-reload=false  # Plain file server`,
	Args:    cobra.NoArgs,
	PreRunE: bindServerFlags,
	RunE:    runServe,
}

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Build, then rebuild on change without serving",
	Args:    cobra.NoArgs,
	PreRunE: bindTemplateFlags,
	RunE:    runWatch,
}

func init() {
	rootCmd.AddCommand(serveCmd, watchCmd)

	addServerFlags(serveCmd.Flags())
	addTemplateFlags(serveCmd.Flags())
	addTemplateFlags(watchCmd.Flags())
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	if err := a.pipeline.Run(ctx, build.TaskBuild); err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), a.pipeline)

	var wm *websocket.WebSocketManager
	var reload watcher.ReloadFunc
	if a.cfg.Server.LiveReload {
		wm = websocket.NewWebSocketManager(websocket.LocalOriginValidator{
			Host: a.cfg.Server.Host,
			Port: a.cfg.Server.Port,
		}, a.logger)
		reload = wm.Reload
	}

	srv := server.New(appFs, a.cfg.Paths.Dist, a.cfg.Server, wm, a.logger)
	addr, err := srv.Listen()
	if err != nil {
		return err
	}

	fw, err := startWatching(ctx, a, reload)
	if err != nil {
		_ = srv.Shutdown(context.Background())
		return err
	}
	defer fw.Stop()

	var first string
	if sites := a.site.Sites(); len(sites) > 0 {
		first = sites[0]
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s at %s\n", a.cfg.Paths.Dist, server.StartURL(addr, first, a.site.HTMLFileName))

	return srv.Serve(ctx)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	if err := a.pipeline.Run(ctx, build.TaskBuild); err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), a.pipeline)

	fw, err := startWatching(ctx, a, nil)
	if err != nil {
		return err
	}
	defer fw.Stop()

	fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes, press Ctrl+C to stop")
	<-ctx.Done()
	return nil
}

// startWatching watches the roots of every watch group and runs the task of
// the groups a change batch touches, then calls reload.
func startWatching(ctx context.Context, a *app, reload watcher.ReloadFunc) (*watcher.FileWatcher, error) {
	router, err := watcher.NewRouter(watcher.DefaultGroups(a.cfg), a.pipeline.Run, reload, a.logger)
	if err != nil {
		return nil, err
	}

	fw, err := watcher.NewFileWatcher(a.cfg.Watch.Debounce, a.logger)
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	fw.AddFilter(watcher.NoHiddenFilter)
	fw.AddFilter(watcher.NoBackupFilter)

	for _, root := range router.Roots() {
		if err := fw.AddRecursive(root); err != nil {
			_ = fw.Stop()
			return nil, fmt.Errorf("watch %s: %w", root, err)
		}
	}

	fw.AddHandler(router.Handle)
	if err := fw.Start(ctx); err != nil {
		_ = fw.Stop()
		return nil, err
	}
	return fw, nil
}
