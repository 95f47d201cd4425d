package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// bindFlags binds configuration keys to flags of fs. Only flags the user set
// override the configuration file and environment. Viper keeps one flag per
// key, so commands sharing a key bind in PreRunE rather than init.
func bindFlags(fs *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		flag := fs.Lookup(name)
		if flag == nil {
			return fmt.Errorf("flag --%s is not defined", name)
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind --%s to %s: %w", name, key, err)
		}
	}
	return nil
}

// addServerFlags defines the flags of serve.
func addServerFlags(fs *pflag.FlagSet) {
	fs.IntP("port", "p", 3000, "Port to serve on")
	fs.String("host", "localhost", "Host to bind to")
	fs.Bool("live-reload", true, "Inject the live-reload client into pages")
}

func bindServerFlags(cmd *cobra.Command, _ []string) error {
	if err := bindTemplateFlags(cmd, nil); err != nil {
		return err
	}
	return bindFlags(cmd.Flags(), map[string]string{
		"server.port":        "port",
		"server.host":        "host",
		"server.live_reload": "live-reload",
	})
}

// addTemplateFlags defines the flags of commands that render pages.
func addTemplateFlags(fs *pflag.FlagSet) {
	fs.Int("workers", 4, "Pages rendered concurrently")
	fs.Bool("fail-on-error", false, "Fail the templates task when a page has an issue")
}

func bindTemplateFlags(cmd *cobra.Command, _ []string) error {
	return bindFlags(cmd.Flags(), map[string]string{
		"templates.workers":       "workers",
		"templates.fail_on_error": "fail-on-error",
	})
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
