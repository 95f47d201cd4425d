package deploy

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/landingkit/lander/internal/config"
	lerrors "github.com/landingkit/lander/internal/errors"
	"github.com/landingkit/lander/internal/logging"
)

// RsyncFlags are passed to rsync for every target.
const RsyncFlags = "-avuzh"

// CommandFunc runs an external command and returns its combined output.
type CommandFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// RsyncUploader syncs each target with the rsync binary.
type RsyncUploader struct {
	destination string
	run         CommandFunc
	logger      logging.Logger
}

// NewRsyncUploader creates an uploader for destination, e.g.
// "user@host:/var/www". A nil run executes the real binary.
func NewRsyncUploader(destination string, run CommandFunc, logger logging.Logger) *RsyncUploader {
	if run == nil {
		run = runCommand
	}
	return &RsyncUploader{
		destination: destination,
		run:         run,
		logger:      logging.OrNop(logger).WithComponent("deploy"),
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Args returns the rsync arguments for one target.
func (u *RsyncUploader) Args(target config.DeployTarget) []string {
	local := strings.TrimRight(target.Local, "/") + "/"
	return []string{RsyncFlags, local, u.destination + target.Remote}
}

// Deploy implements Uploader. Files and Bytes of the report stay zero since
// rsync does the transfer accounting.
func (u *RsyncUploader) Deploy(ctx context.Context, targets []config.DeployTarget) (*Report, error) {
	if len(targets) == 0 {
		return nil, lerrors.NewDeployError("", "no deploy targets configured", nil)
	}

	op := logging.StartOperation(u.logger, "rsync")
	report := &Report{}
	for _, target := range targets {
		args := u.Args(target)
		out, err := u.run(ctx, "rsync", args...)
		if err != nil {
			err = lerrors.NewDeployError(target.Local, fmt.Sprintf("rsync failed: %s", strings.TrimSpace(string(out))), err)
			op.EndWithError(ctx, err)
			return report, err
		}
		report.Targets++
		u.logger.Debug(ctx, "Synced", "local", target.Local, "remote", u.destination+target.Remote)
	}
	op.End(ctx)
	return report, nil
}
