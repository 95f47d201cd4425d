// Package deploy uploads the built site to its hosting.
//
// What gets uploaded is a static manifest, deploy.targets, of local
// directories and the remote directories they map to. The ftp method walks
// every local tree and stores each file over one FTP session; the rsync method
// hands each target to the rsync binary.
package deploy

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/landingkit/lander/internal/config"
	lerrors "github.com/landingkit/lander/internal/errors"
	"github.com/landingkit/lander/internal/logging"
	"github.com/landingkit/lander/internal/validation"
)

// Upload is one file of a deploy plan.
type Upload struct {
	Local  string
	Remote string
	Size   int64
}

// Report summarizes a finished deploy.
type Report struct {
	Targets int
	Files   int
	Bytes   int64
}

// Uploader transfers the deploy targets.
type Uploader interface {
	Deploy(ctx context.Context, targets []config.DeployTarget) (*Report, error)
}

// Options select how New builds the uploader.
type Options struct {
	// DryRun lists the planned uploads on Out instead of transferring.
	DryRun bool
	Out    io.Writer
}

// New returns the uploader for the configured deploy method.
func New(fs afero.Fs, cfg *config.Config, site *config.SiteConfig, opts Options, logger logging.Logger) (Uploader, error) {
	if fs == nil || cfg == nil || site == nil {
		return nil, fmt.Errorf("deploy: filesystem and configuration are required")
	}
	logger = logging.OrNop(logger).WithComponent("deploy")

	if opts.DryRun {
		out := opts.Out
		if out == nil {
			out = os.Stdout
		}
		return &DryRun{fs: fs, out: out, root: site.FTP.Root, method: cfg.Deploy.Method}, nil
	}

	switch cfg.Deploy.Method {
	case config.DeployFTP:
		if err := site.ValidateFTP(cfg.SiteConfig); err != nil {
			return nil, err
		}
		return NewFTPUploader(fs, site.FTP, cfg.Deploy.Timeout, nil, logger), nil
	case config.DeployRsync:
		if err := validation.Destination(cfg.Deploy.RsyncDestination); err != nil {
			return nil, lerrors.NewInvalidConfig("", "deploy.rsync_destination", err.Error())
		}
		return NewRsyncUploader(cfg.Deploy.RsyncDestination, nil, logger), nil
	default:
		return nil, fmt.Errorf("deploy: unknown method %q", cfg.Deploy.Method)
	}
}

// Plan lists every file below the local directory of each target together
// with its remote path. A missing local directory is a deploy error.
func Plan(fs afero.Fs, targets []config.DeployTarget) ([]Upload, error) {
	if len(targets) == 0 {
		return nil, lerrors.NewDeployError("", "no deploy targets configured", nil)
	}

	var uploads []Upload
	for _, target := range targets {
		info, err := fs.Stat(target.Local)
		if err != nil {
			return nil, lerrors.NewDeployError(target.Local, "local directory not found", err)
		}
		if !info.IsDir() {
			return nil, lerrors.NewDeployError(target.Local, "local path is not a directory", nil)
		}

		err = afero.Walk(fs, target.Local, func(p string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(target.Local, p)
			if err != nil {
				return err
			}
			uploads = append(uploads, Upload{
				Local:  p,
				Remote: path.Join("/", target.Remote, filepath.ToSlash(rel)),
				Size:   fi.Size(),
			})
			return nil
		})
		if err != nil {
			return nil, lerrors.NewDeployError(target.Local, "cannot list local files", err)
		}
	}
	return uploads, nil
}

// DryRun prints the deploy plan without transferring anything.
type DryRun struct {
	fs     afero.Fs
	out    io.Writer
	root   string
	method string
}

// Deploy implements Uploader.
func (d *DryRun) Deploy(_ context.Context, targets []config.DeployTarget) (*Report, error) {
	uploads, err := Plan(d.fs, targets)
	if err != nil {
		return nil, err
	}

	report := &Report{Targets: len(targets)}
	for _, u := range uploads {
		remote := u.Remote
		if d.method == config.DeployFTP {
			remote = remotePath(d.root, u.Remote)
		}
		fmt.Fprintf(d.out, "%s -> %s (%d bytes)\n", u.Local, remote, u.Size)
		report.Files++
		report.Bytes += u.Size
	}
	fmt.Fprintf(d.out, "%d files, %d bytes (dry run, %s)\n", report.Files, report.Bytes, d.method)
	return report, nil
}

func remotePath(root, remote string) string {
	return path.Join("/", root, remote)
}
