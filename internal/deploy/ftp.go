package deploy

import (
	"context"
	"io"
	"net"
	"path"
	"sort"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/spf13/afero"

	"github.com/landingkit/lander/internal/config"
	lerrors "github.com/landingkit/lander/internal/errors"
	"github.com/landingkit/lander/internal/logging"
)

const defaultFTPPort = "21"

// Conn is the part of an FTP session the uploader needs.
// *ftp.ServerConn satisfies it.
type Conn interface {
	MakeDir(path string) error
	Stor(path string, r io.Reader) error
	Quit() error
}

// DialFunc opens a logged-in FTP session.
type DialFunc func(ctx context.Context, addr, user, password string, timeout time.Duration) (Conn, error)

// FTPUploader stores every planned file over a single FTP session.
type FTPUploader struct {
	fs      afero.Fs
	creds   config.FTPConfig
	timeout time.Duration
	dial    DialFunc
	logger  logging.Logger
}

// NewFTPUploader creates an uploader. A nil dial uses a real FTP connection.
func NewFTPUploader(fs afero.Fs, creds config.FTPConfig, timeout time.Duration, dial DialFunc, logger logging.Logger) *FTPUploader {
	if dial == nil {
		dial = dialFTP
	}
	return &FTPUploader{
		fs:      fs,
		creds:   creds,
		timeout: timeout,
		dial:    dial,
		logger:  logging.OrNop(logger).WithComponent("deploy"),
	}
}

func dialFTP(ctx context.Context, addr, user, password string, timeout time.Duration) (Conn, error) {
	c, err := ftp.Dial(addr, ftp.DialWithTimeout(timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, err
	}
	if err := c.Login(user, password); err != nil {
		_ = c.Quit()
		return nil, err
	}
	return c, nil
}

// Addr returns host:port of the FTP server, defaulting the port to 21.
func Addr(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, defaultFTPPort)
}

// Deploy implements Uploader.
func (u *FTPUploader) Deploy(ctx context.Context, targets []config.DeployTarget) (*Report, error) {
	uploads, err := Plan(u.fs, targets)
	if err != nil {
		return nil, err
	}

	op := logging.StartOperation(u.logger, "ftp_upload")
	addr := Addr(u.creds.Host)

	conn, err := u.dial(ctx, addr, u.creds.User, u.creds.Password, u.timeout)
	if err != nil {
		err = lerrors.NewDeployError(addr, "cannot connect", err)
		op.EndWithError(ctx, err)
		return nil, err
	}
	defer func() {
		if err := conn.Quit(); err != nil {
			u.logger.Debug(ctx, "FTP quit failed", "error", err.Error())
		}
	}()

	for _, dir := range remoteDirs(u.creds.Root, uploads) {
		// Existing directories make MakeDir fail; a real problem shows up on Stor.
		if err := conn.MakeDir(dir); err != nil {
			u.logger.Debug(ctx, "MakeDir failed", "dir", dir, "error", err.Error())
		}
	}

	report := &Report{Targets: len(targets)}
	for _, up := range uploads {
		if err := ctx.Err(); err != nil {
			op.EndWithError(ctx, err)
			return report, err
		}
		if err := u.store(conn, up); err != nil {
			op.EndWithError(ctx, err)
			return report, err
		}
		report.Files++
		report.Bytes += up.Size
		u.logger.Debug(ctx, "Uploaded", "local", up.Local, "remote", remotePath(u.creds.Root, up.Remote))
	}

	op.Info(ctx, "Deploy finished", "files", report.Files, "bytes", report.Bytes, "server", addr)
	op.End(ctx)
	return report, nil
}

func (u *FTPUploader) store(conn Conn, up Upload) error {
	f, err := u.fs.Open(up.Local)
	if err != nil {
		return lerrors.NewDeployError(up.Local, "cannot open file", err)
	}
	defer f.Close()

	remote := remotePath(u.creds.Root, up.Remote)
	if err := conn.Stor(remote, f); err != nil {
		return lerrors.NewDeployError(up.Local, "upload to "+remote+" failed", err)
	}
	return nil
}

// remoteDirs lists every remote directory the uploads need, parents first.
func remoteDirs(root string, uploads []Upload) []string {
	seen := make(map[string]bool)
	for _, up := range uploads {
		dir := path.Dir(remotePath(root, up.Remote))
		for dir != "/" && dir != "." && !seen[dir] {
			seen[dir] = true
			dir = path.Dir(dir)
		}
	}

	dirs := make([]string, 0, len(seen))
	for dir := range seen {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}
