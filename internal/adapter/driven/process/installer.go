// Package process implements the process-level ports of the upgrade
// controller: installing a new build and replacing or stopping the running
// process.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/aidaco/wwwmin/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PackageInstaller = (*Installer)(nil)

// outputTail is how much installer output is kept for error reports.
const outputTail = 4096

// InstallerConfig describes the package manager invocation. The source is
// appended to Command as the last argument.
type InstallerConfig struct {
	Command []string
	Source  string
	WorkDir string
	BinDir  string
	Timeout time.Duration
}

// DefaultInstallCommand installs with the Go toolchain.
func DefaultInstallCommand() []string {
	return []string{"go", "install"}
}

// Installer runs the package manager to fetch and install the latest build.
type Installer struct {
	cfg    InstallerConfig
	logger *slog.Logger
}

// NewInstaller creates an Installer.
func NewInstaller(cfg InstallerConfig, logger *slog.Logger) *Installer {
	if len(cfg.Command) == 0 {
		cfg.Command = DefaultInstallCommand()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &Installer{cfg: cfg, logger: logger}
}

// Install runs the configured command and waits for it. Any failure is
// returned as *driven.UpgradeError with the tail of the combined output.
func (i *Installer) Install(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, i.cfg.Timeout)
	defer cancel()

	args := append(append([]string(nil), i.cfg.Command[1:]...), i.cfg.Source)
	cmd := exec.CommandContext(ctx, i.cfg.Command[0], args...)
	cmd.Dir = i.cfg.WorkDir
	cmd.Env = os.Environ()
	if i.cfg.BinDir != "" {
		cmd.Env = append(cmd.Env, "GOBIN="+i.cfg.BinDir)
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	i.logger.Info("installing upgrade", "command", strings.Join(cmd.Args, " "), "dir", cmd.Dir)

	err := cmd.Run()
	if err == nil {
		i.logger.Info("upgrade installed", "duration", time.Since(start).Round(time.Millisecond))
		return nil
	}

	upErr := &driven.UpgradeError{Output: tail(out.String(), outputTail), Err: err}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		upErr.ExitCode = ee.ExitCode()
	}
	if ctx.Err() != nil {
		upErr.Err = fmt.Errorf("%w (%v)", ctx.Err(), err)
	}
	return upErr
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
