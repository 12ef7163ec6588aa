package process

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sys/unix"

	"github.com/aidaco/wwwmin/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ProcessController = (*Controller)(nil)

// Controller replaces or stops the current process with unix system calls.
type Controller struct {
	executable string
	args       []string
	fdDir      string
	logger     *slog.Logger

	exec   func(argv0 string, argv []string, envv []string) error
	kill   func(pid int, sig unix.Signal) error
	access func(path string, mode uint32) error
}

// NewController creates a Controller that re-executes the running binary
// with the original arguments.
func NewController(logger *slog.Logger) (*Controller, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	return &Controller{
		executable: exe,
		args:       append([]string(nil), os.Args...),
		fdDir:      "/proc/self/fd",
		logger:     logger,
		exec:       unix.Exec,
		kill:       unix.Kill,
		access:     unix.Access,
	}, nil
}

// Executable returns the path that Restart executes.
func (c *Controller) Executable() string {
	return c.executable
}

// ReleaseDescriptors sets close-on-exec on every open descriptor above
// stderr. Descriptors that vanish while iterating are skipped.
func (c *Controller) ReleaseDescriptors() error {
	entries, err := os.ReadDir(c.fdDir)
	if err != nil {
		return fmt.Errorf("list descriptors: %w", err)
	}

	var result *multierror.Error
	marked := 0
	for _, e := range entries {
		fd, err := strconv.Atoi(e.Name())
		if err != nil || fd <= 2 {
			continue
		}
		if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
			if errors.Is(err, unix.EBADF) {
				continue
			}
			result = multierror.Append(result, fmt.Errorf("fd %d: %w", fd, err))
			continue
		}
		marked++
	}

	c.logger.Debug("descriptors marked close-on-exec", "count", marked)
	return result.ErrorOrNil()
}

// CheckRestart verifies the executable is still present and executable, so
// a doomed exec is caught while the server is still serving.
func (c *Controller) CheckRestart() error {
	if err := c.access(c.executable, unix.X_OK); err != nil {
		return fmt.Errorf("check executable %s: %w", c.executable, err)
	}
	return nil
}

// Restart replaces the process image. It only returns on failure.
func (c *Controller) Restart() error {
	c.logger.Info("re-executing", "path", c.executable, "args", c.args)
	if err := c.exec(c.executable, c.args, os.Environ()); err != nil {
		return fmt.Errorf("exec %s: %w", c.executable, err)
	}
	return nil
}

// Terminate sends SIGTERM to the current process so the normal graceful
// shutdown path runs.
func (c *Controller) Terminate() error {
	if err := c.kill(os.Getpid(), unix.SIGTERM); err != nil {
		return fmt.Errorf("signal self: %w", err)
	}
	return nil
}
