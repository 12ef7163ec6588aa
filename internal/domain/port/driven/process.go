package driven

import (
	"context"
	"fmt"
)

// UpgradeError reports a failed package installation. The running binary is
// left in place when it occurs.
type UpgradeError struct {
	ExitCode int
	Output   string
	Err      error
}

func (e *UpgradeError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("upgrade failed with exit code %d: %v", e.ExitCode, e.Err)
	}
	return fmt.Sprintf("upgrade failed: %v", e.Err)
}

func (e *UpgradeError) Unwrap() error { return e.Err }

// PackageInstaller fetches and installs the latest build of the application.
// A failed installation must leave the running binary untouched and is
// reported as *UpgradeError.
type PackageInstaller interface {
	Install(ctx context.Context) error
}

// ProcessController owns the process-level side effects of the upgrade
// controller.
type ProcessController interface {
	// ReleaseDescriptors marks inherited descriptors close-on-exec so they do
	// not leak into the replacement image. It is best effort.
	ReleaseDescriptors() error

	// CheckRestart reports whether Restart can succeed, without side effects.
	// It runs before any request is drained.
	CheckRestart() error

	// Restart replaces the current process image with a fresh copy of itself.
	// It only returns on failure.
	Restart() error

	// Terminate asks the current process to shut down gracefully.
	Terminate() error
}
