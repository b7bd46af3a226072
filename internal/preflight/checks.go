package preflight

import (
	"fmt"
	"os/exec"

	"golang.org/x/sys/unix"

	"reel/internal/config"
)

// Check is one startup requirement and its outcome.
type Check struct {
	Name   string
	Detail string
	OK     bool
}

// Run verifies the daemon's external requirements: the encoder binary on
// PATH and writable working directories. It returns every check so callers
// can report all failures at once.
func Run(cfg *config.Config) []Check {
	checks := []Check{
		binaryCheck(cfg.EncoderBinary()),
		dirCheck("media root", cfg.Paths.MediaRoot),
		dirCheck("data directory", cfg.Paths.DataDir),
		dirCheck("log directory", cfg.Paths.LogDir),
	}
	return checks
}

// Failed filters checks down to the ones that did not pass.
func Failed(checks []Check) []Check {
	var failed []Check
	for _, check := range checks {
		if !check.OK {
			failed = append(failed, check)
		}
	}
	return failed
}

func binaryCheck(binary string) Check {
	check := Check{Name: fmt.Sprintf("encoder binary %q", binary)}
	path, err := exec.LookPath(binary)
	if err != nil {
		check.Detail = "not found on PATH"
		return check
	}
	check.Detail = path
	check.OK = true
	return check
}

func dirCheck(name, dir string) Check {
	check := Check{Name: name, Detail: dir}
	if err := unix.Access(dir, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		check.Detail = fmt.Sprintf("%s: %v", dir, err)
		return check
	}
	check.OK = true
	return check
}
