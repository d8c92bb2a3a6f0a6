package license

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"syscall"
	"time"
)

const (
	// maxCapturedBytes caps how much generator stdout/stderr is retained.
	maxCapturedBytes = 64 * 1024

	// terminationGracePeriod is the time we wait after SIGTERM before SIGKILL.
	terminationGracePeriod = 5 * time.Second
)

// Generator invokes the external license-generation program.
//
// Buyer-supplied name and email are passed as individual argv entries, never
// through a shell, so metacharacters in them cannot alter the command.
type Generator struct {
	command      string
	validityDays int
	timeout      time.Duration
}

// NewGenerator creates a Generator for the given executable.
func NewGenerator(command string, validityDays int, timeout time.Duration) *Generator {
	return &Generator{
		command:      command,
		validityDays: validityDays,
		timeout:      timeout,
	}
}

// RunResult captures one generator invocation.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes the generator for one buyer with workDir as its working
// directory, so its output artifact lands in the request-scoped workspace.
// Timeout and non-zero exit are both returned as errors; the caller treats
// them as generation failures with no retry.
func (g *Generator) Run(ctx context.Context, workDir, buyerName, buyerEmail, orderID string, logger *slog.Logger) (RunResult, error) {
	note := fmt.Sprintf("HakPak License - Order #%s", orderID)

	timeoutTimer := time.NewTimer(g.timeout)
	defer timeoutTimer.Stop()

	// Termination is managed here rather than via CommandContext so the
	// process gets a SIGTERM grace period before SIGKILL. The generator runs
	// in its own process group so signals reach any children it spawns, and
	// WaitDelay stops Wait from blocking on stdout/stderr pipes inherited by
	// a child that outlives it.
	cmd := exec.Command(g.command, buyerName, buyerEmail, note, strconv.Itoa(g.validityDays))
	cmd.Dir = workDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = terminationGracePeriod

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("spawning generator", "command", g.command, "dir", workDir, "timeout", g.timeout)

	if err := cmd.Start(); err != nil {
		return RunResult{}, fmt.Errorf("start generator: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
	}()

	select {
	case <-timeoutTimer.C:
		logger.Warn("generator timed out, sending SIGTERM")
		signalGroup(cmd, syscall.SIGTERM, logger)

		grace := time.NewTimer(terminationGracePeriod)
		defer grace.Stop()

		select {
		case <-waitErr:
			logger.Info("generator exited after SIGTERM")
		case <-grace.C:
			logger.Warn("generator did not exit after SIGTERM, sending SIGKILL")
			signalGroup(cmd, syscall.SIGKILL, logger)
			<-waitErr
		}

		res := RunResult{Stdout: truncate(stdout.String()), Stderr: truncate(stderr.String())}
		return res, fmt.Errorf("generator execution: %w", context.DeadlineExceeded)

	case err := <-waitErr:
		res := RunResult{Stdout: truncate(stdout.String()), Stderr: truncate(stderr.String())}
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				res.ExitCode = exitErr.ExitCode()
				return res, fmt.Errorf("generator exited with status %d", res.ExitCode)
			}
			if errors.Is(err, exec.ErrWaitDelay) {
				// The generator exited cleanly but an orphaned child still
				// held its output pipes. Captured output may be short; the
				// artifact is on disk either way.
				logger.Warn("generator left children holding its output pipes")
				return res, nil
			}
			return res, fmt.Errorf("wait for generator: %w", err)
		}
		return res, nil
	}
}

// signalGroup delivers sig to the generator's whole process group, falling
// back to the direct child if the group is already gone.
func signalGroup(cmd *exec.Cmd, sig syscall.Signal, logger *slog.Logger) {
	if cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-cmd.Process.Pid, sig); err != nil {
		if err := cmd.Process.Signal(sig); err != nil {
			logger.Error("failed to signal generator", "signal", sig.String(), "error", err)
		}
	}
}

// truncate caps captured process output.
func truncate(s string) string {
	if len(s) > maxCapturedBytes {
		return s[:maxCapturedBytes]
	}
	return s
}
