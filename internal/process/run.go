package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/myle-app/myle/internal/logging"
)

// DefaultGracefulTimeout is how long a cancelled tool gets to exit after the interrupt.
const DefaultGracefulTimeout = 5 * time.Second

// Result is the outcome of a finished command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Run starts name with args and waits for it to exit. The returned error is non-nil
// only when the process could not be started or ctx was cancelled; a non-zero exit
// is reported through Result.ExitCode.
func Run(ctx context.Context, logger logging.Logger, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Cancel = func() error {
		if err := cmd.Process.Signal(os.Interrupt); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = DefaultGracefulTimeout

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("failed to start %s: %w", name, err)
	}
	logger.Debug("Process started", "pid", cmd.Process.Pid, "command", name)

	var outBuf, errBuf strings.Builder
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		streamOutput(logger, stdout, "stdout", &outBuf)
	}()
	go func() {
		defer wg.Done()
		streamOutput(logger, stderr, "stderr", &errBuf)
	}()
	wg.Wait()

	waitErr := cmd.Wait()
	res := Result{
		ExitCode: exitCodeFromError(waitErr),
		Stdout:   strings.TrimSpace(outBuf.String()),
		Stderr:   strings.TrimSpace(errBuf.String()),
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		logger.Error("Process exited with error", "error", waitErr)
		return res, waitErr
	}
	logger.Debug("Process exited", "command", name, "exit_code", res.ExitCode)
	return res, nil
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, or 1 for other errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

// maxOutputLine caps a single captured line.
const maxOutputLine = 1 << 20

// streamOutput logs each line at debug level and copies it into buf. The pipe is
// drained to the end even when a line cannot be read, so the tool never blocks on write.
func streamOutput(logger logging.Logger, reader io.Reader, source string, buf *strings.Builder) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxOutputLine)
	for scanner.Scan() {
		line := scanner.Text()
		buf.WriteString(line)
		buf.WriteByte('\n')
		logger.Debug(line, "source", source)
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("Error reading output", "source", source, "error", err)
		_, _ = io.Copy(io.Discard, reader)
	}
}
