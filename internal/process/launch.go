package process

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/myle-app/myle/internal/logging"
)

// LaunchError is returned when every launch strategy failed.
type LaunchError struct {
	Path   string
	Spawn  error
	Shell  error
	Reveal error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %s: spawn: %v; shell: %v; reveal: %v", e.Path, e.Spawn, e.Shell, e.Reveal)
}

// Unwrap exposes the individual strategy errors to errors.Is and errors.As.
func (e *LaunchError) Unwrap() []error {
	return []error{e.Spawn, e.Shell, e.Reveal}
}

// Launcher starts programs that outlive the current process.
type Launcher struct {
	Spawn  func(path string, args []string) error
	Shell  func(path string, args []string) error
	Reveal func(path string) error
	logger logging.Logger
}

// NewLauncher returns a Launcher using the platform strategies.
func NewLauncher(logger logging.Logger) *Launcher {
	return &Launcher{
		Spawn:  StartDetached,
		Shell:  ShellStart,
		Reveal: Reveal,
		logger: logger,
	}
}

// Launch tries a detached spawn, then a shell start, then reveals path in the file browser.
func (l *Launcher) Launch(path string, args ...string) error {
	spawnErr := l.Spawn(path, args)
	if spawnErr == nil {
		l.logger.Info("Launched detached process", "path", path)
		return nil
	}
	l.logger.Warn("Detached spawn failed, trying shell", "path", path, "error", spawnErr)

	shellErr := l.Shell(path, args)
	if shellErr == nil {
		l.logger.Info("Launched via shell", "path", path)
		return nil
	}
	l.logger.Warn("Shell launch failed, revealing file", "path", path, "error", shellErr)

	revealErr := l.Reveal(path)
	if revealErr == nil {
		l.logger.Info("Revealed file for manual launch", "path", path)
		return nil
	}

	return &LaunchError{Path: path, Spawn: spawnErr, Shell: shellErr, Reveal: revealErr}
}

// StartDetached starts path in a new session without waiting for it.
func StartDetached(path string, args []string) error {
	return startReleased(exec.Command(path, args...))
}

// ShellStart starts path through the platform shell.
func ShellStart(path string, args []string) error {
	name, shellArgs := shellCommand(path, args)
	return startReleased(exec.Command(name, shellArgs...))
}

// Reveal shows path in the OS file browser.
func Reveal(path string) error {
	name, args := revealCommand(path)
	return startReleased(exec.Command(name, args...))
}

// Open opens path with the OS default handler.
func Open(path string) error {
	name, args := openCommand(path)
	return startReleased(exec.Command(name, args...))
}

func startReleased(cmd *exec.Cmd) error {
	cmd.SysProcAttr = detachedAttr()
	if err := cmd.Start(); err != nil {
		return err
	}
	if cmd.Process == nil {
		return errors.New("process did not start")
	}
	return cmd.Process.Release()
}
