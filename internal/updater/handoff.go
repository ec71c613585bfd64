package updater

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/myle-app/myle/internal/fsutil"
	"github.com/myle-app/myle/internal/logging"
)

const (
	installGraceDelay = 300 * time.Millisecond
	launchDelay       = 100 * time.Millisecond
)

// silentInstallArgs run the NSIS installer unattended and relaunch the app afterwards.
var silentInstallArgs = []string{"/S", "--force-run"}

type handoff struct {
	mode     InstallMode
	launcher Launcher
	quit     func()
	sleep    func(ctx context.Context, d time.Duration) error
	tempDir  string
	now      func() time.Time
	logger   logging.Logger
}

// run waits out the grace delays, launches artifact and quits. Portable builds
// launch a temp copy so the original location is not locked by the new process.
func (h *handoff) run(ctx context.Context, artifact string) error {
	if !fsutil.Exists(artifact) {
		return fmt.Errorf("downloaded update not found: %s", artifact)
	}

	if err := h.sleep(ctx, installGraceDelay); err != nil {
		return err
	}

	target := artifact
	var args []string
	if h.mode == ModePortable {
		dir := filepath.Join(h.tempDir, fmt.Sprintf("myle-update-%d", h.now().UnixMilli()))
		target = filepath.Join(dir, filepath.Base(artifact))
		if err := fsutil.CopyFile(artifact, target); err != nil {
			return fmt.Errorf("failed to copy update to temp location: %w", err)
		}
		if err := fsutil.RemoveFileIfExists(artifact); err != nil {
			h.logger.Warn("Failed to remove original update file", "path", artifact, "error", err)
		}
	} else if strings.EqualFold(filepath.Ext(artifact), ".exe") {
		args = silentInstallArgs
	}

	if err := h.sleep(ctx, launchDelay); err != nil {
		return err
	}

	h.logger.Info("Launching update", "path", target, "mode", h.mode)
	if err := h.launcher.Launch(target, args...); err != nil {
		return err
	}

	if h.quit != nil {
		h.quit()
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DefaultCacheDir is the directory update artifacts are staged in.
func DefaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "myle-updater")
}

// DefaultUserDataDir is the per-user application data directory.
func DefaultUserDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "make-your-life-easier")
}

// CleanCache empties dir, leaving dir itself in place. Failures are logged.
func CleanCache(dir string, logger logging.Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	removed := 0
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			logger.Warn("Failed to clean updater cache entry", "name", e.Name(), "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Info("Cleaned updater cache", "dir", dir, "entries", removed)
	}
}
