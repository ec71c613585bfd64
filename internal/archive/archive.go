// Package archive extracts downloaded archives with a bundled or installed 7-Zip.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/myle-app/myle/internal/fsutil"
	"github.com/myle-app/myle/internal/logging"
	"github.com/myle-app/myle/internal/process"
)

// OpenedDirectlyMessage is reported when no extraction tool exists and the archive
// was handed to the OS default handler instead.
const OpenedDirectlyMessage = "File opened directly (7-Zip not available)"

var lookPathNames = []string{"7za", "7z", "7zz"}

// Tracker records extracted directories for cleanup on exit.
type Tracker interface {
	TrackExtractedDir(dir string)
}

// Result is the outcome of Extract.
type Result struct {
	Output string
	Dir    string
	// Opened is true when the archive was opened with the default handler.
	Opened bool
}

// Extractor runs the extraction tool.
type Extractor struct {
	// ResourcesDir is the bundled resources directory, searched first.
	ResourcesDir string
	// ExeDir is the directory of the running executable.
	ExeDir string
	Tracker Tracker
	// Open is used when no tool is found.
	Open   func(path string) error
	logger logging.Logger
}

// NewExtractor creates an Extractor rooted at the running executable's directory.
func NewExtractor(resourcesDir string, tracker Tracker, logger logging.Logger) *Extractor {
	exeDir := ""
	if exe, err := os.Executable(); err == nil {
		exeDir = filepath.Dir(exe)
	}
	if resourcesDir == "" {
		resourcesDir = exeDir
	}
	return &Extractor{
		ResourcesDir: resourcesDir,
		ExeDir:       exeDir,
		Tracker:      tracker,
		Open:         process.Open,
		logger:       logger,
	}
}

// candidates returns the search order for the extraction tool.
func (x *Extractor) candidates() []string {
	var paths []string
	add := func(dir string) {
		if dir == "" {
			return
		}
		paths = append(paths,
			filepath.Join(dir, "bin", "7za.exe"),
			filepath.Join(dir, "bin", "7z.exe"),
			filepath.Join(dir, "bin", "7za"),
		)
	}
	add(x.ResourcesDir)
	if x.ExeDir != x.ResourcesDir {
		add(x.ExeDir)
	}
	if x.ExeDir != "" {
		add(filepath.Dir(x.ExeDir))
	}
	for _, env := range []string{"ProgramFiles", "ProgramFiles(x86)"} {
		if root := os.Getenv(env); root != "" {
			paths = append(paths, filepath.Join(root, "7-Zip", "7z.exe"))
		}
	}
	return paths
}

// LocateTool returns the first extraction tool found, or "" when there is none.
func (x *Extractor) LocateTool() string {
	for _, p := range x.candidates() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	for _, name := range lookPathNames {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}

// OutputDir returns destDir, or the archive's basename next to the archive.
func OutputDir(filePath, destDir string) string {
	if destDir != "" {
		return destDir
	}
	base := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	return filepath.Join(filepath.Dir(filePath), base)
}

// Extract unpacks filePath into destDir (or a sibling directory named after it).
// Existing output and its space alias are removed first.
func (x *Extractor) Extract(ctx context.Context, filePath, password, destDir string) (Result, error) {
	if filePath == "" {
		return Result{}, errors.New("file path is required")
	}
	if !fsutil.Exists(filePath) {
		return Result{}, fmt.Errorf("archive not found: %s", filePath)
	}

	tool := x.LocateTool()
	if tool == "" {
		x.logger.Warn("No extraction tool found, opening archive directly", "path", filePath)
		if err := x.Open(filePath); err != nil {
			return Result{}, fmt.Errorf("failed to open archive: %w", err)
		}
		return Result{Output: OpenedDirectlyMessage, Opened: true}, nil
	}

	out := filepath.Clean(OutputDir(filePath, destDir))
	fsutil.TryRemoveDir(out)
	if alias := filepath.Join(filepath.Dir(out), fsutil.SpaceAlias(filepath.Base(out))); alias != out {
		fsutil.TryRemoveDir(alias)
	}
	if err := fsutil.EnsureDir(out); err != nil {
		return Result{}, fmt.Errorf("failed to create output directory: %w", err)
	}
	if x.Tracker != nil {
		x.Tracker.TrackExtractedDir(out)
	}

	args := []string{"x", filePath}
	if password != "" {
		args = append(args, "-p"+password)
	}
	args = append(args, "-o"+out, "-y")

	x.logger.Info("Extracting archive", "path", filePath, "dest", out, "tool", tool)
	res, err := process.Run(ctx, x.logger, tool, args...)
	if err != nil {
		return Result{}, fmt.Errorf("extraction failed: %w", err)
	}
	if res.ExitCode != 0 {
		if res.Stderr != "" {
			return Result{}, errors.New(res.Stderr)
		}
		return Result{}, fmt.Errorf("7za exited with code %d", res.ExitCode)
	}

	return Result{Output: res.Stdout, Dir: out}, nil
}
