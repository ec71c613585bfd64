// Package sparkle decides whether the bundled Sparkle debloat utility needs to be fetched.
package sparkle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"time"

	"github.com/myle-app/myle/internal/fsutil"
	"github.com/myle-app/myle/internal/logging"
	"github.com/myle-app/myle/internal/transport"
	"github.com/myle-app/myle/internal/version"
)

const (
	// DefaultRepository hosts the Sparkle releases.
	DefaultRepository = "parcoil/sparkle"

	fallbackFile = "sparkle-2.9.2-win.zip"
	fallbackURL  = "https://github.com/parcoil/sparkle/releases/download/2.9.2/sparkle-2.9.2-win.zip"

	extractedDir   = "debloat-sparkle"
	placeholderZip = "sparkle-latest.zip"
	appDirName     = "make-your-life-easier"
)

var (
	anyZip       = regexp.MustCompile(`(?i)^sparkle-.*-win\.zip$`)
	versionedZip = regexp.MustCompile(`(?i)^sparkle-([0-9]+(?:\.[0-9]+)*)-win\.zip$`)
)

// AssetFetcher resolves the newest release asset matching a pattern.
type AssetFetcher interface {
	FetchLatestReleaseAsset(ctx context.Context, ownerRepo string, pattern *regexp.Regexp) (*transport.LatestAsset, error)
}

// Plan tells the caller whether to start a download and where.
type Plan struct {
	NeedsDownload bool   `json:"needsDownload" doc:"True when the archive must be downloaded"`
	ID            string `json:"id,omitempty" example:"sparkle-1718000000000" doc:"Download id to use"`
	URL           string `json:"url,omitempty" doc:"Archive URL"`
	Dest          string `json:"dest,omitempty" doc:"Absolute destination path"`
}

// Resolver computes a Plan.
type Resolver struct {
	Dir        string
	Repository string
	Fetcher    AssetFetcher
	Platform   string
	Now        func() time.Time
	logger     logging.Logger
}

// DefaultDir is <user config dir>/make-your-life-easier.
func DefaultDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, appDirName)
}

// NewResolver creates a Resolver for the running platform.
func NewResolver(dir, repository string, fetcher AssetFetcher, logger logging.Logger) *Resolver {
	if dir == "" {
		dir = DefaultDir()
	}
	if repository == "" {
		repository = DefaultRepository
	}
	return &Resolver{
		Dir:        dir,
		Repository: repository,
		Fetcher:    fetcher,
		Platform:   runtime.GOOS,
		Now:        time.Now,
		logger:     logger,
	}
}

func (r *Resolver) newID() string {
	return fmt.Sprintf("sparkle-%d", r.Now().UnixMilli())
}

// existing returns the first Sparkle archive in the directory and its version, if any.
func (r *Resolver) existing() (file, ver string) {
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		return "", ""
	}
	for _, e := range entries {
		if e.IsDir() || !anyZip.MatchString(e.Name()) {
			continue
		}
		if m := versionedZip.FindStringSubmatch(e.Name()); m != nil {
			ver = m[1]
		}
		return e.Name(), ver
	}
	return "", ""
}

// Ensure resolves the Sparkle download plan. It never fails: lookup errors fall back
// to the pinned release.
func (r *Resolver) Ensure(ctx context.Context) Plan {
	if r.Platform != "windows" {
		return Plan{NeedsDownload: false}
	}

	if err := fsutil.EnsureDir(r.Dir); err != nil {
		r.logger.Warn("Failed to create Sparkle directory", "dir", r.Dir, "error", err)
	}

	existingFile, existingVersion := r.existing()
	hasExtracted := fsutil.Exists(filepath.Join(r.Dir, extractedDir))

	if existingFile == "" && hasExtracted {
		return Plan{NeedsDownload: false, ID: r.newID(), Dest: filepath.Join(r.Dir, placeholderZip)}
	}

	var latest *transport.LatestAsset
	if r.Fetcher != nil {
		asset, err := r.Fetcher.FetchLatestReleaseAsset(ctx, r.Repository, transport.WindowsZipPattern)
		if err != nil {
			r.logger.Warn("Failed to fetch latest Sparkle release", "error", err)
		} else {
			latest = asset
		}
	}

	plan := Plan{NeedsDownload: true, ID: r.newID()}
	var fileName string

	switch {
	case latest != nil && latest.Version != "" && latest.URL != "" && latest.FileName != "":
		plan.URL = latest.URL
		if existingVersion != "" && version.Compare(latest.Version, existingVersion) <= 0 {
			plan.NeedsDownload = false
			fileName = existingFile
		} else {
			fileName = latest.FileName
			if existingFile != "" {
				fsutil.TryRemoveFile(filepath.Join(r.Dir, existingFile))
				r.logger.Info("Removed outdated Sparkle archive", "file", existingFile, "latest", latest.Version)
			}
		}
	case existingFile != "":
		plan.NeedsDownload = false
		fileName = existingFile
	default:
		fileName = fallbackFile
		plan.URL = fallbackURL
	}

	plan.Dest = filepath.Join(r.Dir, fileName)
	return plan
}
