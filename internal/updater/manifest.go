package updater

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/myle-app/myle/internal/fsutil"
	"github.com/myle-app/myle/internal/logging"
)

const manifestFilename = "update-info.json"

// ErrNoManifest is returned when no post-update manifest exists.
var ErrNoManifest = errors.New("No update info")

// Manifest is the record a relaunched process reads to show the changelog.
type Manifest struct {
	Version      string `json:"version"`
	ReleaseName  string `json:"releaseName,omitempty"`
	ReleaseNotes string `json:"releaseNotes,omitempty"`
	Timestamp    int64  `json:"timestamp"`
}

// ManifestStore keeps the manifest at a per-user path and, on Windows, a
// machine-wide copy that elevated relaunches can read.
type ManifestStore struct {
	mu        sync.Mutex
	primary   string
	secondary string
	logger    logging.Logger
}

// NewManifestStore creates a store rooted at userDataDir.
func NewManifestStore(userDataDir string, logger logging.Logger) *ManifestStore {
	s := &ManifestStore{
		primary: filepath.Join(userDataDir, manifestFilename),
		logger:  logger,
	}
	if runtime.GOOS == "windows" {
		programData := os.Getenv("PROGRAMDATA")
		if programData == "" {
			programData = `C:\ProgramData`
		}
		s.secondary = filepath.Join(programData, "MakeYourLifeEasier", manifestFilename)
	}
	return s
}

// Paths returns the primary and secondary locations; secondary may be empty.
func (s *ManifestStore) Paths() (string, string) {
	return s.primary, s.secondary
}

// Save writes m to both locations. Only a primary write failure is returned.
func (s *ManifestStore) Save(m Manifest) error {
	if m.Timestamp == 0 {
		m.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal update info: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fsutil.EnsureDir(filepath.Dir(s.primary)); err != nil {
		return fmt.Errorf("failed to create update info directory: %w", err)
	}
	if err := os.WriteFile(s.primary, data, 0o644); err != nil {
		return fmt.Errorf("failed to write update info: %w", err)
	}

	if s.secondary != "" {
		if err := fsutil.EnsureDir(filepath.Dir(s.secondary)); err == nil {
			err = os.WriteFile(s.secondary, data, 0o644)
			if err != nil {
				s.logger.Warn("Failed to write secondary update info", "path", s.secondary, "error", err)
			}
		} else {
			s.logger.Warn("Failed to create secondary update info directory", "error", err)
		}
	}

	s.logger.Info("Update info saved", "version", m.Version, "path", s.primary)
	return nil
}

// Consume reads the manifest and deletes every copy. A second call returns ErrNoManifest.
func (s *ManifestStore) Consume() (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var path string
	switch {
	case fsutil.Exists(s.primary):
		path = s.primary
	case s.secondary != "" && fsutil.Exists(s.secondary):
		path = s.secondary
	default:
		return nil, ErrNoManifest
	}

	data, err := os.ReadFile(path)
	fsutil.TryRemoveFile(s.primary)
	if s.secondary != "" {
		fsutil.TryRemoveFile(s.secondary)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read update info: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse update info: %w", err)
	}
	return &m, nil
}
