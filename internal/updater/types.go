package updater

import (
	"context"
	"time"

	"github.com/myle-app/myle/internal/downloads"
	"github.com/myle-app/myle/internal/events"
	"github.com/myle-app/myle/internal/transport"
)

// Phase is the current step of the update cycle.
type Phase string

// Update phases.
const (
	PhaseIdle         Phase = "idle"
	PhaseChecking     Phase = "checking"
	PhaseAvailable    Phase = "available"
	PhaseNotAvailable Phase = "not-available"
	PhaseDownloading  Phase = "downloading"
	PhaseDownloaded   Phase = "downloaded"
	PhaseInstalling   Phase = "installing"
	PhaseError        Phase = "error"
)

// MaxRetries bounds automatic retries of a failed update download.
const MaxRetries = 3

// UpdateDownloadID is the download engine id used for update artifacts.
const UpdateDownloadID = "app-update"

// Service defines the interface for update operations.
type Service interface {
	// CheckForUpdates queries the release feed. Failures are not retried.
	CheckForUpdates(ctx context.Context) (*UpdateInfo, error)

	// ForceCheckForUpdates discards any previous result and checks again.
	ForceCheckForUpdates(ctx context.Context) (*UpdateInfo, error)

	// DownloadUpdate downloads the selected asset, retrying transient failures.
	DownloadUpdate(ctx context.Context) error

	// InstallUpdate hands off to the downloaded artifact and quits.
	InstallUpdate(ctx context.Context) error

	// CancelUpdate aborts an in-progress download.
	CancelUpdate(ctx context.Context) error

	// RetryUpdate resets all state and checks again.
	RetryUpdate(ctx context.Context) (*UpdateInfo, error)

	// GetState returns a snapshot of the update state.
	GetState() *State

	// BeginStartup marks the splash handoff as pending.
	BeginStartup()

	// AppReady completes the splash handoff.
	AppReady(width, height int)

	// SaveUpdateInfo persists the post-update changelog manifest.
	SaveUpdateInfo(m Manifest) error

	// GetUpdateInfo returns the manifest once and deletes it.
	GetUpdateInfo() (*Manifest, error)

	// IsEnabled returns whether the update service is enabled.
	IsEnabled() bool

	// DisabledReason returns why the service is disabled, empty if enabled.
	DisabledReason() string

	// SetDisabled toggles the updates-disabled switch at runtime.
	SetDisabled(disabled bool, reason string)
}

// UpdateInfo describes an available release.
type UpdateInfo struct {
	CurrentVersion  string `json:"currentVersion"`
	Version         string `json:"version"`
	ReleaseName     string `json:"releaseName,omitempty"`
	ReleaseNotes    string `json:"releaseNotes,omitempty"`
	ReleaseURL      string `json:"releaseUrl,omitempty"`
	AssetName       string `json:"assetName,omitempty"`
	AssetSize       int64  `json:"assetSize,omitempty"`
	Size            string `json:"size,omitempty"`
	UpdateAvailable bool   `json:"updateAvailable"`
}

// State is a read-only snapshot of the updater.
type State struct {
	Phase            Phase       `json:"phase"`
	CurrentVersion   string      `json:"currentVersion"`
	UpdateAvailable  bool        `json:"updateAvailable"`
	UpdateDownloaded bool        `json:"updateDownloaded"`
	PendingInfo      *UpdateInfo `json:"pendingUpdateInfo,omitempty"`
	RetryCount       int         `json:"retryCount"`
	MaxRetries       int         `json:"maxRetries"`
	Error            string      `json:"error,omitempty"`
	LastChecked      *time.Time  `json:"lastChecked,omitempty"`
	InstallMode      InstallMode `json:"installMode"`
	Enabled          bool        `json:"enabled"`
	DisabledReason   string      `json:"disabledReason,omitempty"`
}

// Feed returns the newest release.
type Feed interface {
	Latest(ctx context.Context) (*transport.Release, error)
}

// Downloader is the subset of the download engine the updater drives.
type Downloader interface {
	Download(ctx context.Context, req downloads.Request) (downloads.Result, error)
	Cancel(id string)
	Keep(path string)
}

// Launcher starts the downloaded artifact.
type Launcher interface {
	Launch(path string, args ...string) error
}

// EventSink receives update-status and app-ready events.
type EventSink interface {
	Publish(ev events.Event)
}

// Options contains configuration for the updater service.
type Options struct {
	CurrentVersion string
	Feed           Feed
	Downloader     Downloader
	Sink           EventSink
	Launcher       Launcher
	// Quit is called after a successful install handoff.
	Quit func()

	// Mode overrides installation mode detection when non-empty.
	Mode        InstallMode
	AppName     string
	Platform    string
	CacheDir    string
	UserDataDir string

	AutoDownload bool
	// ManualInstall leaves a downloaded update in place until InstallUpdate is called.
	ManualInstall bool

	Disabled       bool
	DisabledReason string
}
