// Package updater checks the release feed, downloads the matching asset with
// retries, and hands off to the new build.
package updater

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/myle-app/myle/internal/downloads"
	"github.com/myle-app/myle/internal/events"
	"github.com/myle-app/myle/internal/fsutil"
	"github.com/myle-app/myle/internal/logging"
	"github.com/myle-app/myle/internal/metrics"
	"github.com/myle-app/myle/internal/transport"
	"github.com/myle-app/myle/internal/version"
)

// DefaultAppName is matched against release asset names.
const DefaultAppName = "make-your-life-easier"

const appReadyDelay = 8 * time.Second

type service struct {
	feed           Feed
	downloader     Downloader
	sink           EventSink
	selector       AssetSelector
	mode           InstallMode
	manifest       *ManifestStore
	handoff        *handoff
	cacheDir       string
	currentVersion string
	autoDownload   bool
	manualInstall  bool

	sleep         func(ctx context.Context, d time.Duration) error
	now           func() time.Time
	newBackOff    func() backoff.BackOff
	fallbackDelay time.Duration

	// State management
	mu             sync.RWMutex
	phase          Phase
	pending        *UpdateInfo
	asset          *transport.ReleaseAsset
	downloadedPath string
	retryCount     int
	lastError      string
	lastChecked    *time.Time
	cancelDownload context.CancelFunc
	attempt        uint64
	progress       progress

	// Disabled state
	enabled        bool
	disabledReason string

	// Splash handoff
	startupPending bool
	fallbackTimer  *time.Timer

	logger logging.Logger
}

// NewService creates a new updater service.
func NewService(opts *Options) (Service, error) {
	if opts.Feed == nil || opts.Downloader == nil || opts.Launcher == nil {
		return nil, errors.New("updater requires a feed, a downloader and a launcher")
	}
	logger := logging.GetLogger("updater")

	mode := opts.Mode
	if mode == "" {
		mode = DetectCurrentInstallMode()
	}
	platform := opts.Platform
	if platform == "" {
		platform = runtime.GOOS
	}
	appName := opts.AppName
	if appName == "" {
		appName = DefaultAppName
	}
	cacheDir := opts.CacheDir
	if cacheDir == "" {
		cacheDir = DefaultCacheDir()
	}
	if abs, err := filepath.Abs(cacheDir); err == nil {
		cacheDir = abs
	}
	userDataDir := opts.UserDataDir
	if userDataDir == "" {
		userDataDir = DefaultUserDataDir()
	}
	currentVersion := opts.CurrentVersion
	if currentVersion == "" {
		currentVersion = version.Version
	}
	var sink EventSink = opts.Sink
	if sink == nil {
		sink = nopSink{}
	}

	svc := &service{
		feed:           opts.Feed,
		downloader:     opts.Downloader,
		sink:           sink,
		selector:       AssetSelector{AppName: appName, Platform: platform},
		mode:           mode,
		manifest:       NewManifestStore(userDataDir, logger),
		cacheDir:       cacheDir,
		currentVersion: currentVersion,
		autoDownload:   opts.AutoDownload,
		manualInstall:  opts.ManualInstall,
		sleep:          sleepContext,
		now:            time.Now,
		newBackOff:     newRetryBackOff,
		fallbackDelay:  appReadyDelay,
		phase:          PhaseIdle,
		enabled:        !opts.Disabled,
		disabledReason: opts.DisabledReason,
		logger:         logger,
	}
	svc.handoff = &handoff{
		mode:     mode,
		launcher: opts.Launcher,
		quit:     opts.Quit,
		sleep:    func(ctx context.Context, d time.Duration) error { return svc.sleep(ctx, d) },
		tempDir:  os.TempDir(),
		now:      func() time.Time { return svc.now() },
		logger:   logger,
	}

	if opts.Disabled {
		logger.Warn("Update service disabled", "reason", opts.DisabledReason)
	}
	logger.Debug("Updater configured", "mode", mode, "platform", platform, "cache_dir", cacheDir)

	return svc, nil
}

type nopSink struct{}

func (nopSink) Publish(events.Event) {}

// newRetryBackOff doubles from 1s and never exceeds 5s. No jitter.
func newRetryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.MaxInterval = 5 * time.Second
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// IsEnabled returns whether the update service is operational.
func (s *service) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// DisabledReason returns why the update service is disabled.
// Returns empty string if the service is enabled.
func (s *service) DisabledReason() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.disabledReason
}

// SetDisabled toggles the updates-disabled switch.
func (s *service) SetDisabled(disabled bool, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled == !disabled && s.disabledReason == reason {
		return
	}
	s.enabled = !disabled
	s.disabledReason = reason
	if disabled {
		s.logger.Warn("Update service disabled", "reason", reason)
	} else {
		s.disabledReason = ""
		s.logger.Info("Update service enabled")
	}
}

func (s *service) disabledError() error {
	return newError(ErrCodeDisabled, s.DisabledReason(), nil)
}

// CheckForUpdates queries the release feed and compares it against the running version.
func (s *service) CheckForUpdates(ctx context.Context) (*UpdateInfo, error) {
	return s.check(ctx, s.autoDownload)
}

// ForceCheckForUpdates drops the previous result and checks again.
func (s *service) ForceCheckForUpdates(ctx context.Context) (*UpdateInfo, error) {
	if err := s.reset("force check"); err != nil {
		return nil, err
	}
	return s.check(ctx, s.autoDownload)
}

// RetryUpdate clears every derived field, including the retry counter, and checks again.
func (s *service) RetryUpdate(ctx context.Context) (*UpdateInfo, error) {
	if err := s.reset("retry"); err != nil {
		return nil, err
	}
	return s.check(ctx, s.autoDownload)
}

func (s *service) reset(reason string) error {
	if !s.IsEnabled() {
		return s.disabledError()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelDownload != nil || slices.Contains([]Phase{PhaseChecking, PhaseDownloading, PhaseInstalling}, s.phase) {
		return newError(ErrCodeInvalidState, fmt.Sprintf("cannot %s in state %s", reason, s.phase), nil)
	}

	s.logger.Debug("Resetting update state", "reason", reason, "from", s.phase)
	s.phase = PhaseIdle
	s.pending = nil
	s.asset = nil
	s.downloadedPath = ""
	s.retryCount = 0
	s.lastError = ""
	s.progress = progress{}
	return nil
}

var checkablePhases = []Phase{PhaseIdle, PhaseAvailable, PhaseNotAvailable, PhaseError}

func (s *service) check(ctx context.Context, autoDownload bool) (*UpdateInfo, error) {
	if !s.IsEnabled() {
		// The splash surface still has to hand over.
		s.continueStartup()
		return nil, s.disabledError()
	}

	s.mu.Lock()
	if s.cancelDownload != nil || !slices.Contains(checkablePhases, s.phase) {
		phase := s.phase
		s.mu.Unlock()
		return nil, newError(ErrCodeInvalidState, fmt.Sprintf("cannot check for updates in state %s", phase), nil)
	}
	s.phase = PhaseChecking
	s.lastError = ""
	s.mu.Unlock()
	s.publish(events.UpdateStatusEvent{Status: string(PhaseChecking), Message: "Checking for updates..."})

	release, err := s.feed.Latest(ctx)

	now := s.now()
	s.mu.Lock()
	s.lastChecked = &now
	s.mu.Unlock()

	if err != nil {
		metrics.RecordUpdateCheck(metrics.CheckFailed)
		s.logger.Warn("Update check failed", "error", err)
		s.setError(err)
		if !s.continueStartup() {
			s.publishError(err, "")
		}
		return nil, newError(ErrCodeCheckFailed, "failed to check for updates", err)
	}

	info := &UpdateInfo{
		CurrentVersion: s.currentVersion,
		Version:        release.Version(),
		ReleaseName:    release.Name,
		ReleaseNotes:   release.Body,
		ReleaseURL:     release.HTMLURL,
	}

	if !version.IsNewer(info.Version, s.currentVersion) {
		metrics.RecordUpdateCheck(metrics.CheckNotAvailable)
		s.mu.Lock()
		s.phase = PhaseNotAvailable
		s.pending = nil
		s.asset = nil
		s.mu.Unlock()

		s.logger.Info("No update available", "current", s.currentVersion, "latest", info.Version)
		s.publish(events.UpdateStatusEvent{
			Status:  string(PhaseNotAvailable),
			Message: "You are running the latest version",
			Version: s.currentVersion,
		})
		s.continueStartup()
		return info, nil
	}

	info.UpdateAvailable = true
	asset, found := s.selector.Select(s.mode, release.Assets)
	if found {
		info.AssetName = asset.Name
		info.AssetSize = asset.Size
		info.Size = FormatBytes(asset.Size)
	}

	s.mu.Lock()
	s.phase = PhaseAvailable
	s.pending = info
	s.asset = nil
	if found {
		s.asset = &asset
	}
	s.mu.Unlock()

	metrics.RecordUpdateCheck(metrics.CheckAvailable)
	s.logger.Info("Update available", "current", s.currentVersion, "latest", info.Version, "asset", info.AssetName)

	message := fmt.Sprintf("New version available: v%s", info.Version)
	if info.ReleaseName != "" {
		message = fmt.Sprintf("%s (v%s)", info.ReleaseName, info.Version)
	}
	s.publish(events.UpdateStatusEvent{
		Status:       string(PhaseAvailable),
		Message:      message,
		Version:      info.Version,
		ReleaseName:  info.ReleaseName,
		ReleaseNotes: info.ReleaseNotes,
		ReleaseURL:   info.ReleaseURL,
		Size:         info.Size,
	})

	if autoDownload {
		go func() {
			if err := s.DownloadUpdate(context.Background()); err != nil {
				s.logger.Warn("Automatic update download failed", "error", err)
			}
		}()
	}

	out := *info
	return &out, nil
}

// DownloadUpdate downloads the asset picked by the last check, checking first when idle.
// Transient network failures are retried up to MaxRetries times.
func (s *service) DownloadUpdate(ctx context.Context) error {
	if !s.IsEnabled() {
		return s.disabledError()
	}

	if phase := s.getPhase(); phase == PhaseIdle || phase == PhaseNotAvailable || phase == PhaseError {
		info, err := s.check(ctx, false)
		if err != nil {
			return err
		}
		if !info.UpdateAvailable {
			return newError(ErrCodeNoUpdate, "no update available", nil)
		}
	}

	dlCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.phase != PhaseAvailable || s.pending == nil {
		phase := s.phase
		s.mu.Unlock()
		return newError(ErrCodeInvalidState, fmt.Sprintf("cannot download update in state %s", phase), nil)
	}
	info := *s.pending
	if s.asset == nil {
		s.phase = PhaseError
		s.lastError = "no matching release asset"
		s.mu.Unlock()

		s.logger.Warn("No release asset matches this installation", "mode", s.mode, "version", info.Version)
		s.publish(events.UpdateStatusEvent{
			Status:     string(PhaseError),
			Message:    "No suitable download found for this installation. Please download the update manually.",
			Version:    info.Version,
			ReleaseURL: info.ReleaseURL,
		})
		return newError(ErrCodeAssetNotFound, "no matching release asset", nil)
	}
	asset := *s.asset
	s.phase = PhaseDownloading
	s.cancelDownload = cancel
	s.attempt++
	attempt := s.attempt
	s.mu.Unlock()

	return s.downloadWithRetry(dlCtx, attempt, info, asset)
}

// ownsLocked reports whether attempt is still the download CancelUpdate would stop.
// A cancelled attempt must not touch state that a later download now holds.
func (s *service) ownsLocked(attempt uint64) bool {
	return s.cancelDownload != nil && s.attempt == attempt
}

func (s *service) downloadWithRetry(ctx context.Context, owner uint64, info UpdateInfo, asset transport.ReleaseAsset) error {
	bo := s.newBackOff()

	for {
		res, err := s.downloadOnce(ctx, owner, asset)
		if err == nil {
			return s.completeDownload(ctx, owner, info, res)
		}
		if ctx.Err() != nil || errors.Is(err, downloads.ErrCancelled) {
			s.logger.Info("Update download cancelled")
			s.downloadCancelled(owner)
			return newError(ErrCodeDownloadFailed, "download cancelled", err)
		}

		s.mu.Lock()
		if !s.ownsLocked(owner) {
			s.mu.Unlock()
			return newError(ErrCodeDownloadFailed, "download cancelled", err)
		}
		retry := transport.IsTransient(err) && s.retryCount < MaxRetries
		if retry {
			s.retryCount++
			s.phase = PhaseError
			s.lastError = err.Error()
		}
		attempt := s.retryCount
		s.mu.Unlock()

		if !retry {
			s.logger.Error("Update download failed", "error", err)
			if s.abortDownload(ctx, owner, err) {
				s.publishError(err, info.ReleaseURL)
			}
			return newError(ErrCodeDownloadFailed, "failed to download update", err)
		}

		delay := bo.NextBackOff()
		retryIn := int(math.Ceil(delay.Seconds()))
		metrics.RecordUpdateRetry()
		s.logger.Warn("Transient download error, retrying", "error", err, "attempt", attempt, "delay", delay)
		s.publish(events.UpdateStatusEvent{
			Status:  string(PhaseError),
			Message: fmt.Sprintf("Network error. Retrying in %ds... (attempt %d/%d)", retryIn, attempt, MaxRetries),
			RetryIn: retryIn,
			Attempt: attempt,
		})

		if err := s.sleep(ctx, delay); err != nil {
			s.logger.Info("Update download cancelled during backoff")
			s.downloadCancelled(owner)
			return newError(ErrCodeDownloadFailed, "download cancelled", err)
		}

		release, err := s.feed.Latest(ctx)
		if err != nil {
			s.logger.Error("Update check failed during retry", "error", err)
			if s.abortDownload(ctx, owner, err) {
				s.publishError(err, info.ReleaseURL)
			}
			return newError(ErrCodeCheckFailed, "failed to check for updates", err)
		}
		next, found := s.selector.Select(s.mode, release.Assets)
		if !found {
			notFound := errors.New("no matching release asset")
			if s.abortDownload(ctx, owner, notFound) {
				s.publishError(notFound, info.ReleaseURL)
			}
			return newError(ErrCodeAssetNotFound, "no matching release asset", nil)
		}
		asset = next

		if !s.resumeAttempt(ctx, owner) {
			s.downloadCancelled(owner)
			return newError(ErrCodeDownloadFailed, "download cancelled", ctx.Err())
		}
	}
}

// resumeAttempt moves a retrying download back to downloading if it still owns the job.
func (s *service) resumeAttempt(ctx context.Context, owner uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil || !s.ownsLocked(owner) || s.phase != PhaseError {
		return false
	}
	s.logger.Debug("State transition", "from", s.phase, "to", PhaseDownloading)
	s.phase = PhaseDownloading
	s.lastError = ""
	return true
}

func (s *service) downloadOnce(ctx context.Context, owner uint64, asset transport.ReleaseAsset) (downloads.Result, error) {
	s.mu.Lock()
	if !s.ownsLocked(owner) {
		s.mu.Unlock()
		return downloads.Result{}, downloads.ErrCancelled
	}
	s.progress.reset(s.now())
	s.mu.Unlock()

	res, err := s.downloader.Download(ctx, downloads.Request{
		ID:         UpdateDownloadID,
		URL:        asset.BrowserDownloadURL,
		Dest:       filepath.Join(s.cacheDir, "pending", fsutil.SanitizeFilename(asset.Name)),
		OnProgress: s.onProgress,
	})
	if err == nil && res.Size == 0 {
		fsutil.TryRemoveFile(res.Path)
		return downloads.Result{}, errors.New("downloaded file is empty")
	}
	return res, err
}

func (s *service) onProgress(received, total int64) {
	s.mu.Lock()
	sample := s.progress.sample(s.now(), received, total)
	s.mu.Unlock()
	if !sample.ShouldEmit {
		return
	}

	ev := events.UpdateStatusEvent{
		Status:     string(PhaseDownloading),
		Speed:      FormatBytes(int64(sample.Speed)) + "/s",
		ETA:        FormatETA(sample.ETA),
		Downloaded: FormatBytes(received),
	}
	if total > 0 {
		ev.Percent = math.Round(sample.Percent*100) / 100
		ev.Total = FormatBytes(total)
		ev.Message = fmt.Sprintf("Downloading update: %d%%", int(math.Round(sample.Percent)))
	} else {
		ev.Message = "Downloading update: " + FormatBytes(received)
	}
	s.publish(ev)
}

// abortDownload moves to error unless ctx was cancelled by CancelUpdate.
// It returns false when the cancellation won.
func (s *service) abortDownload(ctx context.Context, owner uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ownsLocked(owner) {
		return false
	}
	s.retryCount = 0
	s.cancelDownload = nil
	if ctx.Err() != nil {
		s.phase = PhaseAvailable
		return false
	}
	s.phase = PhaseError
	s.lastError = err.Error()
	return true
}

// downloadCancelled returns to available when the caller's context ended the
// download. A CancelUpdate call has already done so.
func (s *service) downloadCancelled(owner uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ownsLocked(owner) {
		return
	}
	s.cancelDownload = nil
	s.retryCount = 0
	s.phase = PhaseAvailable
}

func (s *service) completeDownload(ctx context.Context, owner uint64, info UpdateInfo, res downloads.Result) error {
	s.mu.Lock()
	if ctx.Err() != nil || !s.ownsLocked(owner) {
		s.mu.Unlock()
		s.downloadCancelled(owner)
		fsutil.TryRemoveFile(res.Path)
		return newError(ErrCodeDownloadFailed, "download cancelled", ctx.Err())
	}
	s.cancelDownload = nil
	s.phase = PhaseDownloaded
	s.downloadedPath = res.Path
	s.retryCount = 0
	s.lastError = ""
	s.mu.Unlock()

	s.downloader.Keep(res.Path)
	s.logger.Info("Update downloaded", "version", info.Version, "path", res.Path, "bytes", res.Size)

	message := fmt.Sprintf("v%s downloaded.", info.Version)
	if info.ReleaseName != "" {
		message = fmt.Sprintf("%s (v%s) downloaded.", info.ReleaseName, info.Version)
	}
	s.publish(events.UpdateStatusEvent{
		Status:      string(PhaseDownloaded),
		Message:     message,
		Version:     info.Version,
		ReleaseName: info.ReleaseName,
	})

	if err := s.manifest.Save(Manifest{
		Version:      info.Version,
		ReleaseName:  info.ReleaseName,
		ReleaseNotes: info.ReleaseNotes,
		Timestamp:    s.now().UnixMilli(),
	}); err != nil {
		s.logger.Warn("Failed to persist update info", "error", err)
	}

	if !s.manualInstall {
		go func() {
			if err := s.InstallUpdate(context.Background()); err != nil {
				s.logger.Error("Failed to install update automatically", "error", err)
			}
		}()
	}
	return nil
}

// InstallUpdate launches the downloaded artifact and quits the application.
func (s *service) InstallUpdate(ctx context.Context) error {
	if !s.IsEnabled() {
		return s.disabledError()
	}

	s.mu.Lock()
	if s.phase != PhaseDownloaded || s.downloadedPath == "" {
		s.mu.Unlock()
		return newError(ErrCodeInvalidState, "No update downloaded", nil)
	}
	s.phase = PhaseInstalling
	path := s.downloadedPath
	s.mu.Unlock()

	s.publish(events.UpdateStatusEvent{Status: string(PhaseInstalling), Message: "Installing update..."})

	if err := s.handoff.run(ctx, path); err != nil {
		s.logger.Error("Failed to install update", "error", err)
		s.setError(err)
		s.publishError(fmt.Errorf("failed to install update: %w", err), "")
		return newError(ErrCodeInstallFailed, "failed to install update", err)
	}
	return nil
}

// CancelUpdate aborts the running download and returns to available.
func (s *service) CancelUpdate(_ context.Context) error {
	s.mu.Lock()
	cancel := s.cancelDownload
	if cancel == nil {
		s.mu.Unlock()
		return newError(ErrCodeNotDownloading, "no update download in progress", nil)
	}
	s.cancelDownload = nil
	s.phase = PhaseAvailable
	s.retryCount = 0
	s.lastError = ""
	s.mu.Unlock()

	cancel()
	s.downloader.Cancel(UpdateDownloadID)

	s.logger.Info("Update download cancelled by user")
	s.publish(events.UpdateStatusEvent{Status: string(PhaseAvailable), Message: "Update download cancelled"})
	return nil
}

// GetState returns a snapshot of the update state.
func (s *service) GetState() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := &State{
		Phase:            s.phase,
		CurrentVersion:   s.currentVersion,
		UpdateAvailable:  s.pending != nil,
		UpdateDownloaded: s.downloadedPath != "" && (s.phase == PhaseDownloaded || s.phase == PhaseInstalling),
		RetryCount:       s.retryCount,
		MaxRetries:       MaxRetries,
		Error:            s.lastError,
		LastChecked:      s.lastChecked,
		InstallMode:      s.mode,
		Enabled:          s.enabled,
		DisabledReason:   s.disabledReason,
	}
	if s.pending != nil {
		info := *s.pending
		state.PendingInfo = &info
	}
	return state
}

// BeginStartup marks the splash surface as waiting for AppReady.
func (s *service) BeginStartup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startupPending = true
}

// continueStartup moves the splash surface on when a startup check ends without an
// update, and arms the fallback that publishes app-ready if the main window never does.
func (s *service) continueStartup() bool {
	s.mu.Lock()
	if !s.startupPending || s.fallbackTimer != nil {
		s.mu.Unlock()
		return false
	}
	s.fallbackTimer = time.AfterFunc(s.fallbackDelay, s.appReadyTimeout)
	s.mu.Unlock()

	s.publish(events.UpdateStatusEvent{
		Status:  string(PhaseDownloading),
		Message: "Initializing application...",
		Percent: 10,
	})
	return true
}

func (s *service) appReadyTimeout() {
	s.mu.Lock()
	if !s.startupPending {
		s.mu.Unlock()
		return
	}
	s.startupPending = false
	s.fallbackTimer = nil
	s.mu.Unlock()

	s.logger.Warn("App ready signal timeout - showing window anyway")
	s.publishLaunching()
	s.sink.Publish(events.AppReadyEvent{
		Fallback:  true,
		Timestamp: s.now().Format(time.RFC3339),
	})
}

// AppReady completes the splash handoff and cancels the fallback timer.
func (s *service) AppReady(width, height int) {
	s.mu.Lock()
	if s.fallbackTimer != nil {
		s.fallbackTimer.Stop()
		s.fallbackTimer = nil
	}
	s.startupPending = false
	s.mu.Unlock()

	s.logger.Info("Application ready signal received", "width", width, "height", height)
	s.publishLaunching()
	s.sink.Publish(events.AppReadyEvent{
		Width:     width,
		Height:    height,
		Timestamp: s.now().Format(time.RFC3339),
	})
}

func (s *service) publishLaunching() {
	s.publish(events.UpdateStatusEvent{
		Status:  string(PhaseDownloading),
		Message: "Launching application...",
		Percent: 100,
	})
}

// SaveUpdateInfo persists the post-update manifest.
func (s *service) SaveUpdateInfo(m Manifest) error {
	return s.manifest.Save(m)
}

// GetUpdateInfo consumes the post-update manifest.
func (s *service) GetUpdateInfo() (*Manifest, error) {
	m, err := s.manifest.Consume()
	if errors.Is(err, ErrNoManifest) {
		return nil, newError(ErrCodeNoUpdateInfo, ErrNoManifest.Error(), nil)
	}
	return m, err
}

func (s *service) publish(ev events.UpdateStatusEvent) {
	s.sink.Publish(ev)
}

func (s *service) publishError(err error, releaseURL string) {
	s.publish(events.UpdateStatusEvent{
		Status:     string(PhaseError),
		Message:    "Update error: " + err.Error(),
		ReleaseURL: releaseURL,
	})
}

func (s *service) getPhase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

func (s *service) setError(err error) {
	s.mu.Lock()
	s.lastError = err.Error()
	s.phase = PhaseError
	s.mu.Unlock()
}
