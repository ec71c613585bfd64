package updater

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/myle-app/myle/internal/downloads"
	"github.com/myle-app/myle/internal/events"
	"github.com/myle-app/myle/internal/transport"
)

type fakeFeed struct {
	mu      sync.Mutex
	release *transport.Release
	err     error
	calls   int

	// hold, when set, parks the second call until it is closed. holding is
	// closed once that call is parked.
	hold    chan struct{}
	holding chan struct{}
}

func (f *fakeFeed) Latest(_ context.Context) (*transport.Release, error) {
	f.mu.Lock()
	f.calls++
	if f.hold != nil && f.calls == 2 {
		hold := f.hold
		close(f.holding)
		f.mu.Unlock()
		<-hold
		f.mu.Lock()
	}
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	rel := *f.release
	return &rel, nil
}

func (f *fakeFeed) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeDownloader returns the queued errors in order, then writes payload to the destination.
type fakeDownloader struct {
	mu       sync.Mutex
	errs     []error
	payload  []byte
	block    bool
	started  chan struct{}
	calls    int
	requests []downloads.Request
	kept     []string
	canceled []string
}

func (d *fakeDownloader) Download(ctx context.Context, req downloads.Request) (downloads.Result, error) {
	d.mu.Lock()
	d.calls++
	d.requests = append(d.requests, req)
	var err error
	if len(d.errs) > 0 {
		err, d.errs = d.errs[0], d.errs[1:]
	}
	block := d.block
	d.mu.Unlock()

	if block {
		if d.started != nil {
			close(d.started)
		}
		<-ctx.Done()
		return downloads.Result{}, downloads.ErrCancelled
	}
	if err != nil {
		return downloads.Result{}, err
	}

	if req.OnProgress != nil {
		req.OnProgress(int64(len(d.payload))/2, int64(len(d.payload)))
		req.OnProgress(int64(len(d.payload)), int64(len(d.payload)))
	}
	if err := os.MkdirAll(filepath.Dir(req.Dest), 0o755); err != nil {
		return downloads.Result{}, err
	}
	if err := os.WriteFile(req.Dest, d.payload, 0o644); err != nil {
		return downloads.Result{}, err
	}
	return downloads.Result{Path: req.Dest, Size: int64(len(d.payload))}, nil
}

func (d *fakeDownloader) Cancel(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.canceled = append(d.canceled, id)
}

func (d *fakeDownloader) Keep(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kept = append(d.kept, path)
}

func (d *fakeDownloader) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type fakeLauncher struct {
	mu    sync.Mutex
	path  string
	args  []string
	err   error
	calls int
}

func (l *fakeLauncher) Launch(path string, args ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	l.path = path
	l.args = args
	return l.err
}

type statusRecorder struct {
	mu       sync.Mutex
	statuses []events.UpdateStatusEvent
	ready    chan events.AppReadyEvent
}

func newStatusRecorder() *statusRecorder {
	return &statusRecorder{ready: make(chan events.AppReadyEvent, 4)}
}

func (r *statusRecorder) Publish(ev events.Event) {
	switch e := ev.(type) {
	case events.UpdateStatusEvent:
		r.mu.Lock()
		r.statuses = append(r.statuses, e)
		r.mu.Unlock()
	case events.AppReadyEvent:
		r.ready <- e
	}
}

func (r *statusRecorder) Statuses() []events.UpdateStatusEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.statuses)
}

func (r *statusRecorder) find(status, message string) bool {
	for _, s := range r.Statuses() {
		if s.Status == status && s.Message == message {
			return true
		}
	}
	return false
}

type testEnv struct {
	svc      *service
	feed     *fakeFeed
	dl       *fakeDownloader
	launcher *fakeLauncher
	sink     *statusRecorder
	sleeps   []time.Duration
	quit     int
}

func newRelease(tag string, assets ...string) *transport.Release {
	rel := &transport.Release{
		TagName: tag,
		Name:    "Spring release",
		Body:    "Bug fixes",
		HTMLURL: "https://github.com/owner/repo/releases/tag/" + tag,
	}
	for _, name := range assets {
		rel.Assets = append(rel.Assets, transport.ReleaseAsset{
			Name:               name,
			BrowserDownloadURL: "https://example.com/download/" + name,
			Size:               4096,
		})
	}
	return rel
}

func newTestEnv(t *testing.T, mode InstallMode, release *transport.Release) *testEnv {
	t.Helper()

	env := &testEnv{
		feed:     &fakeFeed{release: release},
		dl:       &fakeDownloader{payload: []byte("installer bytes")},
		launcher: &fakeLauncher{},
		sink:     newStatusRecorder(),
	}

	svc, err := NewService(&Options{
		CurrentVersion: "1.0.0",
		Feed:           env.feed,
		Downloader:     env.dl,
		Sink:           env.sink,
		Launcher:       env.launcher,
		Quit:           func() { env.quit++ },
		Mode:           mode,
		AppName:        "MakeYourLifeEasier",
		Platform:       "windows",
		CacheDir:       t.TempDir(),
		UserDataDir:    t.TempDir(),
		ManualInstall:  true,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	env.svc = svc.(*service)
	env.svc.sleep = func(_ context.Context, d time.Duration) error {
		env.sleeps = append(env.sleeps, d)
		return nil
	}
	env.svc.handoff.tempDir = t.TempDir()
	return env
}

func TestNewService_RequiresDependencies(t *testing.T) {
	if _, err := NewService(&Options{}); err == nil {
		t.Fatal("expected error without feed and downloader")
	}
}

func TestCheckForUpdates_Available(t *testing.T) {
	env := newTestEnv(t, ModePortable, newRelease("v1.2.0", "MakeYourLifeEasier-Setup-1.2.0.exe", "MakeYourLifeEasier-portable-1.2.0.exe"))

	info, err := env.svc.CheckForUpdates(context.Background())
	if err != nil {
		t.Fatalf("CheckForUpdates failed: %v", err)
	}
	if !info.UpdateAvailable || info.Version != "1.2.0" {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.AssetName != "MakeYourLifeEasier-portable-1.2.0.exe" {
		t.Errorf("AssetName = %q", info.AssetName)
	}
	if info.Size != "4 KB" {
		t.Errorf("Size = %q, want 4 KB", info.Size)
	}

	state := env.svc.GetState()
	if state.Phase != PhaseAvailable || !state.UpdateAvailable || state.LastChecked == nil {
		t.Errorf("unexpected state: %+v", state)
	}
	if !env.sink.find("checking", "Checking for updates...") {
		t.Error("missing checking status")
	}
	if !env.sink.find("available", "Spring release (v1.2.0)") {
		t.Errorf("missing available status: %+v", env.sink.Statuses())
	}
}

func TestCheckForUpdates_NotAvailable(t *testing.T) {
	env := newTestEnv(t, ModePortable, newRelease("v1.0.0", "MakeYourLifeEasier-portable-1.0.0.exe"))

	info, err := env.svc.CheckForUpdates(context.Background())
	if err != nil {
		t.Fatalf("CheckForUpdates failed: %v", err)
	}
	if info.UpdateAvailable {
		t.Error("expected no update")
	}
	if env.svc.GetState().Phase != PhaseNotAvailable {
		t.Errorf("phase = %s", env.svc.GetState().Phase)
	}
}

func TestCheckForUpdates_FailureIsNotRetried(t *testing.T) {
	env := newTestEnv(t, ModePortable, nil)
	env.feed.err = io.ErrUnexpectedEOF

	_, err := env.svc.CheckForUpdates(context.Background())
	if CodeOf(err) != ErrCodeCheckFailed {
		t.Fatalf("expected CHECK_FAILED, got %v", err)
	}
	if env.feed.Calls() != 1 {
		t.Errorf("feed called %d times, want 1", env.feed.Calls())
	}
	if len(env.sleeps) != 0 {
		t.Errorf("unexpected backoff sleeps: %v", env.sleeps)
	}
	state := env.svc.GetState()
	if state.Phase != PhaseError || state.Error == "" {
		t.Errorf("unexpected state: %+v", state)
	}
}

func TestCheckForUpdates_InvalidStateWhileDownloaded(t *testing.T) {
	env := newTestEnv(t, ModePortable, newRelease("v1.2.0", "MakeYourLifeEasier-portable-1.2.0.exe"))
	if err := env.svc.DownloadUpdate(context.Background()); err != nil {
		t.Fatalf("DownloadUpdate failed: %v", err)
	}

	_, err := env.svc.CheckForUpdates(context.Background())
	if CodeOf(err) != ErrCodeInvalidState {
		t.Errorf("expected INVALID_STATE, got %v", err)
	}
}

func TestDownloadUpdate_Success(t *testing.T) {
	env := newTestEnv(t, ModePortable, newRelease("v1.2.0", "MakeYourLifeEasier-portable-1.2.0.exe"))

	if err := env.svc.DownloadUpdate(context.Background()); err != nil {
		t.Fatalf("DownloadUpdate failed: %v", err)
	}

	state := env.svc.GetState()
	if state.Phase != PhaseDownloaded || !state.UpdateDownloaded {
		t.Fatalf("unexpected state: %+v", state)
	}

	req := env.dl.requests[0]
	if req.ID != UpdateDownloadID {
		t.Errorf("download id = %q", req.ID)
	}
	if !filepath.IsAbs(req.Dest) || filepath.Base(req.Dest) != "MakeYourLifeEasier-portable-1.2.0.exe" {
		t.Errorf("unexpected destination %q", req.Dest)
	}
	if len(env.dl.kept) != 1 || env.dl.kept[0] != req.Dest {
		t.Errorf("downloaded artifact not kept: %v", env.dl.kept)
	}

	if !env.sink.find("downloaded", "Spring release (v1.2.0) downloaded.") {
		t.Errorf("missing downloaded status: %+v", env.sink.Statuses())
	}
	var sawProgress bool
	for _, s := range env.sink.Statuses() {
		if s.Status == "downloading" && s.Message == "Downloading update: 100%" {
			sawProgress = true
			if s.Total == "" || s.Speed == "" || s.ETA == "" {
				t.Errorf("incomplete progress status: %+v", s)
			}
		}
	}
	if !sawProgress {
		t.Error("missing final progress status")
	}

	m, err := env.svc.GetUpdateInfo()
	if err != nil {
		t.Fatalf("GetUpdateInfo failed: %v", err)
	}
	if m.Version != "1.2.0" || m.ReleaseName != "Spring release" || m.ReleaseNotes != "Bug fixes" {
		t.Errorf("unexpected manifest: %+v", m)
	}
	if _, err := env.svc.GetUpdateInfo(); CodeOf(err) != ErrCodeNoUpdateInfo {
		t.Errorf("expected NO_UPDATE_INFO on second read, got %v", err)
	}
}

func TestDownloadUpdate_RetriesTransientErrors(t *testing.T) {
	env := newTestEnv(t, ModePortable, newRelease("v1.2.0", "MakeYourLifeEasier-portable-1.2.0.exe"))
	env.dl.errs = []error{downloads.ErrIncomplete, downloads.ErrIncomplete, downloads.ErrIncomplete}

	if err := env.svc.DownloadUpdate(context.Background()); err != nil {
		t.Fatalf("DownloadUpdate failed: %v", err)
	}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if !slices.Equal(env.sleeps, want) {
		t.Errorf("sleeps = %v, want %v", env.sleeps, want)
	}
	if env.dl.Calls() != 4 {
		t.Errorf("download attempts = %d, want 4", env.dl.Calls())
	}
	// initial check plus one re-query per retry
	if env.feed.Calls() != 4 {
		t.Errorf("feed calls = %d, want 4", env.feed.Calls())
	}

	state := env.svc.GetState()
	if state.Phase != PhaseDownloaded || state.RetryCount != 0 {
		t.Errorf("unexpected state: %+v", state)
	}

	var attempts []int
	for _, s := range env.sink.Statuses() {
		if s.Attempt > 0 {
			attempts = append(attempts, s.Attempt)
		}
	}
	if !slices.Equal(attempts, []int{1, 2, 3}) {
		t.Errorf("retry attempts = %v", attempts)
	}
	if !env.sink.find("error", "Network error. Retrying in 2s... (attempt 2/3)") {
		t.Errorf("missing retry status: %+v", env.sink.Statuses())
	}
}

func TestDownloadUpdate_RetriesExhausted(t *testing.T) {
	env := newTestEnv(t, ModePortable, newRelease("v1.2.0", "MakeYourLifeEasier-portable-1.2.0.exe"))
	env.dl.errs = []error{io.ErrUnexpectedEOF, io.ErrUnexpectedEOF, io.ErrUnexpectedEOF, io.ErrUnexpectedEOF}

	err := env.svc.DownloadUpdate(context.Background())
	if CodeOf(err) != ErrCodeDownloadFailed {
		t.Fatalf("expected DOWNLOAD_FAILED, got %v", err)
	}
	if env.dl.Calls() != 4 {
		t.Errorf("download attempts = %d, want 4", env.dl.Calls())
	}
	if len(env.sleeps) != MaxRetries {
		t.Errorf("sleeps = %v", env.sleeps)
	}

	state := env.svc.GetState()
	if state.Phase != PhaseError || state.RetryCount != 0 {
		t.Errorf("unexpected state: %+v", state)
	}
}

func TestDownloadUpdate_NonTransientNotRetried(t *testing.T) {
	env := newTestEnv(t, ModePortable, newRelease("v1.2.0", "MakeYourLifeEasier-portable-1.2.0.exe"))
	env.dl.errs = []error{&downloads.StatusError{StatusCode: 404}}

	err := env.svc.DownloadUpdate(context.Background())
	if CodeOf(err) != ErrCodeDownloadFailed {
		t.Fatalf("expected DOWNLOAD_FAILED, got %v", err)
	}
	if env.dl.Calls() != 1 || len(env.sleeps) != 0 {
		t.Errorf("calls = %d, sleeps = %v", env.dl.Calls(), env.sleeps)
	}
	if !env.sink.find("error", "Update error: HTTP 404") {
		t.Errorf("missing error status: %+v", env.sink.Statuses())
	}
}

func TestDownloadUpdate_NoUpdate(t *testing.T) {
	env := newTestEnv(t, ModePortable, newRelease("v0.9.0", "MakeYourLifeEasier-portable-0.9.0.exe"))

	if err := env.svc.DownloadUpdate(context.Background()); CodeOf(err) != ErrCodeNoUpdate {
		t.Errorf("expected NO_UPDATE, got %v", err)
	}
	if env.dl.Calls() != 0 {
		t.Error("downloader should not be called")
	}
}

func TestDownloadUpdate_AssetNotFound(t *testing.T) {
	env := newTestEnv(t, ModePortable, newRelease("v1.2.0", "checksums.txt"))

	err := env.svc.DownloadUpdate(context.Background())
	if CodeOf(err) != ErrCodeAssetNotFound {
		t.Fatalf("expected ASSET_NOT_FOUND, got %v", err)
	}

	statuses := env.sink.Statuses()
	last := statuses[len(statuses)-1]
	if last.Status != "error" || last.ReleaseURL == "" {
		t.Errorf("expected error status with release url, got %+v", last)
	}
}

func TestDownloadUpdate_EmptyFile(t *testing.T) {
	env := newTestEnv(t, ModePortable, newRelease("v1.2.0", "MakeYourLifeEasier-portable-1.2.0.exe"))
	env.dl.payload = nil

	if err := env.svc.DownloadUpdate(context.Background()); CodeOf(err) != ErrCodeDownloadFailed {
		t.Errorf("expected DOWNLOAD_FAILED, got %v", err)
	}
}

func TestCancelUpdate(t *testing.T) {
	env := newTestEnv(t, ModePortable, newRelease("v1.2.0", "MakeYourLifeEasier-portable-1.2.0.exe"))

	if err := env.svc.CancelUpdate(context.Background()); CodeOf(err) != ErrCodeNotDownloading {
		t.Fatalf("expected NOT_DOWNLOADING, got %v", err)
	}

	env.dl.block = true
	env.dl.started = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- env.svc.DownloadUpdate(context.Background()) }()

	select {
	case <-env.dl.started:
	case <-time.After(2 * time.Second):
		t.Fatal("download did not start")
	}

	if env.svc.GetState().Phase != PhaseDownloading {
		t.Fatalf("phase = %s", env.svc.GetState().Phase)
	}
	if err := env.svc.CancelUpdate(context.Background()); err != nil {
		t.Fatalf("CancelUpdate failed: %v", err)
	}

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected DownloadUpdate to report cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("DownloadUpdate did not return")
	}

	if env.svc.GetState().Phase != PhaseAvailable {
		t.Errorf("phase = %s, want available", env.svc.GetState().Phase)
	}
	if !slices.Contains(env.dl.canceled, UpdateDownloadID) {
		t.Errorf("engine job not cancelled: %v", env.dl.canceled)
	}
	if !env.sink.find("available", "Update download cancelled") {
		t.Error("missing cancellation status")
	}
}

func TestCancelUpdate_StaleRetryLeavesNextDownload(t *testing.T) {
	env := newTestEnv(t, ModePortable, newRelease("v1.2.0", "MakeYourLifeEasier-portable-1.2.0.exe"))
	env.dl.errs = []error{downloads.ErrIncomplete}
	env.feed.hold = make(chan struct{})
	env.feed.holding = make(chan struct{})

	first := make(chan error, 1)
	go func() { first <- env.svc.DownloadUpdate(context.Background()) }()

	// first attempt failed and is re-querying the feed
	select {
	case <-env.feed.holding:
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not re-query the feed")
	}
	if err := env.svc.CancelUpdate(context.Background()); err != nil {
		t.Fatalf("CancelUpdate failed: %v", err)
	}

	env.dl.mu.Lock()
	env.dl.block = true
	env.dl.started = make(chan struct{})
	started := env.dl.started
	env.dl.mu.Unlock()

	second := make(chan error, 1)
	go func() { second <- env.svc.DownloadUpdate(context.Background()) }()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("second download did not start")
	}

	close(env.feed.hold)
	select {
	case err := <-first:
		if err == nil {
			t.Error("cancelled download should report an error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled download did not return")
	}

	if phase := env.svc.GetState().Phase; phase != PhaseDownloading {
		t.Fatalf("phase = %s, want downloading", phase)
	}
	if err := env.svc.CancelUpdate(context.Background()); err != nil {
		t.Fatalf("running download could not be cancelled: %v", err)
	}
	select {
	case <-second:
	case <-time.After(2 * time.Second):
		t.Fatal("second download did not return")
	}
	if phase := env.svc.GetState().Phase; phase != PhaseAvailable {
		t.Errorf("phase = %s, want available", phase)
	}
}

func TestDownloadUpdate_InstallsByDefault(t *testing.T) {
	launcher := &fakeLauncher{}
	quit := make(chan struct{})
	svc, err := NewService(&Options{
		CurrentVersion: "1.0.0",
		Feed:           &fakeFeed{release: newRelease("v1.2.0", "MakeYourLifeEasier-portable-1.2.0.exe")},
		Downloader:     &fakeDownloader{payload: []byte("installer bytes")},
		Launcher:       launcher,
		Quit:           func() { close(quit) },
		Mode:           ModePortable,
		AppName:        "MakeYourLifeEasier",
		Platform:       "windows",
		CacheDir:       t.TempDir(),
		UserDataDir:    t.TempDir(),
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	s := svc.(*service)
	s.sleep = func(context.Context, time.Duration) error { return nil }
	s.handoff.tempDir = t.TempDir()

	if err := s.DownloadUpdate(context.Background()); err != nil {
		t.Fatalf("DownloadUpdate failed: %v", err)
	}

	select {
	case <-quit:
	case <-time.After(2 * time.Second):
		t.Fatalf("update was not installed, phase = %s", s.GetState().Phase)
	}

	launcher.mu.Lock()
	calls := launcher.calls
	launcher.mu.Unlock()
	if calls != 1 {
		t.Errorf("launcher calls = %d, want 1", calls)
	}
	if phase := s.GetState().Phase; phase != PhaseInstalling {
		t.Errorf("phase = %s, want installing", phase)
	}
}

func TestInstallUpdate_Portable(t *testing.T) {
	env := newTestEnv(t, ModePortable, newRelease("v1.2.0", "MakeYourLifeEasier-portable-1.2.0.exe"))

	if err := env.svc.InstallUpdate(context.Background()); CodeOf(err) != ErrCodeInvalidState {
		t.Fatalf("expected INVALID_STATE before download, got %v", err)
	}

	if err := env.svc.DownloadUpdate(context.Background()); err != nil {
		t.Fatalf("DownloadUpdate failed: %v", err)
	}
	artifact := env.dl.requests[0].Dest

	if err := env.svc.InstallUpdate(context.Background()); err != nil {
		t.Fatalf("InstallUpdate failed: %v", err)
	}

	if env.launcher.calls != 1 {
		t.Fatalf("launcher calls = %d", env.launcher.calls)
	}
	if env.launcher.path == artifact {
		t.Error("portable install should launch a temp copy")
	}
	if filepath.Base(env.launcher.path) != filepath.Base(artifact) {
		t.Errorf("launched %q", env.launcher.path)
	}
	if len(env.launcher.args) != 0 {
		t.Errorf("unexpected args %v", env.launcher.args)
	}
	if _, err := os.Stat(artifact); !os.IsNotExist(err) {
		t.Error("original artifact should be removed")
	}
	if env.quit != 1 {
		t.Errorf("quit called %d times", env.quit)
	}
	if env.svc.GetState().Phase != PhaseInstalling {
		t.Errorf("phase = %s", env.svc.GetState().Phase)
	}
}

func TestInstallUpdate_InstalledRunsSilentInstaller(t *testing.T) {
	env := newTestEnv(t, ModeInstalled, newRelease("v1.2.0", "MakeYourLifeEasier-Setup-1.2.0.exe", "MakeYourLifeEasier-portable-1.2.0.exe"))

	if err := env.svc.DownloadUpdate(context.Background()); err != nil {
		t.Fatalf("DownloadUpdate failed: %v", err)
	}
	artifact := env.dl.requests[0].Dest
	if filepath.Base(artifact) != "MakeYourLifeEasier-Setup-1.2.0.exe" {
		t.Fatalf("installed mode picked %q", artifact)
	}

	if err := env.svc.InstallUpdate(context.Background()); err != nil {
		t.Fatalf("InstallUpdate failed: %v", err)
	}
	if env.launcher.path != artifact {
		t.Errorf("launched %q, want %q", env.launcher.path, artifact)
	}
	if !slices.Equal(env.launcher.args, []string{"/S", "--force-run"}) {
		t.Errorf("args = %v", env.launcher.args)
	}
	if !slices.Equal(env.sleeps, []time.Duration{installGraceDelay, launchDelay}) {
		t.Errorf("sleeps = %v", env.sleeps)
	}
}

func TestInstallUpdate_LaunchFailure(t *testing.T) {
	env := newTestEnv(t, ModeInstalled, newRelease("v1.2.0", "MakeYourLifeEasier-Setup-1.2.0.exe"))
	env.launcher.err = errors.New("spawn failed")

	if err := env.svc.DownloadUpdate(context.Background()); err != nil {
		t.Fatalf("DownloadUpdate failed: %v", err)
	}
	if err := env.svc.InstallUpdate(context.Background()); CodeOf(err) != ErrCodeInstallFailed {
		t.Fatalf("expected INSTALL_FAILED, got %v", err)
	}
	if env.quit != 0 {
		t.Error("quit should not be called after a failed launch")
	}
	if env.svc.GetState().Phase != PhaseError {
		t.Errorf("phase = %s", env.svc.GetState().Phase)
	}
}

func TestRetryUpdate_ResetsState(t *testing.T) {
	env := newTestEnv(t, ModePortable, newRelease("v1.2.0", "MakeYourLifeEasier-portable-1.2.0.exe"))
	env.dl.errs = []error{errors.New("disk full")}

	if err := env.svc.DownloadUpdate(context.Background()); err == nil {
		t.Fatal("expected download failure")
	}
	if env.svc.GetState().Phase != PhaseError {
		t.Fatalf("phase = %s", env.svc.GetState().Phase)
	}

	info, err := env.svc.RetryUpdate(context.Background())
	if err != nil {
		t.Fatalf("RetryUpdate failed: %v", err)
	}
	if !info.UpdateAvailable {
		t.Error("expected update after retry")
	}
	state := env.svc.GetState()
	if state.Phase != PhaseAvailable || state.Error != "" || state.RetryCount != 0 {
		t.Errorf("unexpected state: %+v", state)
	}
}

func TestForceCheckForUpdates(t *testing.T) {
	env := newTestEnv(t, ModePortable, newRelease("v1.2.0", "MakeYourLifeEasier-portable-1.2.0.exe"))
	if _, err := env.svc.CheckForUpdates(context.Background()); err != nil {
		t.Fatal(err)
	}

	env.feed.mu.Lock()
	env.feed.release = newRelease("v1.0.0")
	env.feed.mu.Unlock()

	info, err := env.svc.ForceCheckForUpdates(context.Background())
	if err != nil {
		t.Fatalf("ForceCheckForUpdates failed: %v", err)
	}
	if info.UpdateAvailable {
		t.Error("expected no update")
	}
	if state := env.svc.GetState(); state.PendingInfo != nil {
		t.Errorf("pending info not cleared: %+v", state.PendingInfo)
	}
}

func TestDisabledService(t *testing.T) {
	env := newTestEnv(t, ModePortable, newRelease("v1.2.0"))
	env.svc.SetDisabled(true, "disabled by BYPASS_UPDATER")

	if _, err := env.svc.CheckForUpdates(context.Background()); CodeOf(err) != ErrCodeDisabled {
		t.Errorf("expected DISABLED, got %v", err)
	}
	if err := env.svc.DownloadUpdate(context.Background()); CodeOf(err) != ErrCodeDisabled {
		t.Errorf("expected DISABLED, got %v", err)
	}
	state := env.svc.GetState()
	if state.Enabled || state.DisabledReason != "disabled by BYPASS_UPDATER" {
		t.Errorf("unexpected state: %+v", state)
	}
	if env.feed.Calls() != 0 {
		t.Error("feed should not be queried while disabled")
	}

	env.svc.SetDisabled(false, "")
	if !env.svc.IsEnabled() || env.svc.DisabledReason() != "" {
		t.Error("service should be enabled again")
	}
}

func TestStartup_FallbackAppReady(t *testing.T) {
	env := newTestEnv(t, ModePortable, newRelease("v1.0.0"))
	env.svc.fallbackDelay = 20 * time.Millisecond
	env.svc.BeginStartup()

	if _, err := env.svc.CheckForUpdates(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !env.sink.find("downloading", "Initializing application...") {
		t.Fatalf("missing splash status: %+v", env.sink.Statuses())
	}

	select {
	case ev := <-env.sink.ready:
		if !ev.Fallback {
			t.Errorf("expected fallback app-ready, got %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fallback app-ready not published")
	}
	if !env.sink.find("downloading", "Launching application...") {
		t.Error("missing launch status")
	}
}

func TestStartup_AppReadyStopsFallback(t *testing.T) {
	env := newTestEnv(t, ModePortable, nil)
	env.feed.err = errors.New("offline")
	env.svc.fallbackDelay = 50 * time.Millisecond
	env.svc.BeginStartup()

	if _, err := env.svc.CheckForUpdates(context.Background()); err == nil {
		t.Fatal("expected check failure")
	}
	for _, s := range env.sink.Statuses() {
		if s.Status == "error" {
			t.Errorf("startup check failure should not surface an error status: %+v", s)
		}
	}

	env.svc.AppReady(1280, 800)

	select {
	case ev := <-env.sink.ready:
		if ev.Fallback || ev.Width != 1280 || ev.Height != 800 {
			t.Errorf("unexpected app-ready: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("app-ready not published")
	}

	select {
	case ev := <-env.sink.ready:
		t.Errorf("fallback fired after AppReady: %+v", ev)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestStartup_DisabledStillHandsOver(t *testing.T) {
	env := newTestEnv(t, ModePortable, newRelease("v9.0.0"))
	env.svc.SetDisabled(true, "disabled by --no-updater")
	env.svc.fallbackDelay = 20 * time.Millisecond
	env.svc.BeginStartup()

	if _, err := env.svc.CheckForUpdates(context.Background()); CodeOf(err) != ErrCodeDisabled {
		t.Fatalf("expected DISABLED, got %v", err)
	}

	select {
	case ev := <-env.sink.ready:
		if !ev.Fallback {
			t.Errorf("expected fallback app-ready, got %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("app-ready not published while disabled")
	}
}

func TestSaveUpdateInfo(t *testing.T) {
	env := newTestEnv(t, ModePortable, newRelease("v1.0.0"))

	if err := env.svc.SaveUpdateInfo(Manifest{Version: "2.0.0", ReleaseNotes: "notes"}); err != nil {
		t.Fatalf("SaveUpdateInfo failed: %v", err)
	}
	m, err := env.svc.GetUpdateInfo()
	if err != nil {
		t.Fatalf("GetUpdateInfo failed: %v", err)
	}
	if m.Version != "2.0.0" || m.Timestamp == 0 {
		t.Errorf("unexpected manifest: %+v", m)
	}
}
