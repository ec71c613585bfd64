// Package downloads implements the id-addressed download engine: redirect following,
// .part staging with rename on completion, pause/resume/cancel, and exit cleanup.
package downloads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/myle-app/myle/internal/events"
	"github.com/myle-app/myle/internal/fsutil"
	"github.com/myle-app/myle/internal/logging"
	"github.com/myle-app/myle/internal/metrics"
	"github.com/myle-app/myle/internal/transport"
)

const (
	// DefaultMaxRedirects bounds a redirect chain.
	DefaultMaxRedirects = 10

	partSuffix = ".part"
	chunkSize  = 32 * 1024
)

var contentDispositionName = regexp.MustCompile(`filename\*?=(?:UTF-8''|")?([^";]+)`)

// EventSink receives id-tagged download events.
type EventSink interface {
	Publish(ev events.Event)
}

// Options configures an Engine.
type Options struct {
	Dir          string
	MaxRedirects int
	Client       *transport.Client
	Sink         EventSink
	Logger       logging.Logger
}

// Request describes a blocking download.
type Request struct {
	ID   string
	URL  string
	Dest string
	// OnProgress is called from the download goroutine after each chunk.
	OnProgress func(received, total int64)
}

// Result is a completed download.
type Result struct {
	Path string
	Size int64
}

// JobInfo is a snapshot of an active job.
type JobInfo struct {
	ID       string `json:"id"`
	URL      string `json:"url,omitempty"`
	Path     string `json:"path,omitempty"`
	Total    int64  `json:"total"`
	Received int64  `json:"received"`
	Paused   bool   `json:"paused"`
}

// Engine owns the active-job registry and the exit cleanup lists.
type Engine struct {
	client       *transport.Client
	sink         EventSink
	dir          string
	maxRedirects int
	logger       logging.Logger

	mu         sync.Mutex
	active     map[string]*job
	downloaded []string
	extracted  []string
	wg         sync.WaitGroup
}

type nopSink struct{}

func (nopSink) Publish(events.Event) {}

// New creates an Engine. Redirects are handled by the engine itself, so the
// client passed in opts must not follow them; a nil client gets a suitable default.
func New(opts Options) *Engine {
	if opts.Dir == "" {
		opts.Dir = fsutil.DownloadsDir()
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}
	if opts.Client == nil {
		opts.Client = transport.New(transport.WithoutRedirects())
	}
	if opts.Sink == nil {
		opts.Sink = nopSink{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetLogger("downloads")
	}
	return &Engine{
		client:       opts.Client,
		sink:         opts.Sink,
		dir:          opts.Dir,
		maxRedirects: opts.MaxRedirects,
		logger:       opts.Logger,
		active:       make(map[string]*job),
	}
}

// Dir returns the directory relative destinations resolve into.
func (e *Engine) Dir() string {
	return e.dir
}

// Start begins a download in the background. Its outcome is reported on the sink only.
func (e *Engine) Start(id, rawURL, dest string) error {
	j, err := e.register(context.Background(), Request{ID: id, URL: rawURL, Dest: dest})
	if err != nil {
		return err
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		_, _ = e.run(j)
	}()
	return nil
}

// Download runs a download to completion on the calling goroutine. Events are published
// on the sink as for Start.
func (e *Engine) Download(ctx context.Context, req Request) (Result, error) {
	j, err := e.register(ctx, req)
	if err != nil {
		return Result{}, err
	}
	return e.run(j)
}

func (e *Engine) register(parent context.Context, req Request) (*job, error) {
	if req.ID == "" {
		return nil, errors.New("download id is required")
	}
	if _, err := url.ParseRequestURI(req.URL); err != nil {
		return nil, fmt.Errorf("invalid download URL: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.active[req.ID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, req.ID)
	}

	ctx, cancel := context.WithCancel(parent)
	j := &job{
		id:         req.ID,
		url:        req.URL,
		hint:       req.Dest,
		onProgress: req.OnProgress,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	e.active[req.ID] = j
	metrics.DownloadStarted()
	return j, nil
}

func (e *Engine) run(j *job) (Result, error) {
	defer close(j.done)
	defer j.cancel()

	res, err := e.transfer(j)
	if err == nil {
		return res, nil
	}

	if tmp := j.tempPath(); tmp != "" {
		fsutil.TryRemoveFile(tmp)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active[j.id] != j {
		// Cancel already removed the job and reports it.
		return Result{}, ErrCancelled
	}
	delete(e.active, j.id)

	if errors.Is(err, context.Canceled) {
		metrics.DownloadFinished(metrics.OutcomeCancelled)
		e.sink.Publish(events.DownloadEvent{ID: j.id, Status: events.DownloadCancelled})
		return Result{}, ErrCancelled
	}

	e.logger.Warn("Download failed", "id", j.id, "url", j.url, "error", err)
	metrics.DownloadFinished(metrics.OutcomeError)
	e.sink.Publish(events.DownloadEvent{ID: j.id, Status: events.DownloadError, Error: err.Error()})
	return Result{}, err
}

func (e *Engine) transfer(j *job) (Result, error) {
	resp, finalURL, err := e.open(j.ctx, j.url)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	dest := e.resolveDestination(j.hint, finalURL, resp.Header.Get("Content-Disposition"))
	if err := fsutil.EnsureDir(filepath.Dir(dest)); err != nil {
		return Result{}, fmt.Errorf("failed to create download directory: %w", err)
	}
	if err := fsutil.RemoveFileIfExists(dest); err != nil {
		return Result{}, fmt.Errorf("failed to remove existing file: %w", err)
	}
	fsutil.CleanupExtractDirs(dest, filepath.Dir(dest))

	j.mu.Lock()
	j.finalURL = finalURL
	j.path = dest
	j.total = max(resp.ContentLength, 0)
	j.started = true
	e.sink.Publish(events.DownloadEvent{
		ID:     j.id,
		Status: events.DownloadStarted,
		URL:    finalURL,
		Path:   dest,
		Total:  j.total,
	})
	j.mu.Unlock()

	e.logger.Debug("Download started", "id", j.id, "url", finalURL, "path", dest, "total", j.total)

	tmp := dest + partSuffix
	f, err := os.Create(tmp)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create temp file: %w", err)
	}

	received, err := e.stream(j, resp.Body, f)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close temp file: %w", closeErr)
	}
	if err != nil {
		return Result{}, err
	}

	if total := j.info().Total; total > 0 && received != total {
		return Result{}, ErrIncomplete
	}

	return e.finalize(j, tmp, dest, received)
}

func (e *Engine) stream(j *job, body io.Reader, w io.Writer) (int64, error) {
	buf := make([]byte, chunkSize)
	for {
		if err := j.waitIfPaused(j.ctx); err != nil {
			return 0, err
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return 0, fmt.Errorf("failed to write temp file: %w", err)
			}
			metrics.AddDownloadedBytes(n)

			j.mu.Lock()
			j.received += int64(n)
			received, total := j.received, j.total
			if !j.paused {
				e.sink.Publish(j.progressEvent())
			}
			j.mu.Unlock()

			if j.onProgress != nil {
				j.onProgress(received, total)
			}
		}

		if errors.Is(readErr, io.EOF) {
			return j.info().Received, nil
		}
		if readErr != nil {
			if err := j.ctx.Err(); err != nil {
				return 0, err
			}
			return 0, readErr
		}
	}
}

// finalize renames the temp file into place unless the job was cancelled meanwhile.
func (e *Engine) finalize(j *job, tmp, dest string, size int64) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active[j.id] != j {
		fsutil.TryRemoveFile(tmp)
		return Result{}, ErrCancelled
	}
	if err := os.Rename(tmp, dest); err != nil {
		return Result{}, fmt.Errorf("failed to finalize download: %w", err)
	}

	delete(e.active, j.id)
	e.downloaded = append(e.downloaded, dest)
	metrics.DownloadFinished(metrics.OutcomeCompleted)
	e.sink.Publish(events.DownloadEvent{
		ID:       j.id,
		Status:   events.DownloadCompleted,
		Path:     dest,
		Total:    size,
		Received: size,
	})
	e.logger.Info("Download completed", "id", j.id, "path", dest, "bytes", size)

	return Result{Path: dest, Size: size}, nil
}

// open issues the GET and follows up to maxRedirects Location hops.
func (e *Engine) open(ctx context.Context, rawURL string) (*http.Response, string, error) {
	current := rawURL
	for redirects := 0; ; redirects++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			return nil, current, fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := e.client.Do(req)
		if err != nil {
			return nil, current, err
		}

		location := resp.Header.Get("Location")
		if resp.StatusCode >= 300 && resp.StatusCode < 400 && location != "" {
			drain(resp)
			if redirects >= e.maxRedirects {
				return nil, current, fmt.Errorf("%w: more than %d", ErrTooManyRedirects, e.maxRedirects)
			}
			next, err := resolveLocation(current, location)
			if err != nil {
				return nil, current, err
			}
			e.logger.Debug("Following redirect", "from", current, "to", next)
			current = next
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			drain(resp)
			return nil, current, &StatusError{StatusCode: resp.StatusCode}
		}
		return resp, current, nil
	}
}

func resolveLocation(base, location string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", base, err)
	}
	l, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid redirect location %q: %w", location, err)
	}
	return b.ResolveReference(l).String(), nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}

// resolveDestination picks the final path: an absolute hint verbatim, otherwise a
// sanitized name from the hint, Content-Disposition or URL inside the engine's directory.
func (e *Engine) resolveDestination(hint, finalURL, disposition string) string {
	if hint != "" && filepath.IsAbs(hint) {
		return hint
	}

	var cdName string
	if m := contentDispositionName.FindStringSubmatch(disposition); m != nil {
		if unescaped, err := url.PathUnescape(strings.TrimSpace(m[1])); err == nil {
			cdName = unescaped
		} else {
			cdName = strings.TrimSpace(m[1])
		}
	}

	name := hint
	if name == "" {
		name = cdName
	}
	if name == "" {
		name = fsutil.FilenameFromURL(finalURL)
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if ext == "" {
		switch {
		case filepath.Ext(cdName) != "":
			ext = filepath.Ext(cdName)
		case fsutil.ExtFromURL(finalURL) != "":
			ext = fsutil.ExtFromURL(finalURL)
		default:
			ext = ".bin"
		}
	}

	return filepath.Join(e.dir, fsutil.SanitizeFilename(base+ext))
}

// Pause suspends an active job. Unknown ids, jobs that have not started streaming and
// already paused jobs are ignored.
func (e *Engine) Pause(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	j, ok := e.active[id]
	if !ok {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.started || j.paused {
		return
	}
	j.paused = true
	j.resumeCh = make(chan struct{})
	e.sink.Publish(events.DownloadEvent{
		ID:       id,
		Status:   events.DownloadPaused,
		Total:    j.total,
		Received: j.received,
	})
}

// Resume continues a paused job. Unknown ids and running jobs are ignored.
func (e *Engine) Resume(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	j, ok := e.active[id]
	if !ok {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.paused {
		return
	}
	j.paused = false
	close(j.resumeCh)
	e.sink.Publish(events.DownloadEvent{
		ID:       id,
		Status:   events.DownloadResumed,
		Total:    j.total,
		Received: j.received,
	})
}

// Cancel aborts a job, waits for its goroutine to stop, deletes the partial file and
// publishes cancelled. Unknown ids are ignored.
func (e *Engine) Cancel(id string) {
	e.mu.Lock()
	j, ok := e.active[id]
	if ok {
		delete(e.active, id)
	}
	e.mu.Unlock()
	if !ok {
		return
	}

	j.cancel()
	<-j.done

	if tmp := j.tempPath(); tmp != "" {
		fsutil.TryRemoveFile(tmp)
	}
	metrics.DownloadFinished(metrics.OutcomeCancelled)
	e.sink.Publish(events.DownloadEvent{ID: id, Status: events.DownloadCancelled})
	e.logger.Info("Download cancelled", "id", id)
}

// CancelAll cancels every active job and waits for background downloads to exit.
func (e *Engine) CancelAll() {
	e.mu.Lock()
	ids := make([]string, 0, len(e.active))
	for id := range e.active {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	for _, id := range ids {
		e.Cancel(id)
	}
	e.wg.Wait()
}

// IsActive reports whether id is in the active registry.
func (e *Engine) IsActive(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.active[id]
	return ok
}

// List returns snapshots of all active jobs.
func (e *Engine) List() []JobInfo {
	e.mu.Lock()
	jobs := make([]*job, 0, len(e.active))
	for _, j := range e.active {
		jobs = append(jobs, j)
	}
	e.mu.Unlock()

	infos := make([]JobInfo, 0, len(jobs))
	for _, j := range jobs {
		infos = append(infos, j.info())
	}
	return infos
}

// TrackExtractedDir records a directory to delete on exit.
func (e *Engine) TrackExtractedDir(dir string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.extracted = append(e.extracted, dir)
}

// Keep removes path from the exit cleanup list.
func (e *Engine) Keep(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	match := func(v string) bool { return v == path }
	e.downloaded = slices.DeleteFunc(e.downloaded, match)
	e.extracted = slices.DeleteFunc(e.extracted, match)
}

// spaceAlias applies fsutil.SpaceAlias to the last path element only.
func spaceAlias(p string) string {
	return filepath.Join(filepath.Dir(p), fsutil.SpaceAlias(filepath.Base(p)))
}

// CleanupOnQuit synchronously deletes completed downloads and tracked extraction
// directories, including their underscore-to-space aliases. Failures are ignored.
func (e *Engine) CleanupOnQuit() {
	e.mu.Lock()
	files := e.downloaded
	dirs := e.extracted
	e.downloaded = nil
	e.extracted = nil
	e.mu.Unlock()

	for _, f := range files {
		fsutil.TryRemoveFile(f)
		if alt := spaceAlias(f); alt != f {
			fsutil.TryRemoveFile(alt)
		}
	}
	for _, d := range dirs {
		fsutil.TryRemoveDir(d)
		if alt := spaceAlias(d); alt != d {
			fsutil.TryRemoveDir(alt)
		}
	}
	if len(files)+len(dirs) > 0 {
		e.logger.Info("Cleaned up downloads on exit", "files", len(files), "dirs", len(dirs))
	}
}
