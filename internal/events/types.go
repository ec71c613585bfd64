package events

// Event type constants for kelindar/event.
const (
	TypeDownload uint32 = iota + 1
	TypeUpdateStatus
	TypeAppReady
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// DownloadStatus is the lifecycle status carried by a DownloadEvent.
type DownloadStatus string

// Download statuses, in the order a single job emits them.
const (
	DownloadStarted   DownloadStatus = "started"
	DownloadProgress  DownloadStatus = "progress"
	DownloadPaused    DownloadStatus = "paused"
	DownloadResumed   DownloadStatus = "resumed"
	DownloadCompleted DownloadStatus = "completed"
	DownloadError     DownloadStatus = "error"
	DownloadCancelled DownloadStatus = "cancelled"
)

// IsTerminal reports whether no further events follow s for the same id.
func (s DownloadStatus) IsTerminal() bool {
	return s == DownloadCompleted || s == DownloadError || s == DownloadCancelled
}

// DownloadEvent is the id-tagged event stream of the download engine.
type DownloadEvent struct {
	ID       string         `json:"id" example:"sparkle-1718000000000" doc:"Caller-supplied download id"`
	Status   DownloadStatus `json:"status" example:"progress" doc:"started, progress, paused, resumed, completed, error or cancelled"`
	URL      string         `json:"url,omitempty" doc:"Resolved URL after redirects (started)"`
	Path     string         `json:"path,omitempty" doc:"Final file path (started, completed)"`
	Total    int64          `json:"total,omitempty" example:"1048576" doc:"Total size in bytes when known"`
	Received int64          `json:"received,omitempty" example:"524288" doc:"Bytes received so far"`
	Percent  *int           `json:"percent,omitempty" example:"50" doc:"Progress percentage when total is known"`
	Error    string         `json:"error,omitempty" doc:"Error message (error)"`
}

// Type returns the event type identifier for DownloadEvent.
func (e DownloadEvent) Type() uint32 { return TypeDownload }

// UpdateStatusEvent mirrors the phase-specific update-status payload.
type UpdateStatusEvent struct {
	Status       string  `json:"status" example:"downloading" doc:"Updater phase"`
	Message      string  `json:"message,omitempty" example:"Downloading update: 42%" doc:"Human-readable status"`
	Percent      float64 `json:"percent,omitempty" example:"42" doc:"Download progress percentage"`
	Speed        string  `json:"speed,omitempty" example:"1.25 MB/s" doc:"Download speed"`
	ETA          string  `json:"eta,omitempty" example:"01:05" doc:"Estimated time remaining (mm:ss)"`
	Downloaded   string  `json:"downloaded,omitempty" example:"12.00 MB" doc:"Bytes downloaded"`
	Total        string  `json:"total,omitempty" example:"80.00 MB" doc:"Total size"`
	Version      string  `json:"version,omitempty" example:"2.9.3" doc:"Release version"`
	ReleaseName  string  `json:"releaseName,omitempty" doc:"Release title"`
	ReleaseNotes string  `json:"releaseNotes,omitempty" doc:"Release notes"`
	ReleaseURL   string  `json:"releaseUrl,omitempty" doc:"Release page for manual download"`
	Size         string  `json:"size,omitempty" example:"80.00 MB" doc:"Human-readable release size"`
	RetryIn      int     `json:"retryIn,omitempty" example:"2" doc:"Seconds until the next automatic retry"`
	Attempt      int     `json:"attempt,omitempty" example:"1" doc:"Retry attempt number"`
}

// Type returns the event type identifier for UpdateStatusEvent.
func (e UpdateStatusEvent) Type() uint32 { return TypeUpdateStatus }

// AppReadyEvent signals the splash surface to hand display over to the main window.
type AppReadyEvent struct {
	Width     int    `json:"width,omitempty" example:"1280" doc:"Main window width"`
	Height    int    `json:"height,omitempty" example:"800" doc:"Main window height"`
	Fallback  bool   `json:"fallback" doc:"True when the handoff was forced by the startup timeout"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for AppReadyEvent.
func (e AppReadyEvent) Type() uint32 { return TypeAppReady }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"api" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
