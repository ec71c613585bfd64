// Package logging builds the module loggers used across myle on top of log/slog.
//
// Each module asks for its logger by name and keeps it for the life of the
// process:
//
//	logger := logging.GetLogger("downloads").With("id", id)
//	logger.Info("Download started", "url", rawURL)
//
// [Initialize] applies a [Config] to every logger, including those handed out
// before it ran, and may be called again when the config file changes. A module
// listed in Config.Modules uses its own level; the rest use Config.Level.
//
// In the config file the module levels sit next to the global ones:
//
//	[logging]
//	level = "info"
//	format = "text"
//	downloads = "debug"
//	http = "warn"
//
// Records go to stdout when something is attached to it, to the systemd journal
// when journald is reachable (tagged with [SyslogIdentifier], so
// `journalctl -t myle MODULE=updater` filters by module), and always to an
// in-memory [RingBuffer] readable through [GetBuffer]. String attributes whose
// key ends in "url" lose their query, fragment and user info before any output
// sees them.
//
// Buffer entries carry a sequence number that keeps counting across Initialize
// calls, so a reader can resume with [RingBuffer.Since]. [SetLogCallback]
// receives every entry as it is written.
package logging
