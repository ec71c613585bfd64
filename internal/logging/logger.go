package logging

import (
	"log/slog"
	"strings"
	"sync"
)

const defaultBufferSize = 1000

// Logger is a duck-typed interface satisfied by *slog.Logger.
// Use this interface instead of *slog.Logger to decouple from the concrete type.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"-"`
}

// levelFor resolves the level of module: its override, then the global level, then info.
func (c Config) levelFor(module string) slog.Level {
	if level, ok := parseLevel(c.Modules[module]); ok {
		return level
	}
	if level, ok := parseLevel(c.Level); ok {
		return level
	}
	return slog.LevelInfo
}

func (c Config) format() string {
	if strings.EqualFold(c.Format, "json") {
		return "json"
	}
	return "text"
}

type moduleLogger struct {
	logger *slog.Logger
	level  *slog.LevelVar
	format string
}

// state is the package registry. Loggers handed out by GetLogger stay valid across
// Initialize calls; only their level and, on a format change, their handler change.
var state = struct {
	sync.RWMutex
	config   Config
	modules  map[string]*moduleLogger
	buffer   *RingBuffer
	callback LogCallback
	level    slog.LevelVar
}{modules: make(map[string]*moduleLogger)}

// Initialize applies config to every module logger, including ones created earlier.
// It may be called again at runtime; the log history is kept.
func Initialize(config Config) {
	state.Lock()
	defer state.Unlock()

	state.config = config
	if state.buffer == nil {
		state.buffer = NewRingBuffer(defaultBufferSize)
	}

	format := config.format()
	for name, m := range state.modules {
		m.level.Set(config.levelFor(name))
		if m.format != format {
			m.format = format
			*m.logger = *slog.New(newHandler(format, m.level)).With("module", name)
		}
	}

	state.level.Set(config.levelFor(""))
	slog.SetDefault(slog.New(newHandler(format, &state.level)))
}

// GetBuffer returns the log ring buffer for reading historical logs.
func GetBuffer() *RingBuffer {
	state.RLock()
	defer state.RUnlock()
	return state.buffer
}

// SetLogCallback sets a callback to be called for each new log entry.
// Used for publishing log events to SSE clients.
func SetLogCallback(callback LogCallback) {
	state.Lock()
	defer state.Unlock()
	state.callback = callback
}

// GetLogger returns the logger for module, creating it on first use.
func GetLogger(module string) *slog.Logger {
	state.RLock()
	m, ok := state.modules[module]
	state.RUnlock()
	if ok {
		return m.logger
	}

	state.Lock()
	defer state.Unlock()
	if m, ok := state.modules[module]; ok {
		return m.logger
	}

	m = &moduleLogger{level: &slog.LevelVar{}, format: state.config.format()}
	m.level.Set(state.config.levelFor(module))
	m.logger = slog.New(newHandler(m.format, m.level)).With("module", module)
	state.modules[module] = m
	return m.logger
}

// parseLevel accepts the slog level names in any case, plus "warning".
func parseLevel(s string) (slog.Level, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.EqualFold(s, "warning") {
		s = "warn"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, false
	}
	return level, true
}
