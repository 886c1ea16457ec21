// Package convlog records chat turns as newline-delimited JSON, one file per
// session plus an optional combined file.
package convlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultMaxOpenFiles bounds the per-session files kept open at once.
const DefaultMaxOpenFiles = 256

// Config controls conversation logging.
type Config struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
	// MaxOpenFiles caps open session files; the least recently written one
	// is closed first and reopened in append mode when needed.
	MaxOpenFiles int
}

// Event is one logged line.
type Event struct {
	Timestamp  string         `json:"ts"`
	SessionID  string         `json:"session_id"`
	Channel    string         `json:"channel"`
	Direction  string         `json:"direction"`
	EventType  string         `json:"event_type"`
	ContentRaw string         `json:"content_raw,omitempty"`
	Content    string         `json:"content,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// Logger accepts events without blocking the caller.
type Logger interface {
	Log(Event)
	// CloseSession releases resources held for an ended session.
	CloseSession(sessionID string)
	Close() error
}

// Noop discards every event.
type Noop struct{}

// Log implements Logger.
func (Noop) Log(Event) {}

// CloseSession implements Logger.
func (Noop) CloseSession(string) {}

// Close implements Logger.
func (Noop) Close() error { return nil }

var (
	ansiPattern     = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	spacePattern    = regexp.MustCompile(`[ \t]+`)
	fileNamePattern = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
)

// FileLogger writes events from a bounded queue on a single goroutine.
// Events are dropped when the queue is full.
type FileLogger struct {
	cfg     Config
	logger  *slog.Logger
	queue   chan Event
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Int64

	mu     sync.Mutex
	closed bool

	// filesMu serializes writes with CloseSession so a file is never closed
	// mid-write.
	filesMu sync.Mutex
	files   *lru.Cache
	global  *os.File
}

// New creates a conversation logger. A disabled config yields Noop.
func New(cfg Config, logger *slog.Logger) (Logger, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, errors.New("conversation log dir is required")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.MaxOpenFiles <= 0 {
		cfg.MaxOpenFiles = DefaultMaxOpenFiles
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}

	l := &FileLogger{
		cfg:    cfg,
		logger: logger,
		queue:  make(chan Event, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	files, err := lru.NewWithEvict(cfg.MaxOpenFiles, l.closeEvicted)
	if err != nil {
		return nil, fmt.Errorf("create session file cache: %w", err)
	}
	l.files = files

	if cfg.GlobalEnabled && cfg.GlobalPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.GlobalPath), 0o755); err != nil {
			return nil, fmt.Errorf("create global conversation log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.GlobalPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open global conversation log: %w", err)
		}
		l.global = f
	}

	l.wg.Add(1)
	go l.run()
	return l, nil
}

// Log queues ev. It never blocks.
func (l *FileLogger) Log(ev Event) {
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if ev.Content == "" && ev.ContentRaw != "" {
		ev.Content = CleanForReadability(ev.ContentRaw)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- ev:
	default:
		if n := l.dropped.Add(1); n == 1 || n%100 == 0 {
			l.logger.Warn("Conversation log queue full, dropping events", "dropped", n)
		}
	}
}

// Close drains queued events and closes all files.
func (l *FileLogger) Close() error {
	var err error
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		close(l.queue)
		l.mu.Unlock()

		l.wg.Wait()
		err = l.closeFiles()
	})
	return err
}

func (l *FileLogger) run() {
	defer l.wg.Done()
	for ev := range l.queue {
		if err := l.write(ev); err != nil {
			l.logger.Warn("Failed to write conversation log", "session_id", ev.SessionID, "error", err)
		}
	}
}

func (l *FileLogger) write(ev Event) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	line = append(line, '\n')

	if err := l.writeSession(ev.SessionID, line); err != nil {
		return err
	}
	if l.global != nil {
		if _, err := l.global.Write(line); err != nil {
			return fmt.Errorf("write global log: %w", err)
		}
	}
	return nil
}

func (l *FileLogger) writeSession(sessionID string, line []byte) error {
	l.filesMu.Lock()
	defer l.filesMu.Unlock()

	name := sessionFileName(sessionID)
	var f *os.File
	if v, ok := l.files.Get(name); ok {
		f = v.(*os.File)
	} else {
		var err error
		f, err = os.OpenFile(filepath.Join(l.cfg.Dir, name+".ndjson"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open session log: %w", err)
		}
		l.files.Add(name, f)
	}
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("write session log: %w", err)
	}
	return nil
}

// CloseSession closes the session's file if it is open. A later event for
// the same session reopens it in append mode.
func (l *FileLogger) CloseSession(sessionID string) {
	l.filesMu.Lock()
	defer l.filesMu.Unlock()
	l.files.Remove(sessionFileName(sessionID))
}

// openFiles returns the number of session files currently open.
func (l *FileLogger) openFiles() int {
	l.filesMu.Lock()
	defer l.filesMu.Unlock()
	return l.files.Len()
}

func (l *FileLogger) closeEvicted(key, value interface{}) {
	if err := value.(*os.File).Close(); err != nil {
		l.logger.Warn("Failed to close conversation log", "file", key, "error", err)
	}
}

func sessionFileName(sessionID string) string {
	name := fileNamePattern.ReplaceAllString(sessionID, "_")
	if name == "" {
		return "unknown"
	}
	return name
}

func (l *FileLogger) closeFiles() error {
	l.filesMu.Lock()
	l.files.Purge()
	l.filesMu.Unlock()

	if l.global != nil {
		return l.global.Close()
	}
	return nil
}

// CleanForReadability strips ANSI escapes and control characters and
// collapses runs of blanks.
func CleanForReadability(s string) string {
	s = ansiPattern.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
