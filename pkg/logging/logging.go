// pkg/logging/logging.go - session logging for PEDeploy
//
// Each run writes into a timestamped subdirectory of the log root
// (YYYY-MM-DD-HHMMss) holding a plain-text deploy.log plus a structured
// events.jsonl stream that the WinPE log viewer and reporting tools
// consume. The catalog resolver logs every skip, fallback and dedup
// decision here; operators rely on these lines to work out why an image
// is absent from the catalog.

package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogLevel represents the severity of the log message.
type LogLevel int

const (
	LevelError LogLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// String returns the string representation of the LogLevel.
func (ll LogLevel) String() string {
	switch ll {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a config string like "WARN" into a LogLevel.
// Unknown strings default to INFO.
func ParseLevel(s string) LogLevel {
	switch s {
	case "ERROR":
		return LevelError
	case "WARN":
		return LevelWarn
	case "INFO":
		return LevelInfo
	case "DEBUG":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// Entry is the structured form written to events.jsonl.
type Entry struct {
	Time       int64          `json:"time"`
	Timestamp  string         `json:"timestamp"`
	Level      string         `json:"level"`
	Message    string         `json:"message"`
	Component  string         `json:"component"`
	PID        int64          `json:"pid"`
	Hostname   string         `json:"hostname"`
	SessionID  string         `json:"session_id"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Config holds configuration for the session logger.
type Config struct {
	BaseDir       string   // base logging directory
	Component     string   // component name stamped on every entry
	SessionID     string   // unique session identifier
	Level         LogLevel // minimum level written
	EnableJSON    bool     // write events.jsonl alongside deploy.log
	EnableConsole bool     // mirror deploy.log lines to stdout
}

// Logger writes a single deployment session's log streams.
type Logger struct {
	mu       sync.Mutex
	logger   *log.Logger
	logLevel LogLevel
	logFile  *os.File
	jsonFile *os.File
	config   Config
	logDir   string
	hostname string
}

// singleton instance and sync.Once for thread-safe initialization
var (
	instance *Logger
	once     sync.Once
)

// generateSessionID creates a unique session identifier.
func generateSessionID() string {
	return fmt.Sprintf("pedeploy-%d-%s", time.Now().Unix(),
		time.Now().Format("2006-01-02-150405"))
}

// Init initializes the singleton Logger. It must be called before any
// of the package-level logging functions are used.
func Init(cfg Config) error {
	var initErr error
	once.Do(func() {
		instance, initErr = newLogger(cfg)
	})
	return initErr
}

// newLogger creates a new Logger instance for this session.
func newLogger(cfg Config) (*Logger, error) {
	if cfg.Component == "" {
		cfg.Component = "pedeploy"
	}
	if cfg.SessionID == "" {
		cfg.SessionID = generateSessionID()
	}

	sessionStart := time.Now()
	logDir := filepath.Join(cfg.BaseDir, sessionStart.Format("2006-01-02-150405"))
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	l := &Logger{
		config:   cfg,
		logLevel: cfg.Level,
		logDir:   logDir,
		hostname: hostname,
	}

	var err error
	l.logFile, err = os.OpenFile(filepath.Join(logDir, "deploy.log"),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open main log file: %w", err)
	}

	if cfg.EnableJSON {
		l.jsonFile, err = os.OpenFile(filepath.Join(logDir, "events.jsonl"),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open JSON log file: %w", err)
		}
	}

	if cfg.EnableConsole {
		l.logger = log.New(io.MultiWriter(os.Stdout, l.logFile), "", 0)
	} else {
		l.logger = log.New(l.logFile, "", 0)
	}

	return l, nil
}

// LogDir returns the timestamped directory the current session writes to.
func LogDir() string {
	if instance == nil {
		return ""
	}
	return instance.logDir
}

// CloseLogger closes all log files if they're open.
func CloseLogger() {
	if instance == nil {
		return
	}
	instance.mu.Lock()
	defer instance.mu.Unlock()

	if instance.logFile != nil {
		if err := instance.logFile.Close(); err != nil {
			fmt.Printf("Failed to close main log file: %v\n", err)
		}
		instance.logFile = nil
	}
	if instance.jsonFile != nil {
		if err := instance.jsonFile.Close(); err != nil {
			fmt.Printf("Failed to close JSON log file: %v\n", err)
		}
		instance.jsonFile = nil
	}
}

// logMessage is the core logging method that writes to all configured outputs.
func (l *Logger) logMessage(level LogLevel, message string, keyValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logger == nil {
		fmt.Printf("LOGGING NOT INITIALIZED: %s %s %v\n", level.String(), message, keyValues)
		return
	}
	if level > l.logLevel {
		return
	}

	now := time.Now()

	// Traditional line: [ts] LEVEL message k=v ...
	line := fmt.Sprintf("[%s] %-5s %s", now.Format("2006-01-02 15:04:05"), level.String(), message)
	properties := make(map[string]any)
	for i := 0; i+1 < len(keyValues); i += 2 {
		key := fmt.Sprintf("%v", keyValues[i])
		properties[key] = keyValues[i+1]
		line += fmt.Sprintf(" %s=%v", key, keyValues[i+1])
	}
	l.logger.Println(line)

	if l.config.EnableJSON && l.jsonFile != nil {
		entry := Entry{
			Time:       now.Unix(),
			Timestamp:  now.Format(time.RFC3339),
			Level:      level.String(),
			Message:    message,
			Component:  l.config.Component,
			PID:        int64(os.Getpid()),
			Hostname:   l.hostname,
			SessionID:  l.config.SessionID,
			Properties: properties,
		}
		if data, err := json.Marshal(entry); err == nil {
			l.jsonFile.WriteString(string(data) + "\n")
		}
	}

	if l.logFile != nil {
		l.logFile.Sync()
	}
}

// Info logs informational messages.
func Info(message string, keyValues ...any) {
	if instance == nil {
		fmt.Printf("LOGGING NOT INITIALIZED: INFO %s %v\n", message, keyValues)
		return
	}
	instance.logMessage(LevelInfo, message, keyValues...)
}

// Warn logs warning messages.
func Warn(message string, keyValues ...any) {
	if instance == nil {
		fmt.Printf("LOGGING NOT INITIALIZED: WARN %s %v\n", message, keyValues)
		return
	}
	instance.logMessage(LevelWarn, message, keyValues...)
}

// Error logs error messages.
func Error(message string, keyValues ...any) {
	if instance == nil {
		fmt.Printf("LOGGING NOT INITIALIZED: ERROR %s %v\n", message, keyValues)
		return
	}
	instance.logMessage(LevelError, message, keyValues...)
}

// Debug logs debug messages.
func Debug(message string, keyValues ...any) {
	if instance == nil {
		return
	}
	instance.logMessage(LevelDebug, message, keyValues...)
}
