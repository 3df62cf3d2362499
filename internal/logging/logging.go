/*-------------------------------------------------------------------------
 *
 * stockchat - Natural Language Inventory Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log message
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// envLogLevel controls the minimum level via the environment
const envLogLevel = "STOCKCHAT_LOG_LEVEL"

var (
	mu sync.Mutex

	// currentLevel defaults to ERROR so operational logs do not clutter
	// interactive chat output
	currentLevel = LevelError

	// output is stderr in production, replaced in tests
	output io.Writer = os.Stderr
)

func init() {
	if level, ok := ParseLevel(os.Getenv(envLogLevel)); ok {
		currentLevel = level
	}
}

// ParseLevel converts a level name to a Level. The second return value
// reports whether the name was recognized.
func ParseLevel(name string) (Level, bool) {
	switch strings.ToLower(name) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelError, false
	}
}

// String returns the log level name
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// entry is a single structured log line
type entry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// emit writes a structured log line if the level is enabled.
// keyvals are alternating key/value pairs; a trailing key without a value
// is dropped.
func emit(level Level, message string, keyvals ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if level < currentLevel {
		return
	}

	e := entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level.String(),
		Message:   message,
	}

	if len(keyvals) > 1 {
		e.Fields = make(map[string]interface{}, len(keyvals)/2)
		for i := 0; i+1 < len(keyvals); i += 2 {
			e.Fields[fmt.Sprintf("%v", keyvals[i])] = keyvals[i+1]
		}
	}

	line, err := json.Marshal(e)
	if err != nil {
		fmt.Fprintf(output, "ERROR: failed to marshal log entry: %v\n", err)
		return
	}
	fmt.Fprintln(output, string(line))
}

// Debug logs a debug-level message with structured fields
func Debug(message string, keyvals ...interface{}) {
	emit(LevelDebug, message, keyvals...)
}

// Info logs an info-level message with structured fields
func Info(message string, keyvals ...interface{}) {
	emit(LevelInfo, message, keyvals...)
}

// Warn logs a warning-level message with structured fields
func Warn(message string, keyvals ...interface{}) {
	emit(LevelWarn, message, keyvals...)
}

// Error logs an error-level message with structured fields
func Error(message string, keyvals ...interface{}) {
	emit(LevelError, message, keyvals...)
}

// SetLevel sets the minimum log level to output
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
}

// GetLevel returns the current minimum log level
func GetLevel() Level {
	mu.Lock()
	defer mu.Unlock()
	return currentLevel
}

// SetOutput redirects log output, returning the previous writer.
// Intended for tests.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := output
	output = w
	return prev
}
