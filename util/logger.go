// Package util provides low-level helpers shared by all other packages.
package util

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// ComponentField is the logrus field carrying the component tag set by
// [Logger.WithComponent].
const ComponentField = "component"

// tagField carries the short level tag to the formatter; it is never
// printed as a regular field.
const tagField = "_tag"

// Logger writes levelled messages through logrus.  Verbosity gating
// happens here; the underlying logrus logger accepts everything down
// to debug so hooks see exactly what would be printed.
type Logger struct {
	level LogLevel
	entry *logrus.Entry
	fmt   *formatter
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).
func NewLogger(verbosity int) *Logger {
	f := &formatter{timestamps: verbosity >= 3} // auto-enable timestamps in debug mode
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetLevel(logrus.DebugLevel)
	base.SetFormatter(f)
	return &Logger{
		level: LogLevel(verbosity),
		entry: logrus.NewEntry(base),
		fmt:   f,
	}
}

// WithComponent returns a Logger that tags every message with the
// given component name.  The returned logger shares output, hooks and
// verbosity with l.
func (l *Logger) WithComponent(tag string) *Logger {
	return &Logger{
		level: l.level,
		entry: l.entry.WithField(ComponentField, tag),
		fmt:   l.fmt,
	}
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) { l.fmt.setTimestamps(on) }

// SetOutput overrides the output writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) { l.entry.Logger.SetOutput(w) }

// AddHook attaches a logrus hook, typically a test recorder.
func (l *Logger) AddHook(h logrus.Hook) { l.entry.Logger.AddHook(h) }

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// Info prints when verbosity ≥ 1.  Prefixed with [INF].
func (l *Logger) Info(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.write(logrus.InfoLevel, "INF", format, args...)
	}
}

// Warn prints when verbosity ≥ 1.  Prefixed with [WRN].
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.write(logrus.WarnLevel, "WRN", format, args...)
	}
}

// Verbose prints when verbosity ≥ 2.  Prefixed with [VRB] and recorded
// by logrus at info level.
func (l *Logger) Verbose(format string, args ...interface{}) {
	if l.level >= LogVerbose {
		l.write(logrus.InfoLevel, "VRB", format, args...)
	}
}

// Debug prints when verbosity ≥ 3.  Prefixed with [DBG].
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level >= LogDebug {
		l.write(logrus.DebugLevel, "DBG", format, args...)
	}
}

// Error always prints regardless of verbosity.  Prefixed with [ERR].
func (l *Logger) Error(format string, args ...interface{}) {
	l.write(logrus.ErrorLevel, "ERR", format, args...)
}

func (l *Logger) write(level logrus.Level, tag, format string, args ...interface{}) {
	l.entry.WithField(tagField, tag).Log(level, fmt.Sprintf(format, args...))
}

// ── formatter ────────────────────────────────────────────────────────

// formatter renders entries as "15:04:05.000 [TAG] component: msg k=v".
type formatter struct {
	mu         sync.Mutex
	timestamps bool
}

func (f *formatter) setTimestamps(on bool) {
	f.mu.Lock()
	f.timestamps = on
	f.mu.Unlock()
}

func (f *formatter) Format(e *logrus.Entry) ([]byte, error) {
	f.mu.Lock()
	ts := f.timestamps
	f.mu.Unlock()

	var b bytes.Buffer
	if ts {
		b.WriteString(e.Time.Format("15:04:05.000"))
		b.WriteByte(' ')
	}

	tag, _ := e.Data[tagField].(string)
	if tag == "" {
		tag = fmt.Sprintf("%.3s", e.Level.String())
	}
	fmt.Fprintf(&b, "[%s] ", tag)

	if c, ok := e.Data[ComponentField]; ok {
		fmt.Fprintf(&b, "%v: ", c)
	}
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		if k == tagField || k == ComponentField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
