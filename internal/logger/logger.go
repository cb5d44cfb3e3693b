// Package logger provides the leveled logger the client reports diagnostics through.
package logger

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/rollbar/rollbar-go"
)

// Logger is the logging surface used across the client.
// args are appended to the message, errors and maps printed with %+v.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Level filters what StdLogger prints.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// StdLogger writes through a standard library logger.
type StdLogger struct {
	std   *log.Logger
	level Level
}

var _ Logger = (*StdLogger)(nil)

func NewStdLogger(std *log.Logger, level Level) *StdLogger {
	return &StdLogger{std: std, level: level}
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *StdLogger {
	return NewStdLogger(log.New(io.Discard, "", 0), LevelError+1)
}

func (l *StdLogger) print(level Level, tag, msg string, args []interface{}) {
	if level < l.level {
		return
	}
	var b strings.Builder
	b.WriteString(tag)
	b.WriteString(" ")
	b.WriteString(msg)
	for _, arg := range args {
		b.WriteString(" ")
		b.WriteString(strings.TrimSpace(fmt.Sprintf("%+v", arg)))
	}
	l.std.Println(b.String())
}

func (l *StdLogger) Debug(msg string, args ...interface{}) { l.print(LevelDebug, "DEBUG", msg, args) }
func (l *StdLogger) Info(msg string, args ...interface{})  { l.print(LevelInfo, "INFO", msg, args) }
func (l *StdLogger) Warn(msg string, args ...interface{})  { l.print(LevelWarn, "WARN", msg, args) }
func (l *StdLogger) Error(msg string, args ...interface{}) { l.print(LevelError, "ERROR", msg, args) }

// RollbarConfig carries what Rollbar needs to tag reports.
type RollbarConfig struct {
	Token       string
	Environment string
	CodeVersion string
}

// RollbarLogger prints locally and reports warnings and errors to Rollbar.
type RollbarLogger struct {
	local *StdLogger
}

var _ Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(local *StdLogger, conf RollbarConfig) *RollbarLogger {
	rollbar.SetToken(conf.Token)
	rollbar.SetEnvironment(conf.Environment)
	rollbar.SetCodeVersion(conf.CodeVersion)
	rollbar.SetEnabled(conf.Token != "")
	return &RollbarLogger{local: local}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) { l.local.Debug(msg, args...) }
func (l *RollbarLogger) Info(msg string, args ...interface{})  { l.local.Info(msg, args...) }

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(append([]interface{}{msg}, args...)...)
	l.local.Warn(msg, args...)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(append([]interface{}{msg}, args...)...)
	l.local.Error(msg, args...)
}

// Close flushes pending Rollbar reports.
func (l *RollbarLogger) Close() {
	rollbar.Wait()
}
