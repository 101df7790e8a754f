// Package log wraps charmbracelet/log with the level styles used by dtshconf.
package log

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	cblog "github.com/charmbracelet/log"
)

// Logger embeds the Charm Logger.
type Logger struct{ *cblog.Logger }

// Level is a logging level.
type Level = cblog.Level

// Levels.
const (
	DebugLevel = cblog.DebugLevel
	InfoLevel  = cblog.InfoLevel
	WarnLevel  = cblog.WarnLevel
	ErrorLevel = cblog.ErrorLevel
)

// ParseLevel parses a level name (debug, info, warn, error).
func ParseLevel(s string) (Level, error) {
	return cblog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
}

func styles() *cblog.Styles {
	s := cblog.DefaultStyles()
	s.Levels[cblog.FatalLevel] = lipgloss.NewStyle().
		SetString(" FATAL").
		Foreground(lipgloss.Color("1"))
	s.Levels[cblog.ErrorLevel] = lipgloss.NewStyle().
		SetString(" ERROR").
		Foreground(lipgloss.Color("9"))
	s.Levels[cblog.WarnLevel] = lipgloss.NewStyle().
		SetString("  WARN").
		Foreground(lipgloss.Color("3"))
	s.Levels[cblog.InfoLevel] = lipgloss.NewStyle().
		SetString("  INFO").
		Foreground(lipgloss.Color("2"))
	s.Levels[cblog.DebugLevel] = lipgloss.NewStyle().
		SetString(" DEBUG").
		Foreground(lipgloss.Color("4"))
	return s
}

// New creates a logger writing to w at level.
func New(w io.Writer, level Level) *Logger {
	base := cblog.New(w)
	base.SetStyles(styles())
	base.SetReportTimestamp(false)
	base.SetLevel(level)
	base.SetPrefix("dtsh")
	return &Logger{base}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, ErrorLevel)
}

var (
	logger     *Logger
	initLogger sync.Once
)

// GetLogger returns the process logger, writing to stderr at InfoLevel.
func GetLogger() *Logger {
	initLogger.Do(func() {
		logger = New(os.Stderr, InfoLevel)
	})
	return logger
}
