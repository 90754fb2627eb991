// Package output provides terminal output utilities for the glabu CLI.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// logger is the package-level logger used by the helpers below.
var logger *log.Logger

func init() {
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
		ReportCaller:    false,
	})
}

// LogConfig controls logger construction.
type LogConfig struct {
	// Verbose enables debug level, caller reporting and forces timestamps on.
	Verbose bool

	// Timestamps controls whether timestamps are shown. Nil means true.
	Timestamps *bool
}

// SetupLogging configures the logger based on verbosity and timestamp settings.
func SetupLogging(cfg LogConfig) {
	level := log.InfoLevel
	if cfg.Verbose {
		level = log.DebugLevel
	}

	timestamps := true
	if cfg.Timestamps != nil {
		timestamps = *cfg.Timestamps
	}
	if cfg.Verbose {
		timestamps = true
	}

	logger = log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: timestamps,
		ReportCaller:    cfg.Verbose,
		TimeFormat:      "15:04:05",
	})
}

// SetLogWriter redirects log output, mainly for tests.
func SetLogWriter(w io.Writer) {
	logger.SetOutput(w)
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// ReleaseLogger returns a logger scoped to a release version.
func ReleaseLogger(version string) *log.Logger {
	return logger.WithPrefix(StyleDim.Render("release:") + StyleNoun.Render(version))
}

// ArchLogger returns a logger scoped to one target architecture of a release.
func ArchLogger(version, arch string) *log.Logger {
	return logger.WithPrefix(StyleDim.Render("release:") + StyleNoun.Render(version) + StyleDim.Render("/") + StyleNoun.Render(arch))
}

// PackageLogger returns a logger scoped to a package in a project.
func PackageLogger(project, name string) *log.Logger {
	return logger.WithPrefix(StyleDim.Render("pkg:") + StyleNoun.Render(fmt.Sprintf("%s/%s", project, name)))
}

// Debug logs a debug message.
func Debug(msg string, keyvals ...interface{}) {
	logger.Debug(msg, keyvals...)
}

// Info logs an info message.
func Info(msg string, keyvals ...interface{}) {
	logger.Info(msg, keyvals...)
}

// Warn logs a warning message.
func Warn(msg string, keyvals ...interface{}) {
	logger.Warn(msg, keyvals...)
}

// Error logs an error message.
func Error(msg string, keyvals ...interface{}) {
	logger.Error(msg, keyvals...)
}

// Details prints multi-line detail text to stderr without log decoration.
func Details(text string) {
	fmt.Fprintln(os.Stderr, text)
}

// Println prints a message to stdout with a newline.
func Println(msg string) {
	os.Stdout.WriteString(msg + "\n")
}
