// Package telemetry builds the loggers and run metrics shared by the CLI,
// the explorer and the harness.
package telemetry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TraceFile is the conventional debug-trace name inside a provenance
// directory.
const TraceFile = "log.txt"

// LogOptions configures NewLogger.
type LogOptions struct {
	// Verbose lowers the console level to debug.
	Verbose bool
	// Console receives human-facing log lines. Defaults to os.Stderr.
	Console io.Writer
	// TracePath, when set, tees every debug entry into that file.
	TracePath string
}

// NewLogger builds a console logger, optionally teed into a trace file.
// The returned close function syncs the logger and closes the trace file.
func NewLogger(opts LogOptions) (*zap.Logger, func() error, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	if isTerminal(console) {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(zapcore.AddSync(console)), level),
	}

	var trace *os.File
	if opts.TracePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.TracePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create trace directory: %w", err)
		}
		f, err := os.Create(opts.TracePath)
		if err != nil {
			return nil, nil, fmt.Errorf("create trace log: %w", err)
		}
		trace = f
		traceCfg := zap.NewDevelopmentEncoderConfig()
		traceCfg.TimeKey = ""
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(traceCfg), zapcore.Lock(f), zapcore.DebugLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	closeFn := func() error {
		// Sync on a console attached to a terminal reports EINVAL; only the
		// trace file result matters.
		_ = logger.Sync()
		if trace != nil {
			return trace.Close()
		}
		return nil
	}
	return logger, closeFn, nil
}

// isTerminal reports whether w is a terminal. Piped and captured output
// gets no color codes.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
