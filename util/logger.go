// Package util provides low-level helpers shared by all other packages.
package util

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// zap has no level between Debug and Info, so verbose maps onto Debug and
// debug gets a custom level one step lower.
const (
	zapVerbose = zapcore.DebugLevel
	zapDebug   = zapcore.DebugLevel - 1
)

// LogOptions configures a Logger built by [NewLoggerWith].
type LogOptions struct {
	Verbosity int
	Format    string // "console" (default) or "json"

	// File, when set, receives a copy of every line through a rotating
	// lumberjack writer.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger writes levelled messages to stderr with optional timestamps
// and level prefixes.  It is backed by a zap core so the same calls can
// also feed a JSON encoder or a rotating log file.
type Logger struct {
	level      LogLevel
	format     string
	output     io.Writer
	file       *lumberjack.Logger
	timestamps bool // if true, prepend timestamps

	mu    sync.Mutex
	sugar *zap.SugaredLogger
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).
func NewLogger(verbosity int) *Logger {
	return NewLoggerWith(LogOptions{Verbosity: verbosity})
}

// NewLoggerWith builds a Logger from opts.
func NewLoggerWith(opts LogOptions) *Logger {
	l := &Logger{
		level:      LogLevel(opts.Verbosity),
		format:     strings.ToLower(opts.Format),
		output:     os.Stderr,
		timestamps: opts.Verbosity >= 3 || opts.File != "", // auto-enable in debug mode
	}
	if opts.File != "" {
		l.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    max(opts.MaxSizeMB, 10),
			MaxBackups: max(opts.MaxBackups, 1),
			MaxAge:     max(opts.MaxAgeDays, 7),
		}
	}
	l.rebuild()
	return l
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timestamps = on
	l.rebuild()
}

// SetOutput overrides the output writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
	l.rebuild()
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// Info prints when verbosity ≥ 1.  Prefixed with [INF].
func (l *Logger) Info(format string, args ...interface{}) {
	l.write(zapcore.InfoLevel, format, args...)
}

// Warn prints when verbosity ≥ 1.  Prefixed with [WRN].
func (l *Logger) Warn(format string, args ...interface{}) {
	l.write(zapcore.WarnLevel, format, args...)
}

// Verbose prints when verbosity ≥ 2.  Prefixed with [VRB].
func (l *Logger) Verbose(format string, args ...interface{}) {
	l.write(zapVerbose, format, args...)
}

// Debug prints when verbosity ≥ 3.  Prefixed with [DBG].
func (l *Logger) Debug(format string, args ...interface{}) {
	l.write(zapDebug, format, args...)
}

// Error always prints regardless of verbosity.  Prefixed with [ERR].
func (l *Logger) Error(format string, args ...interface{}) {
	l.write(zapcore.ErrorLevel, format, args...)
}

// Log reports an operator-visible event at normal verbosity.
func (l *Logger) Log(msg string) {
	l.Info("%s", msg)
}

// LogErr reports an operator-visible event together with its cause.
func (l *Logger) LogErr(msg string, err error) {
	if err == nil {
		l.Error("%s", msg)
		return
	}
	l.Error("%s: %v", msg, err)
}

// Sync flushes buffered output.
func (l *Logger) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sugar.Sync()
}

// Close flushes output and releases the log file, if any.
func (l *Logger) Close() error {
	_ = l.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) write(lvl zapcore.Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sugar.Logf(lvl, format, args...)
}

// rebuild reassembles the zap core.  Callers hold l.mu, except during
// construction.
func (l *Logger) rebuild() {
	enc := l.encoder()
	enabler := zap.LevelEnablerFunc(l.enabled)

	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.AddSync(l.output), enabler)}
	if l.file != nil {
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(l.file), enabler))
	}
	l.sugar = zap.New(zapcore.NewTee(cores...)).Sugar()
}

func (l *Logger) enabled(lvl zapcore.Level) bool {
	switch {
	case lvl >= zapcore.ErrorLevel:
		return true
	case lvl >= zapcore.InfoLevel:
		return l.level >= LogNormal
	case lvl == zapVerbose:
		return l.level >= LogVerbose
	default:
		return l.level >= LogDebug
	}
}

func (l *Logger) encoder() zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      encodeLevel,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}
	if l.timestamps {
		cfg.TimeKey = "ts"
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	}
	if l.format == "json" {
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339Nano)
		return zapcore.NewJSONEncoder(cfg)
	}
	return zapcore.NewConsoleEncoder(cfg)
}

// encodeLevel renders the short bracketed tags used on the console.
func encodeLevel(lvl zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch {
	case lvl >= zapcore.ErrorLevel:
		enc.AppendString("[ERR]")
	case lvl == zapcore.WarnLevel:
		enc.AppendString("[WRN]")
	case lvl == zapcore.InfoLevel:
		enc.AppendString("[INF]")
	case lvl == zapVerbose:
		enc.AppendString("[VRB]")
	default:
		enc.AppendString("[DBG]")
	}
}
