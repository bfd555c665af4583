package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// TimeLayout is the record timestamp: UTC, millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// SetupError means the log destination could not be created or opened.
type SetupError struct {
	Path string
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("log file %s: %v", e.Path, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

type TrailOptions struct {
	MaxSizeMB  int       // rotate after this many megabytes
	MaxBackups int       // rotated files to keep
	Echo       io.Writer // when set, every record is mirrored here
}

// Trail is the durable, append-only record of smoketest outcomes. Each
// record is one line: `<timestamp> message="<text>"`.
type Trail struct {
	log    *zap.Logger
	closer io.Closer
}

// NewTrail opens a rotating trail at path. The file is created up front
// so an unusable destination fails at startup rather than on first write.
func NewTrail(path string, opts TrailOptions) (*Trail, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &SetupError{Path: path, Err: err}
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &SetupError{Path: path, Err: err}
	}
	_ = f.Close()

	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 1
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 5
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB, // MB
		MaxBackups: opts.MaxBackups,
	}
	t := NewTrailWriter(zapcore.AddSync(lj), opts.Echo)
	t.closer = lj
	return t, nil
}

// NewTrailWriter builds a trail over an arbitrary sink.
func NewTrailWriter(w zapcore.WriteSyncer, echo io.Writer) *Trail {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "ts",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       recordTime,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	})
	core := zapcore.NewCore(enc, w, zap.DebugLevel)
	if echo != nil {
		core = zapcore.NewTee(core, zapcore.NewCore(enc.Clone(), zapcore.Lock(zapcore.AddSync(echo)), zap.DebugLevel))
	}
	return &Trail{log: zap.New(core)}
}

func recordTime(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format(TimeLayout))
}

// FormatMessage renders the message part of a record. Semicolons are the
// downstream field delimiter and are replaced with tabs.
func FormatMessage(msg string) string {
	return `message="` + strings.ReplaceAll(strings.TrimSpace(msg), ";", "\t") + `"`
}

// Record appends one outcome line.
func (t *Trail) Record(msg string) {
	t.log.Info(FormatMessage(msg))
}

func (t *Trail) Sync() error { return t.log.Sync() }

// Close flushes and releases the underlying file, if any.
func (t *Trail) Close() error {
	_ = t.log.Sync()
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}
