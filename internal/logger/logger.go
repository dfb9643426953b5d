// Package logger builds the zap logger shared by every component.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// SplitFileMaxSize is the rotation size in megabytes.
	SplitFileMaxSize = 100
	DefaultLevel     = zapcore.InfoLevel
)

// Options controls where and how verbosely the logger writes.
type Options struct {
	Debug bool
	// File is the rotated log file path; empty logs to stderr.
	File string
}

// Logger wraps a sugared zap logger and its rotated file, when any.
type Logger struct {
	*zap.SugaredLogger
	syncFile *lumberjack.Logger
}

// New creates a JSON logger writing to a rotated file or to stderr.
func New(opts Options) *Logger {
	level := DefaultLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	var (
		writer   zapcore.WriteSyncer
		syncFile *lumberjack.Logger
	)
	if opts.File != "" {
		syncFile = &lumberjack.Logger{
			Filename:  opts.File,
			MaxSize:   SplitFileMaxSize,
			LocalTime: true,
			Compress:  true,
		}
		writer = zapcore.AddSync(syncFile)
	} else {
		writer = zapcore.Lock(os.Stderr)
	}

	encoder := zap.NewProductionEncoderConfig()
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoder), writer, zap.NewAtomicLevelAt(level))

	return &Logger{
		SugaredLogger: zap.New(core, zap.AddCaller()).Sugar(),
		syncFile:      syncFile,
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Named returns a child sugared logger for a component.
func (l *Logger) Named(name string) *zap.SugaredLogger {
	return l.SugaredLogger.Named(name)
}

// Close flushes buffered entries and closes the rotated file.
func (l *Logger) Close() error {
	// Sync on stderr returns EINVAL on some platforms; only a file sync matters.
	_ = l.Sync()
	if l.syncFile != nil {
		return l.syncFile.Close()
	}
	return nil
}
