// Package logger
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger interface {
	Init(path string)
	InitMultiWriter(path string)
	InitConsole(debug bool)

	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Fatal(msg string)
	Debug(msg string)

	WithStr(key, value string) Logger
	WithBool(key string, value bool) Logger
	WithInt(key string, value int) Logger
	WithErr(err error) Logger
	WithAny(key string, value any) Logger
}

type logger struct {
	base zerolog.Logger
	path string
}

func New() Logger {
	return &logger{
		base: zerolog.Nop(),
		path: "./logs/lanmsg.log",
	}
}

// Nop discards everything, for tests and library users that don't care.
func Nop() Logger {
	return &logger{base: zerolog.Nop()}
}

func (l *logger) rotating() io.Writer {
	return &lumberjack.Logger{
		Filename:   l.path,
		MaxSize:    5,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}
}

func (l *logger) Init(path string) {
	if path != "" {
		l.path = path
	}

	l.base = zerolog.New(l.rotating()).
		With().
		Timestamp().
		Logger()
}

func (l *logger) InitMultiWriter(path string) {
	if path != "" {
		l.path = path
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	multi := zerolog.MultiLevelWriter(console, l.rotating())

	l.base = zerolog.New(multi).
		With().
		Timestamp().
		Logger()
}

func (l *logger) InitConsole(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	l.base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func (l *logger) Info(msg string) {
	l.base.Info().Msg(msg)
}

func (l *logger) Warn(msg string) {
	l.base.Warn().Msg(msg)
}

func (l *logger) Fatal(msg string) {
	l.base.Fatal().Msg(msg)
}

func (l *logger) Error(msg string) {
	l.base.Error().Msg(msg)
}

func (l *logger) Debug(msg string) {
	l.base.Debug().Msg(msg)
}

func (l *logger) WithStr(key, value string) Logger {
	return &logger{base: l.base.With().Str(key, value).Logger(), path: l.path}
}

func (l *logger) WithBool(key string, value bool) Logger {
	return &logger{base: l.base.With().Bool(key, value).Logger(), path: l.path}
}

func (l *logger) WithInt(key string, value int) Logger {
	return &logger{base: l.base.With().Int(key, value).Logger(), path: l.path}
}

func (l *logger) WithErr(err error) Logger {
	return &logger{base: l.base.With().Err(err).Logger(), path: l.path}
}

func (l *logger) WithAny(key string, value any) Logger {
	return &logger{base: l.base.With().Interface(key, value).Logger(), path: l.path}
}

func LogPath(path string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	logDir := filepath.Join(homeDir, "lanmsg", path)

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, "lanmsg.log")
	return logPath, nil
}
