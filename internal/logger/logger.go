package logger

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

type Logger struct {
	l logrus.FieldLogger
}

type Conf struct {
	Out   io.Writer
	Level string
	JSON  bool
}

func New(conf Conf) *Logger {
	base := logrus.New()

	if conf.Out != nil {
		base.SetOutput(conf.Out)
	}

	level, err := logrus.ParseLevel(conf.Level)
	if err != nil {
		level = logrus.InfoLevel
	}

	base.SetLevel(level)

	if conf.JSON {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		//nolint:exhaustruct
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &Logger{l: base}
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() *Logger {
	return New(Conf{Out: io.Discard, Level: "panic", JSON: false})
}

func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{l: l.l.WithField(key, value)}
}

func (l *Logger) WithFields(fields map[string]any) *Logger {
	return &Logger{l: l.l.WithFields(logrus.Fields(fields))}
}

func (l *Logger) LogErrorf(format string, v ...any) {
	l.l.Error(fmt.Sprintf(format, v...))
}

func (l *Logger) LogInfo(format string, v ...any) {
	l.l.Info(fmt.Sprintf(format, v...))
}

func (l *Logger) LogDebug(format string, v ...any) {
	l.l.Debug(fmt.Sprintf(format, v...))
}
