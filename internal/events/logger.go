package events

import (
	"github.com/ThreeDotsLabs/watermill"

	"github.com/avstrong/bookingdesk/internal/logger"
)

// LoggerAdapter routes watermill's own logging through the service logger.
type LoggerAdapter struct {
	l *logger.Logger
}

func NewLoggerAdapter(l *logger.Logger) *LoggerAdapter {
	return &LoggerAdapter{l: l.WithField("component", "watermill")}
}

func (a *LoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.l.WithFields(fields).LogErrorf("%s: %v", msg, err)
}

func (a *LoggerAdapter) Info(msg string, fields watermill.LogFields) {
	a.l.WithFields(fields).LogInfo("%s", msg)
}

func (a *LoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	a.l.WithFields(fields).LogDebug("%s", msg)
}

func (a *LoggerAdapter) Trace(msg string, fields watermill.LogFields) {
	a.l.WithFields(fields).LogDebug("%s", msg)
}

func (a *LoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &LoggerAdapter{l: a.l.WithFields(fields)}
}
