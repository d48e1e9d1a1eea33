package svgpng

import "github.com/flanksource/commons/logger"

// Logger is the logging surface used by the conversion pipeline.
// The default forwards to the process-wide flanksource commons logger.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type commonsLogger struct{}

func (commonsLogger) Debugf(format string, args ...interface{}) { logger.Debugf(format, args...) }
func (commonsLogger) Infof(format string, args ...interface{})  { logger.Infof(format, args...) }
func (commonsLogger) Warnf(format string, args ...interface{})  { logger.Warnf(format, args...) }
func (commonsLogger) Errorf(format string, args ...interface{}) { logger.Errorf(format, args...) }

// DefaultLogger returns the Logger used when none is configured.
func DefaultLogger() Logger {
	return commonsLogger{}
}

type discardLogger struct{}

func (discardLogger) Debugf(string, ...interface{}) {}
func (discardLogger) Infof(string, ...interface{})  {}
func (discardLogger) Warnf(string, ...interface{})  {}
func (discardLogger) Errorf(string, ...interface{}) {}

// DiscardLogger returns a Logger that drops every message.
func DiscardLogger() Logger {
	return discardLogger{}
}
