package types

import (
	"os"

	"github.com/rulego/weave/utils/log"
)

// Logger is the logging contract of the container.
type Logger interface {
	Printf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// this is a safeguard, breaking on compile time in case
// the zap logger does not adhere to our `Logger` interface.
var _ Logger = &log.Zap{}

// DefaultLogger returns an info-level `Logger` writing JSON lines to stdout.
func DefaultLogger() Logger {
	return log.NewZap(log.InfoLevel, os.Stdout)
}

// DiscardLogger returns a `Logger` that drops everything.
func DiscardLogger() Logger {
	return log.Discard
}

func NewLogger(custom Logger) Logger {
	if custom != nil {
		return custom
	}

	return DefaultLogger()
}
