package openscreen

import (
	"log"
	"os"
)

// Logger is the logging sink accepted by Config, matching
// availability.Logger's shape exactly so it can be passed straight through.
type Logger interface {
	Log(f string, v ...interface{})
	IsDebug() bool
}

// NewLogger returns a Logger that writes to stdout using a standard Go
// logger.
func NewLogger(isDebug bool) Logger {
	return standardLogger{
		isDebug,
		log.New(os.Stdout, "", log.LstdFlags),
	}
}

type standardLogger struct {
	isDebug bool
	logger  *log.Logger
}

func (l standardLogger) Log(f string, v ...interface{}) {
	l.logger.Printf(f, v...)
}

func (l standardLogger) IsDebug() bool {
	return l.isDebug
}
