package sink

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Logger is the logging interface used throughout this package. It is
// satisfied by *logrus.Logger, which is what newLogger returns.
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
	Warn(...interface{})
	Error(...interface{})
	Debugf(string, ...interface{})
	Infof(string, ...interface{})
	Warnf(string, ...interface{})
	Errorf(string, ...interface{})
}

var debug bool

func init() {
	var err error
	debug, err = strconv.ParseBool(os.Getenv("SINK_DEBUG"))
	if err != nil {
		debug = false
	}
}

// newLogger returns a new logrus-backed logger. Verbosity is
// controlled by the SINK_DEBUG environment variable.
func newLogger() *logrus.Logger {
	l := logrus.New()
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

type silentLogger struct{}

func (silentLogger) Debug(...interface{}) {}
func (silentLogger) Info(...interface{})  {}
func (silentLogger) Warn(...interface{})  {}
func (silentLogger) Error(...interface{}) {}

func (silentLogger) Debugf(string, ...interface{}) {}
func (silentLogger) Infof(string, ...interface{})  {}
func (silentLogger) Warnf(string, ...interface{})  {}
func (silentLogger) Errorf(string, ...interface{}) {}

var defaultLogger Logger = silentLogger{}
