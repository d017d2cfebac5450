// Package logger provides the leveled "name: message" logger mixin used
// throughout the stress client, mirroring the log.Printf style the rest
// of this codebase's ancestry uses for component logging.
package logger

import (
	"fmt"
	"log"
	"sync/atomic"
)

// Level mirrors the original client's Error/Warning/Info/Verbose/Trace
// ladder: a higher number is more chatty, and messages only print when
// their level is at or below the current global threshold.
type Level int32

const (
	Error Level = iota + 1
	Warning
	Info
	Verbose
	Trace
)

func (l Level) prefix() string {
	switch l {
	case Error:
		return "ERROR: "
	case Warning:
		return "WARNING: "
	default:
		return ""
	}
}

var globalLevel int32 = int32(Error)

// SetGlobalLevel changes the threshold above which Logger.Log calls are
// silently dropped. It affects every Logger in the process.
func SetGlobalLevel(level Level) {
	atomic.StoreInt32(&globalLevel, int32(level))
}

func currentLevel() Level {
	return Level(atomic.LoadInt32(&globalLevel))
}

// Logger is a named mixin: embed it in a struct to give that struct a
// Log method tagged with its own name, the way the original client
// embedded Logger into Client and Pad.
type Logger struct {
	name string
}

// New returns a Logger tagged with name, used as the "component: "
// prefix on every line it emits.
func New(name string) Logger {
	return Logger{name: name}
}

// Log prints message at level if level is at or below the global
// threshold, formatted as "name: message" with an ERROR:/WARNING:
// prefix for those two levels.
func (l Logger) Log(level Level, format string, args ...interface{}) {
	if level > currentLevel() {
		return
	}
	message := fmt.Sprintf(format, args...)
	log.Print(level.prefix(), l.name, ": ", message)
}

func (l Logger) Errorf(format string, args ...interface{})   { l.Log(Error, format, args...) }
func (l Logger) Warningf(format string, args ...interface{}) { l.Log(Warning, format, args...) }
func (l Logger) Infof(format string, args ...interface{})    { l.Log(Info, format, args...) }
func (l Logger) Verbosef(format string, args ...interface{}) { l.Log(Verbose, format, args...) }
func (l Logger) Tracef(format string, args ...interface{})   { l.Log(Trace, format, args...) }
