package nlog

import (
	"fmt"
	"io"
	"log"
	"sync"
)

type Logger interface {
	Logf(format string, v ...any)
}

type subsystemLogger struct {
	name   string
	logger *AppLogger
}

func (s *subsystemLogger) Logf(format string, v ...any) {
	s.logger.Logf(s.name, format, v...)
}

// AppLogger hands out per-subsystem loggers that all write to one stream.
// Logging can be toggled at runtime without touching the subsystems.
type AppLogger struct {
	lock           sync.RWMutex
	logMapper      map[string]*log.Logger
	out            io.Writer
	currentLogFunc func(*log.Logger, string, ...any)
}

func NewAppLogger(out io.Writer, logging bool) *AppLogger {
	a := &AppLogger{
		logMapper:      make(map[string]*log.Logger),
		out:            out,
		currentLogFunc: nilLogf,
	}
	if logging {
		a.currentLogFunc = defaultLogf
	}
	return a
}

func (a *AppLogger) RegisterSubsystem(name string) Logger {
	a.lock.Lock()
	defer a.lock.Unlock()

	if _, ok := a.logMapper[name]; !ok {
		a.logMapper[name] = log.New(a.out, fmt.Sprintf("[%s]: ", name), log.Ldate|log.Ltime)
	}
	return &subsystemLogger{name, a}
}

func (a *AppLogger) EnableLogging() {
	a.lock.Lock()
	a.currentLogFunc = defaultLogf
	a.lock.Unlock()
}

func (a *AppLogger) DisableLogging() {
	a.lock.Lock()
	a.currentLogFunc = nilLogf
	a.lock.Unlock()
}

func (a *AppLogger) Logf(name, format string, v ...any) {
	a.lock.RLock()
	logFunc := a.currentLogFunc
	logger, ok := a.logMapper[name]
	a.lock.RUnlock()

	if ok {
		logFunc(logger, format, v...)
	}
}

func defaultLogf(l *log.Logger, format string, a ...any) {
	l.Printf(format, a...)
}

func nilLogf(*log.Logger, string, ...any) {}

// Discard is a Logger that drops everything. Handy for tests.
type Discard struct{}

func (Discard) Logf(string, ...any) {}
