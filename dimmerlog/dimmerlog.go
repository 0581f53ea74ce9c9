// Package dimmerlog is a small prefix-tagged logger for the foreground
// lifecycle operations of dimmerd (config loading, Begin/End, backend
// failures). Nothing in the firing engine's zero-cross or alarm ISR
// paths calls it: those paths touch only the registry slots, GPIO pins
// and the fire timer, never an io.Writer, and keep no counters.
package dimmerlog

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

var (
	base         *log.Logger
	once         sync.Once
	debugEnabled bool
	debugMu      sync.RWMutex
)

// Init points the shared base logger at w in addition to stdout. Safe to
// call more than once; only the first call takes effect.
func Init(w io.Writer) {
	once.Do(func() {
		mw := io.MultiWriter(os.Stdout, w)
		base = log.New(mw, "", log.LstdFlags)
	})
}

func baseLogger() *log.Logger {
	if base == nil {
		once.Do(func() {
			base = log.New(os.Stdout, "", log.LstdFlags)
		})
	}
	return base
}

// EnableDebug turns Debug-level logging on or off process-wide.
func EnableDebug(on bool) {
	debugMu.Lock()
	debugEnabled = on
	debugMu.Unlock()
}

// Logger tags every line it writes with prefix, e.g. the name of the
// dimmer or subsystem that produced it.
type Logger struct {
	prefix string
}

// New returns a Logger tagged with prefix.
func New(prefix string) *Logger {
	return &Logger{prefix: prefix}
}

func (l *Logger) Info(fmtstr string, v ...any) {
	baseLogger().Printf("[%s] INFO: %s", l.prefix, fmt.Sprintf(fmtstr, v...))
}

func (l *Logger) Error(fmtstr string, v ...any) {
	baseLogger().Printf("[%s] ERROR: %s", l.prefix, fmt.Sprintf(fmtstr, v...))
}

func (l *Logger) Debug(fmtstr string, v ...any) {
	debugMu.RLock()
	enabled := debugEnabled
	debugMu.RUnlock()
	if !enabled {
		return
	}
	baseLogger().Printf("[%s] DEBUG: %s", l.prefix, fmt.Sprintf(fmtstr, v...))
}
