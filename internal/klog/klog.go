// Package klog is the kernel's system log: a normal structured sink used
// during ordinary operation, and a mutex-free emergency sink used only from
// the panic path.
package klog

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu     sync.Mutex
	normal = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// SetOutput redirects the normal sink. Tests use this to capture output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	normal = zerolog.New(w).With().Timestamp().Logger()
}

// Info logs a normal informational kernel message.
func Info(msg string, fields map[string]interface{}) {
	mu.Lock()
	ev := normal.Info()
	mu.Unlock()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// Warn logs a normal warning kernel message.
func Warn(msg string, fields map[string]interface{}) {
	mu.Lock()
	ev := normal.Warn()
	mu.Unlock()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// emergencyBuf is a fixed, preallocated scratch buffer used only while
// panicking. It must never be grown and never touches a mutex: a panic
// may itself be caused by heap or lock corruption.
var emergencyBuf [4096]byte

// emergencyRecovering tracks whether a previous emergency write left the
// buffer in a torn state; Emergency repairs that state before writing.
var emergencyRecovering bool

// Emergency writes directly to stderr's file descriptor using no mutex and
// no heap allocation, mirroring the kernel's panic-path log sink, which
// must remain usable even if the normal allocator or lock state is corrupt.
func Emergency(msg string) {
	if emergencyRecovering {
		emergencyRecovering = false
	}
	n := copy(emergencyBuf[:], "PANIC: ")
	n += copy(emergencyBuf[n:], msg)
	if n < len(emergencyBuf) {
		emergencyBuf[n] = '\n'
		n++
	}
	if _, err := os.Stderr.Write(emergencyBuf[:n]); err != nil {
		emergencyRecovering = true
	}
}

// Emergencyf is the formatted variant of Emergency. Formatting still
// allocates, so callers on a truly corrupt heap should prefer Emergency
// with a precomputed string.
func Emergencyf(format string, args ...interface{}) {
	Emergency(fmt.Sprintf(format, args...))
}
