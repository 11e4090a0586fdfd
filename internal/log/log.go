// Package log wraps a process-wide *logging.Logger for objectwire's
// diagnostic path: read-validation-callback failures (spec.md §7).
// cmd/owdump only adjusts its level; it prints its own output. Grounded on the teacher pack's daemon logging
// setup (kryptco-kr's logging.go), trimmed to a library's needs: no
// syslog backend, no env-var level switch, just a stderr backend at a
// caller-settable level.
package log

import (
	"os"

	"github.com/op/go-logging"
)

var logger = logging.MustGetLogger("objectwire")

var stderrFormat = logging.MustStringFormatter(
	`%{time:15:04:05.000} %{level:.4s} %{module} ▶ %{message}`,
)

func init() {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(backend, stderrFormat)
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(logging.WARNING, "")
	logging.SetBackend(leveled)
}

// SetLevel adjusts the minimum level objectwire's logger emits. Callers
// embedding objectwire as a library call this to quiet or raise its
// diagnostic output; the default is WARNING.
func SetLevel(level logging.Level) {
	logging.SetLevel(level, "objectwire")
}

// Logger returns the process-wide logger used by the read-validation
// diagnostic path.
func Logger() *logging.Logger { return logger }
