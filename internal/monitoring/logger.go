// Package monitoring holds the process-wide diagnostic logger used by the
// multilateration pipeline and its collaborators.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. Defaults to log.Printf;
// tests and embedders can redirect or mute it through SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
