package monitoring

import (
	"fmt"
	"log"
)

// Logf is the package-level diagnostic logger used by the decoder and the
// converter. It defaults to log.Printf but may be replaced by SetLogger.
// Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Capture redirects Logf into a slice for the lifetime of a test and returns
// a function that reports the formatted lines collected so far. The previous
// logger is restored by the returned restore function.
func Capture() (lines func() []string, restore func()) {
	prev := Logf
	var got []string
	Logf = func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	}
	return func() []string { return got }, func() { Logf = prev }
}
