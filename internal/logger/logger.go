// Package logger provides verbose logging for the Airbridge CLI.
// When verbose mode is enabled via the --verbose flag, debug messages
// are printed to stderr to help users follow the run pipeline. A run log
// sink can be attached so every message is also recorded under the run's
// output directory regardless of verbosity.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	sink    io.Writer
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for verbose logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// SetSink attaches a writer (typically the run's out.log) that receives
// every message with a timestamp, independent of verbose mode. Pass nil
// to detach.
func SetSink(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	sink = w
}

func log(level, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "["+level+"] "+format+"\n", args...)
	}
	if sink != nil {
		ts := time.Now().Format("2006-01-02 15:04:05")
		fmt.Fprintf(sink, ts+" - "+level+" - "+format+"\n", args...)
	}
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	log("DEBUG", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
	if sink != nil {
		ts := time.Now().Format("2006-01-02 15:04:05")
		fmt.Fprintf(sink, "%s - INFO - === %s ===\n", ts, name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	log("INFO", format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	log("WARN", format, args...)
}

// Error prints an error message. Unlike the other levels it is written
// even when verbose mode is off: failures should never be silent.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fmt.Fprintf(output, "[ERROR] "+format+"\n", args...)
	if sink != nil {
		ts := time.Now().Format("2006-01-02 15:04:05")
		fmt.Fprintf(sink, ts+" - ERROR - "+format+"\n", args...)
	}
}
