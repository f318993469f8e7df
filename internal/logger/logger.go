// Package logger is the leveled logger shared by the CLI and the MCP server.
// Debug, Info and Section lines appear only with --verbose; warnings and
// errors always do. Output goes to stderr so it never mixes with MCP stdio
// traffic on stdout.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

type level uint8

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

var prefixes = [...]string{
	levelDebug: "[DEBUG] ",
	levelInfo:  "[INFO] ",
	levelWarn:  "[WARN] ",
	levelError: "[ERROR] ",
}

// mu also serialises writes, so output need not be safe for concurrent use.
var (
	mu      sync.Mutex
	verbose bool
	output  io.Writer = os.Stderr
)

func SetVerbose(v bool) {
	mu.Lock()
	verbose = v
	mu.Unlock()
}

func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return verbose
}

// SetOutput redirects all log lines to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	output = w
	mu.Unlock()
}

func Output() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return output
}

func logf(lvl level, format string, args []any) {
	mu.Lock()
	defer mu.Unlock()
	if lvl < levelWarn && !verbose {
		return
	}
	fmt.Fprintf(output, prefixes[lvl]+format+"\n", args...)
}

func Debug(format string, args ...any) { logf(levelDebug, format, args) }

func Info(format string, args ...any) { logf(levelInfo, format, args) }

func Warn(format string, args ...any) { logf(levelWarn, format, args) }

func Error(format string, args ...any) { logf(levelError, format, args) }

// Section prints a "=== name ===" banner in verbose mode.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}
