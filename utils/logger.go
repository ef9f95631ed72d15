package utils

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// ANSI colour codes
const (
	reset  = "\033[0m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	blue   = "\033[34m"
	grey   = "\033[90m"
	cyan   = "\033[36m"
)

var (
	mu      sync.Mutex
	out     io.Writer = os.Stderr
	verbose bool
)

// SetOutput redirects log lines. Stdout is left for the report.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

func ts() string {
	return time.Now().Format("15:04:05")
}

func logf(colour, level, format string, a ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, "%s[%s] %-7s %s%s\n", colour, ts(), level, fmt.Sprintf(format, a...), reset)
}

func Info(format string, a ...interface{}) {
	logf(blue, "[INFO]", format, a...)
}

func Success(format string, a ...interface{}) {
	logf(green, "[OK]", format, a...)
}

func Warn(format string, a ...interface{}) {
	logf(yellow, "[WARN]", format, a...)
}

func Error(format string, a ...interface{}) {
	logf(red, "[ERROR]", format, a...)
}

func Debug(format string, a ...interface{}) {
	mu.Lock()
	on := verbose
	mu.Unlock()
	if on {
		logf(grey, "[DEBUG]", format, a...)
	}
}

func Section(title string) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, "\n%s[%s] ══════════ %s ══════════%s\n\n", cyan, ts(), title, reset)
}
