package logging

import (
	"fmt"
	"io"
	"os"
)

// EarlyLog writes plain lines before the structured logger is configured.
// Only Fatal exits the process.
type EarlyLog struct {
	service string
	out     io.Writer
	errOut  io.Writer
	exit    func(int)
}

func NewEarlyLog(service string) *EarlyLog {
	return &EarlyLog{service: service, out: os.Stdout, errOut: os.Stderr, exit: os.Exit}
}

func (l *EarlyLog) write(w io.Writer, level, msg string, args ...interface{}) {
	if l.service != "" {
		fmt.Fprintf(w, "%s [%s]: %s\n", level, l.service, fmt.Sprintf(msg, args...))
		return
	}
	fmt.Fprintf(w, "%s: %s\n", level, fmt.Sprintf(msg, args...))
}

func (l *EarlyLog) Error(msg string, args ...interface{}) {
	l.write(l.errOut, "ERROR", msg, args...)
}

func (l *EarlyLog) Fatal(msg string, args ...interface{}) {
	l.write(l.errOut, "FATAL", msg, args...)
	l.exit(1)
}

func (l *EarlyLog) Warn(msg string, args ...interface{}) {
	l.write(l.errOut, "WARN", msg, args...)
}

func (l *EarlyLog) Info(msg string, args ...interface{}) {
	l.write(l.out, "INFO", msg, args...)
}
