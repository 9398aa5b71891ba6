// Package cmd provides common command-line entry-point helpers shared by
// uacme's binary.
package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

// FailOnError logs msg and the error, then exits the process with status 1,
// if err is non-nil. It is a no-op otherwise.
func FailOnError(err error, msg string) {
	if err == nil {
		return
	}
	log.Printf("[!] %s - %s", msg, err)
	os.Exit(1)
}

// SignalContext returns a context that is canceled on SIGINT, SIGTERM, or
// SIGHUP, and a stop function the caller should defer to release the
// underlying signal notification.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
}

type ctxKey int

const verbosityKey ctxKey = iota

// WithVerbosity returns a context carrying the process's log verbosity
// level, the only process-wide setting uacme has. Passing it through the
// context keeps the packages below free of globals.
func WithVerbosity(ctx context.Context, level int) context.Context {
	return context.WithValue(ctx, verbosityKey, level)
}

// Verbosity returns the log verbosity carried by ctx, or 0.
func Verbosity(ctx context.Context) int {
	if v, ok := ctx.Value(verbosityKey).(int); ok {
		return v
	}
	return 0
}

// VLog logs via the standard logger when ctx carries a verbosity of at
// least level.
func VLog(ctx context.Context, level int, format string, args ...interface{}) {
	if Verbosity(ctx) >= level {
		log.Printf(format, args...)
	}
}
