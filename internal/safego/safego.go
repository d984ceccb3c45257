// Package safego runs background work so that a panic is logged instead of
// taking the server down.
package safego

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// PanicError is returned by Run when fn panicked
type PanicError struct {
	Task  string
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Task, e.Value)
}

// Run calls fn and converts a panic into a *PanicError
func Run(task string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Task: task, Value: r, Stack: debug.Stack()}
		}
	}()
	fn()
	return nil
}

// Go runs fn in a new goroutine. A panic is recovered and logged with the task
// name and stack trace. Used for audit writes, rate limiter cleanup and the DB
// stats collector.
func Go(task string, fn func()) {
	go func() {
		if err := Run(task, fn); err != nil {
			var stack string
			if pe, ok := err.(*PanicError); ok {
				stack = string(pe.Stack)
			}
			slog.Error("recovered panic in background goroutine",
				"task", task,
				"error", err,
				"stack", stack,
			)
		}
	}()
}
