// Package errors provides error wrapping helpers that add inline, single
// frame call-site information to error messages, without the cost of a
// full stack trace on every wrap.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Is and As are re-exported so callers wrapping with Trace don't also need
// to import the standard errors package.
var (
	Is = errors.Is
	As = errors.As
	New = errors.New
)

// Trace wraps err with the caller's function name and line number. It
// returns nil if err is nil, so it is safe to use as `return errors.Trace(err)`
// at the end of any function.
func Trace(err error) error {
	if err == nil {
		return nil
	}
	pc, _, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s#%d: %w", funcName(pc), line, err)
}

// Tracef returns a new error built from the formatted message, wrapped
// with the caller's function name and line number.
func Tracef(format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)
	pc, _, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s#%d: %w", funcName(pc), line, err)
}

// TraceMsg wraps err with the caller's function name and line number plus
// an additional message, e.g. errors.TraceMsg(err, "while reading header").
func TraceMsg(err error, message string) error {
	if err == nil {
		return nil
	}
	pc, _, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s#%d: %s: %w", funcName(pc), line, message, err)
}

func funcName(pc uintptr) string {
	name := runtime.FuncForPC(pc).Name()
	if i := strings.LastIndex(name, "/"); i != -1 {
		name = name[i+1:]
	}
	return name
}
