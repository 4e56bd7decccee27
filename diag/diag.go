// Package diag centralizes optional diagnostics for the expression
// engine: a nil-by-default hook that an embedding host can install to
// receive setup-time diagnostics without the library forcing a logging
// dependency on every caller's behalf.
package diag

import (
	"fmt"

	"go.uber.org/zap"
)

// Errorf is a global diagnostic hook. It is nil by default; embedding
// hosts that want visibility into setup-time failures can assign it.
var Errorf func(f string, args ...any)

func errorf(f string, args ...any) {
	if Errorf != nil {
		Errorf(f, args...)
	}
}

// Logger is an optional structured logger. When non-nil, Log also emits
// through it; when nil (the default), only Errorf is consulted.
var Logger *zap.Logger

// Log reports a diagnostic with the given structured fields, in addition
// to whatever Errorf does with the flattened message.
func Log(msg string, fields ...zap.Field) {
	if Logger != nil {
		Logger.Info(msg, fields...)
	}
	if Errorf != nil {
		errorf("%s", msg)
	}
}

// Flatten renders a setup-time error as the single "<name>: <message>"
// string the filter entry points return to the host.
func Flatten(filterName string, err error) error {
	if err == nil {
		return nil
	}
	errorf("%s: %v", filterName, err)
	return fmt.Errorf("%s: %w", filterName, err)
}
