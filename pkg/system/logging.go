// Package system holds process-level helpers: logger construction and build
// version metadata.
package system

import (
	stdlog "log"

	"go.uber.org/zap"
)

// NewLogger builds the process logger. Debug mode switches to the
// development config (console encoding, DebugLevel).
func NewLogger(debug bool) *zap.SugaredLogger {
	var zlog *zap.Logger
	var err error
	if debug {
		zlog, err = zap.NewDevelopment()
	} else {
		zlog, err = zap.NewProduction()
	}
	if err != nil {
		stdlog.Fatalf("failed to set up logger: %v", err)
	}
	return zlog.Sugar()
}
