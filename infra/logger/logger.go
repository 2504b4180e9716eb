package logger

import corelogger "github.com/kilianp07/fuelbuddy/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger discards everything.
type NopLogger = corelogger.NopLogger

// New returns a Logger for the given component. The output format follows the
// APP_ENV variable and the level follows SetLevel.
func New(component string) Logger {
	return NewZerologLogger(component)
}
