/*
Package logx wraps zerolog for the Chatyni server.

The process has one global logger, configured once at startup. Services take a child
logger tagged with their component name through Component; requests and chat sessions
add the acting username through ForUser or TagUser. The package-level Info, Warn, Error,
and Fatal helpers take alternating key-value fields for call sites that have no child
logger at hand.
*/
package logx

import (
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ServiceName is attached to every line written by the global logger.
const ServiceName = "chatyni"

// InitGlobalLogger configures the global logger. Development writes colored console
// lines at Debug level to stderr; every other environment writes JSON at Info level to
// stdout. Lines carry a Unix timestamp, the caller, and the service name.
func InitGlobalLogger(isDevelopment bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var logger zerolog.Logger
	if isDevelopment {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			Level(zerolog.DebugLevel)
	} else {
		logger = zerolog.New(os.Stdout).Level(zerolog.InfoLevel)
	}

	log.Logger = logger.With().
		Timestamp().
		Caller().
		Str("service", ServiceName).
		Logger()
}

// Logger returns the global logger.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// Component returns a child of the global logger tagged with component. Extra fields are
// given as alternating keys and values.
func Component(component string, fields ...any) zerolog.Logger {
	ctx := Logger().With().Str("component", component)
	if fields = checkFields("Component", fields); fields != nil {
		ctx = ctx.Fields(fields)
	}
	return ctx.Logger()
}

// ForUser returns a child of l tagged with the username it acts for.
func ForUser(l zerolog.Logger, username string) *zerolog.Logger {
	child := l.With().Str("username", username).Logger()
	return &child
}

// checkFields drops an odd-length field list, which zerolog would otherwise panic on,
// and reports the mistake.
func checkFields(caller string, fields []any) []any {
	if len(fields)%2 == 0 {
		return fields
	}

	Logger().Warn().
		Int("fields_count", len(fields)).
		Str("log_call", caller).
		Msgf("Odd number of log fields passed to %s; fields ignored: %v", caller, fields)
	return nil
}

func emit(evt *zerolog.Event, caller, msg string, fields []any) {
	evt.Fields(checkFields(caller, fields)).
		CallerSkipFrame(2).
		Msg(msg)
}

// Info logs msg at Info level with key-value fields.
func Info(msg string, fields ...any) {
	emit(Logger().Info(), "Info", msg, fields)
}

// Warn logs msg at Warn level with key-value fields.
func Warn(msg string, fields ...any) {
	emit(Logger().Warn(), "Warn", msg, fields)
}

// Error logs err and msg at Error level. err is also reported to Sentry when error
// reporting is enabled.
func Error(err error, msg string, fields ...any) {
	if err != nil && sentryEnabled.Load() {
		sentry.CaptureException(err)
	}

	emit(Logger().Error().Err(err), "Error", msg, fields)
}

// Fatal logs err and msg, then exits the process with status 1.
func Fatal(err error, msg string, fields ...any) {
	emit(Logger().Fatal().Err(err), "Fatal", msg, fields)
}
