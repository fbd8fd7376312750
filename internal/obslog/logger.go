// Package obslog wires the orchestrator.Logger/worker.Logger contract to
// zerolog.
package obslog

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Log is the process-wide logger instance, set by Init.
var Log zerolog.Logger

// Init configures Log for either a human-readable console (development)
// or structured JSON (production) destination.
func Init(isDevelopment bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	if isDevelopment {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
		Log = zerolog.New(output).With().Timestamp().Caller().Logger()
		return
	}
	Log = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// WithComponent scopes a logger to one subsystem (session, ambient,
// worker, ...).
func WithComponent(component string) zerolog.Logger {
	return Log.With().Str("component", component).Logger()
}

// WithSessionID scopes a logger to one voice session.
func WithSessionID(sessionID string) zerolog.Logger {
	return Log.With().Str("session_id", sessionID).Logger()
}

// WithMeetingID scopes a logger to one meeting-bot worker.
func WithMeetingID(meetingID string) zerolog.Logger {
	return Log.With().Str("meeting_id", meetingID).Logger()
}

// Adapter implements orchestrator.Logger and worker.Logger over a
// zerolog.Logger, translating their key/value variadic convention into
// zerolog's structured fields.
type Adapter struct {
	log zerolog.Logger
}

func NewAdapter(log zerolog.Logger) *Adapter {
	return &Adapter{log: log}
}

func (a *Adapter) Debug(msg string, args ...interface{}) { a.log.Debug().Fields(pairs(args)).Msg(msg) }
func (a *Adapter) Info(msg string, args ...interface{})  { a.log.Info().Fields(pairs(args)).Msg(msg) }
func (a *Adapter) Warn(msg string, args ...interface{})  { a.log.Warn().Fields(pairs(args)).Msg(msg) }
func (a *Adapter) Error(msg string, args ...interface{}) { a.log.Error().Fields(pairs(args)).Msg(msg) }

// pairs converts a flat key,value,key,value... slice (as used throughout
// pkg/orchestrator and pkg/worker) into a map zerolog's Fields accepts. A
// trailing unpaired key is logged as a boolean flag.
func pairs(args []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		if err, ok := args[i+1].(error); ok {
			fields[key] = err.Error()
			continue
		}
		fields[key] = args[i+1]
	}
	if len(args)%2 == 1 {
		if key, ok := args[len(args)-1].(string); ok {
			fields[key] = true
		}
	}
	return fields
}
