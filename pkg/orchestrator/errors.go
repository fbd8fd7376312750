package orchestrator

import "errors"


var (
	// ErrTranscriptionFailed wraps an STT provider failure on the
	// direct-audio path so callers can match it with errors.Is instead of
	// string-matching the underlying provider error.
	ErrTranscriptionFailed = errors.New("speech-to-text transcription failed")

	// ErrRunSuperseded names a pipeline run replaced by a newer run for the
	// same session. No code in this module returns it: Session.BeginRun
	// stops the older run through its cancel handle.
	ErrRunSuperseded = errors.New("pipeline run superseded by a newer run")

	// ErrEmptyReply names a blank LLM completion. No code in this module
	// returns it: RunText retries an empty direct-text reply once by
	// checking the attempt's result.
	ErrEmptyReply = errors.New("language model returned an empty reply")

	// ErrNoActiveRun names a cancel/barge_in for a session with nothing in
	// flight. No code in this module returns it: Session.CancelActiveRun
	// does nothing in that case.
	ErrNoActiveRun = errors.New("no active pipeline run for session")

	// ErrUnsupportedEngine is returned by the TTS engine selector for an
	// engine name outside the closed set (cloud, local_fast, local_clone).
	ErrUnsupportedEngine = errors.New("unsupported tts engine")

	// ErrWorkerCapacity is returned when the worker orchestrator is asked
	// to join a meeting beyond its configured concurrency cap.
	ErrWorkerCapacity = errors.New("worker orchestrator at capacity")

	// ErrMeetingNotFound is returned by leave/status lookups against an
	// unknown meeting ID.
	ErrMeetingNotFound = errors.New("meeting worker not found")
)
