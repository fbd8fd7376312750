package orchestrator

import "time"

// RunLatency records per-stage timestamps for one pipeline run: time to
// the first LLM token and the first synthesized audio chunk, and total run
// duration. It is internal diagnostics only, logged at stream_done time;
// it adds no client-visible protocol surface.
type RunLatency struct {
	start      time.Time
	firstToken time.Time
	firstAudio time.Time
	end        time.Time
}

func newRunLatency() *RunLatency {
	return &RunLatency{start: time.Now()}
}

func (l *RunLatency) markFirstToken() {
	if l.firstToken.IsZero() {
		l.firstToken = time.Now()
	}
}

func (l *RunLatency) markFirstAudio() {
	if l.firstAudio.IsZero() {
		l.firstAudio = time.Now()
	}
}

func (l *RunLatency) markEnd() {
	l.end = time.Now()
}

// Breakdown returns the elapsed duration since run start to each milestone;
// a milestone never reached (e.g. no audio synthesized before cancellation)
// reports 0.
func (l *RunLatency) Breakdown() (toFirstToken, toFirstAudio, total time.Duration) {
	if !l.firstToken.IsZero() {
		toFirstToken = l.firstToken.Sub(l.start)
	}
	if !l.firstAudio.IsZero() {
		toFirstAudio = l.firstAudio.Sub(l.start)
	}
	if !l.end.IsZero() {
		total = l.end.Sub(l.start)
	}
	return toFirstToken, toFirstAudio, total
}
