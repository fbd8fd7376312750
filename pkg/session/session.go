package session

import (
	"strings"
	"sync"
	"time"

	"github.com/lokutor-ai/lokutor-orchestrator/pkg/protocol"
)

// Sink is whatever can deliver an already-stamped outbound envelope to the
// physical connection currently attached to a session. Connection
// implements it; keeping the session package unaware of websockets keeps
// the dependency direction leaf-ward (protocol -> session -> transport).
type Sink interface {
	Send(protocol.Outbound) error
}

// Session is the long-lived, reconnect-surviving per-user state described
// in §3. All mutable fields are guarded by mu; callers never see a
// half-updated Session.
type Session struct {
	ID string

	mu sync.Mutex

	wakeName string

	history []Turn
	ambient []AmbientEntry

	outSeq       uint64
	replayBuf    []replayItem
	lastAcceptedCSeq int64

	conn       *Connection
	expiryTimer *time.Timer
	onExpire    func(sessionID string)

	// activeCancel, when non-nil, cancels the single in-flight pipeline run
	// for this session. activeGen identifies which run installed it, so a
	// run finishing after it has already been superseded can't clobber the
	// successor's cancel handle. runDone holds each generation's
	// completion channel, keyed by generation, so BeginRun can block until
	// a superseded run has actually finished (not merely been told to
	// cancel) before the new run is allowed to proceed.
	activeCancel func()
	activeGen    uint64
	runDone      map[uint64]chan struct{}
}

// NewSession creates a fresh session with the server-wide default wake-name.
// Per invariant (vi), a session's wake-name defaults to that name until
// explicitly overridden by set_bot_name.
func NewSession(id, defaultWakeName string) *Session {
	return &Session{
		ID:       id,
		wakeName: defaultWakeName,
	}
}

// Attach binds a connection to the session, cancels any pending expiry
// timer, and returns the buffered envelopes the caller must re-emit (marked
// replay) because their sequence number exceeds lastServerSeq. The returned
// slice preserves original order and original sequence numbers.
func (s *Session) Attach(conn *Connection, lastServerSeq uint64) (currentSeq uint64, toReplay []protocol.Outbound) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expiryTimer != nil {
		s.expiryTimer.Stop()
		s.expiryTimer = nil
	}
	s.conn = conn

	for _, item := range s.replayBuf {
		if item.seq > lastServerSeq {
			toReplay = append(toReplay, item.envelope)
		}
	}
	return s.outSeq, toReplay
}

// Detach unbinds the current connection and starts the idle-expiry timer.
// The in-flight run, if any, is left running: its completion will still
// deliver into the replay buffer for a future reconnect.
func (s *Session) Detach(onExpire func(sessionID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conn = nil
	s.onExpire = onExpire
	if s.expiryTimer != nil {
		s.expiryTimer.Stop()
	}
	s.expiryTimer = time.AfterFunc(IdleExpiry, func() {
		s.mu.Lock()
		expired := s.conn == nil
		cb := s.onExpire
		s.mu.Unlock()
		if expired && cb != nil {
			cb(s.ID)
		}
	})
}

// Send stamps env with the next sequence number, appends it to the replay
// buffer (unless ephemeral), and forwards it to the attached connection if
// any. It is the single choke point the outbound send contract in §4.1
// describes.
func (s *Session) Send(env protocol.Outbound) {
	s.mu.Lock()
	s.outSeq++
	seq := s.outSeq
	env.Stamp(seq, false)

	if !protocol.IsEphemeral(env.Kind()) {
		s.replayBuf = append(s.replayBuf, replayItem{seq: seq, envelope: env})
		if len(s.replayBuf) > ReplayBufferSize {
			s.replayBuf = s.replayBuf[len(s.replayBuf)-ReplayBufferSize:]
		}
	}
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Send(env)
	}
}

// AcceptCSeq reports whether an inbound envelope carrying cseq should be
// processed, and records it as the new high-water mark if so. A cseq of 0
// is treated as "not supplied" and is always accepted (never recorded),
// matching clients that don't bother with dedup hints on fire-and-forget
// messages like ping.
func (s *Session) AcceptCSeq(cseq int64) bool {
	if cseq == 0 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cseq <= s.lastAcceptedCSeq {
		return false
	}
	s.lastAcceptedCSeq = cseq
	return true
}

// AddTurn appends a conversation turn, trimming to the last MaxHistoryTurns
// exchanges (invariant v: history length <= 2*N messages).
func (s *Session) AddTurn(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, Turn{Role: role, Content: content})
	max := 2 * MaxHistoryTurns
	if len(s.history) > max {
		s.history = s.history[len(s.history)-max:]
	}
}

// HistoryCopy returns a defensive copy of the conversation history.
func (s *Session) HistoryCopy() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// ClearHistory empties the conversation history.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// AddAmbientEntry appends an ambient utterance and prunes entries older
// than AmbientWindow relative to the newest one, and beyond
// MaxAmbientEntries (invariant iv and §3 bound).
func (s *Session) AddAmbientEntry(e AmbientEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambient = append(s.ambient, e)
	s.pruneAmbientLocked()
}

func (s *Session) pruneAmbientLocked() {
	if len(s.ambient) == 0 {
		return
	}
	newest := s.ambient[len(s.ambient)-1].Timestamp
	cutoff := newest.Add(-AmbientWindow)
	i := 0
	for i < len(s.ambient) && s.ambient[i].Timestamp.Before(cutoff) {
		i++
	}
	s.ambient = s.ambient[i:]
	if len(s.ambient) > MaxAmbientEntries {
		s.ambient = s.ambient[len(s.ambient)-MaxAmbientEntries:]
	}
}

// AmbientContextCopy returns a defensive copy of the ambient context,
// oldest first.
func (s *Session) AmbientContextCopy() []AmbientEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AmbientEntry, len(s.ambient))
	copy(out, s.ambient)
	return out
}

// WakeName returns the session's current wake-name.
func (s *Session) WakeName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wakeName
}

// SetWakeName overrides the session's wake-name (set_bot_name).
func (s *Session) SetWakeName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(name) != "" {
		s.wakeName = name
	}
}

// BeginRun installs cancel as the active run's abort handle, first invoking
// any previously installed cancel and then blocking until that prior run has
// actually finished — its interrupted-commit history fixup included — before
// returning. This is the session-level enforcement of "exactly one pipeline
// run is active per session, and cancelling one must complete before the
// next begins" (invariant iii): a new run's status=thinking/history commit
// can never race ahead of the run it superseded. The returned generation
// must be passed to EndRun exactly once, when this run's body (including any
// interrupted-commit cleanup) has fully completed.
func (s *Session) BeginRun(cancel func()) (generation uint64) {
	s.mu.Lock()
	prevCancel := s.activeCancel
	prevDone := s.runDone[s.activeGen]
	s.activeGen++
	generation = s.activeGen
	s.activeCancel = cancel
	if s.runDone == nil {
		s.runDone = make(map[uint64]chan struct{})
	}
	s.runDone[generation] = make(chan struct{})
	s.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
	}
	if prevDone != nil {
		<-prevDone
	}
	return generation
}

// EndRun clears the active run's abort handle, but only if generation still
// matches the most recently begun run — a run that finishes after being
// superseded must not clobber its successor's handle. It always closes this
// generation's own completion channel, unblocking any BeginRun call waiting
// on it.
func (s *Session) EndRun(generation uint64) {
	s.mu.Lock()
	if s.activeGen == generation {
		s.activeCancel = nil
	}
	done := s.runDone[generation]
	delete(s.runDone, generation)
	s.mu.Unlock()
	if done != nil {
		close(done)
	}
}

// CancelActiveRun aborts whatever pipeline run is currently in flight, if
// any. Used by the connection's cancel/barge_in handlers.
func (s *Session) CancelActiveRun() {
	s.mu.Lock()
	cancel := s.activeCancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
