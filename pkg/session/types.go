// Package session owns the session/connection data model: the long-lived,
// reconnect-surviving per-user state (history, ambient context, replay
// buffer, sequence counters) and the short-lived duplex connection bound to
// it. Every mutable field on a Session is guarded by a single mutex — the
// "single owner, single lock" idiom removes the need for per-field locking
// and gives a clean place to serialize attach/detach against concurrent
// pipeline-run completions.
package session

import (
	"time"

	"github.com/lokutor-ai/lokutor-orchestrator/pkg/protocol"
)

// Turn is a single role-tagged conversation exchange. Assistant content is
// always emotion-tag-stripped final text; user content is a compact textual
// summary even when the original input was multimodal.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// AmbientEntry is a single accepted ambient-mode utterance. Entries are
// never mutated after creation, only appended and evicted.
type AmbientEntry struct {
	Text        string
	SpeakerLabel string
	IsOwner     bool
	Timestamp   time.Time
}

// replayItem is a previously emitted non-ephemeral envelope kept around for
// reconnect replay, along with the sequence number it was stamped with.
type replayItem struct {
	seq      uint64
	envelope protocol.Outbound
}

const (
	// MaxHistoryTurns bounds conversation history to the last N exchanges,
	// i.e. 2*N messages.
	MaxHistoryTurns = 10

	// MaxAmbientEntries bounds the ambient context buffer by count.
	MaxAmbientEntries = 20

	// AmbientWindow bounds the ambient context buffer by age.
	AmbientWindow = 5 * time.Minute

	// ReplayBufferSize bounds the outbound replay ring buffer.
	ReplayBufferSize = 40

	// IdleExpiry is how long a session survives with no attached connection.
	IdleExpiry = 5 * time.Minute

	// AuthGracePeriod is how long a fresh connection has to send a valid
	// auth envelope before being closed.
	AuthGracePeriod = 5 * time.Second
)
