package worker

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	orch "github.com/lokutor-ai/lokutor-orchestrator/pkg/orchestrator"
)

// Logger mirrors orchestrator.Logger's shape so a single obslog logger
// satisfies both, without this package importing orchestrator for
// anything but its sentinel errors.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Orchestrator tracks the set of live meeting-bot containers and enforces
// the concurrency cap from §4.4.
type Orchestrator struct {
	runtime       Runtime
	image         string
	statusPort    string
	maxConcurrent int
	logger        Logger

	mu       sync.Mutex
	meetings map[string]*Meeting
}

func NewOrchestrator(runtime Runtime, image, statusPort string, maxConcurrent int, logger Logger) *Orchestrator {
	return &Orchestrator{
		runtime:       runtime,
		image:         image,
		statusPort:    statusPort,
		maxConcurrent: maxConcurrent,
		logger:        logger,
		meetings:      make(map[string]*Meeting),
	}
}

func newMeetingID() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// JoinMeeting launches a new meeting-bot container for the given
// external meeting URL and returns its allocated meeting ID.
func (o *Orchestrator) JoinMeeting(ctx context.Context, externalURL, botName string) (string, error) {
	o.mu.Lock()
	if o.activeCountLocked() >= o.maxConcurrent {
		o.mu.Unlock()
		return "", orch.ErrWorkerCapacity
	}
	id := newMeetingID()
	for o.meetings[id] != nil {
		id = newMeetingID()
	}
	sessionKey := "meet-" + id
	meeting := &Meeting{
		ID:          id,
		ExternalURL: externalURL,
		BotName:     botName,
		SessionKey:  sessionKey,
		State:       StateJoining,
		StartedAt:   timeNow(),
	}
	o.meetings[id] = meeting
	o.mu.Unlock()

	spec := ContainerSpec{
		Image: o.image,
		Labels: map[string]string{
			MeetWorkerLabel: "1",
			MeetingIDLabel:  id,
		},
		Env: []string{
			"MEETING_URL=" + externalURL,
			"BOT_NAME=" + botName,
			"SESSION_KEY=" + sessionKey,
		},
		ExposedPort: o.statusPort,
	}

	launched, err := o.runtime.Launch(ctx, spec)
	if err != nil {
		o.mu.Lock()
		delete(o.meetings, id)
		o.mu.Unlock()
		return "", fmt.Errorf("worker: launch meeting %s: %w", id, err)
	}

	o.mu.Lock()
	meeting.ContainerID = launched.ContainerID
	meeting.StatusURL = launched.HostStatusAddr
	meeting.State = StateRunning
	o.mu.Unlock()

	if o.logger != nil {
		o.logger.Info("meeting worker joined", "meetingID", id, "url", externalURL)
	}
	return id, nil
}

// LeaveMeeting stops and removes the container for a tracked meeting.
func (o *Orchestrator) LeaveMeeting(ctx context.Context, meetingID string) error {
	o.mu.Lock()
	meeting, ok := o.meetings[meetingID]
	o.mu.Unlock()
	if !ok {
		return orch.ErrMeetingNotFound
	}

	if err := o.runtime.Stop(ctx, meeting.ContainerID); err != nil {
		if o.logger != nil {
			o.logger.Warn("stop failed during leave, removing anyway", "meetingID", meetingID, "error", err)
		}
	}
	if err := o.runtime.Remove(ctx, meeting.ContainerID); err != nil {
		return fmt.Errorf("worker: remove container for meeting %s: %w", meetingID, err)
	}

	o.mu.Lock()
	delete(o.meetings, meetingID)
	o.mu.Unlock()

	if o.logger != nil {
		o.logger.Info("meeting worker left", "meetingID", meetingID)
	}
	return nil
}

// MaxConcurrent reports the configured concurrent-meeting cap, for the
// status endpoint's capacity summary.
func (o *Orchestrator) MaxConcurrent() int { return o.maxConcurrent }

// ActiveCount reports the number of tracked meetings not yet exited.
func (o *Orchestrator) ActiveCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeCountLocked()
}

// ListMeetings returns a read-only snapshot of every tracked meeting.
func (o *Orchestrator) ListMeetings() []Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Snapshot, 0, len(o.meetings))
	for _, m := range o.meetings {
		out = append(out, snapshotOf(m))
	}
	return out
}

func snapshotOf(m *Meeting) Snapshot {
	return Snapshot{
		ID:              m.ID,
		ExternalURL:     m.ExternalURL,
		BotName:         m.BotName,
		State:           m.State,
		ExitCode:        m.ExitCode,
		TranscriptCount: m.TranscriptCount,
		StartedAt:       m.StartedAt,
	}
}

func (o *Orchestrator) activeCountLocked() int {
	n := 0
	for _, m := range o.meetings {
		if m.State != StateExited {
			n++
		}
	}
	return n
}

func timeNow() time.Time { return time.Now() }
