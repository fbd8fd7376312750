package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	probeInterval       = 30 * time.Second
	statusRequestTimeout = 3 * time.Second
	// summaryWorkerGrace bounds the Launch call for the fire-and-forget
	// summary container; the container itself is never tracked or stopped.
	summaryWorkerGrace = 2 * time.Minute
)

// Supervisor runs the 30s probe loop described in §4.4: it re-inspects
// every tracked container, synthesizes a leave when one has exited on its
// own, polls each worker's local status endpoint for transcript counts,
// and reconciles against whatever containers are already running at
// startup (so a restarted orchestrator process doesn't orphan them).
type Supervisor struct {
	orch       *Orchestrator
	runtime    Runtime
	summaryImg string
	httpClient *http.Client
	logger     Logger
}

func NewSupervisor(orch *Orchestrator, runtime Runtime, summaryImage string, logger Logger) *Supervisor {
	return &Supervisor{
		orch:       orch,
		runtime:    runtime,
		summaryImg: summaryImage,
		httpClient: &http.Client{Timeout: statusRequestTimeout},
		logger:     logger,
	}
}

// Reconcile enumerates label-tagged containers left running from a prior
// process and re-adopts them into the tracked meeting set, so a restart
// doesn't strand live meeting bots with no supervising orchestrator.
func (s *Supervisor) Reconcile(ctx context.Context) error {
	containers, err := s.runtime.ListByLabel(ctx, MeetWorkerLabel)
	if err != nil {
		return fmt.Errorf("worker: reconcile list: %w", err)
	}

	s.orch.mu.Lock()
	defer s.orch.mu.Unlock()
	for _, c := range containers {
		if c.MeetingID == "" || s.orch.meetings[c.MeetingID] != nil {
			continue
		}
		state := StateExited
		if c.Running {
			state = StateRunning
		}
		s.orch.meetings[c.MeetingID] = &Meeting{
			ID:          c.MeetingID,
			ContainerID: c.ContainerID,
			State:       state,
			StatusURL:   c.HostStatusAddr,
			StartedAt:   timeNow(),
		}
		if s.logger != nil {
			s.logger.Info("reconciled orphaned meeting worker", "meetingID", c.MeetingID, "running", c.Running)
		}
	}
	return nil
}

// Run blocks, probing every probeInterval until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probeOnce(ctx)
		}
	}
}

func (s *Supervisor) probeOnce(ctx context.Context) {
	for _, snap := range s.orch.ListMeetings() {
		if snap.State == StateExited {
			continue
		}
		s.probeMeeting(ctx, snap.ID)
	}
}

func (s *Supervisor) probeMeeting(ctx context.Context, meetingID string) {
	s.orch.mu.Lock()
	meeting, ok := s.orch.meetings[meetingID]
	var containerID, statusURL string
	if ok {
		containerID, statusURL = meeting.ContainerID, meeting.StatusURL
	}
	s.orch.mu.Unlock()
	if !ok || containerID == "" {
		return
	}

	running, exitCode, err := s.runtime.Inspect(ctx, containerID)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("probe inspect failed", "meetingID", meetingID, "error", err)
		}
		return
	}

	if !running {
		s.handleExit(ctx, meetingID, exitCode)
		return
	}

	count, ok := s.pollTranscriptCount(ctx, statusURL)
	if ok {
		s.orch.mu.Lock()
		if m := s.orch.meetings[meetingID]; m != nil {
			m.TranscriptCount = count
		}
		s.orch.mu.Unlock()
	}
}

type statusResponse struct {
	TranscriptCount int `json:"transcript_count"`
}

func (s *Supervisor) pollTranscriptCount(ctx context.Context, statusURL string) (int, bool) {
	if statusURL == "" {
		return 0, false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+statusURL+"/status", nil)
	if err != nil {
		return 0, false
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, false
	}
	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, false
	}
	return body.TranscriptCount, true
}

func (s *Supervisor) handleExit(ctx context.Context, meetingID string, exitCode int) {
	s.orch.mu.Lock()
	meeting := s.orch.meetings[meetingID]
	if meeting == nil || meeting.State == StateExited {
		s.orch.mu.Unlock()
		return
	}
	meeting.State = StateExited
	meeting.ExitCode = exitCode
	transcriptCount := meeting.TranscriptCount
	containerID := meeting.ContainerID
	s.orch.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("meeting worker exited", "meetingID", meetingID, "exitCode", exitCode, "transcripts", transcriptCount)
	}

	if transcriptCount > 0 && s.summaryImg != "" {
		s.spawnSummaryWorker(meetingID, containerID)
	}

	_ = s.runtime.Remove(ctx, containerID)
}

// spawnSummaryWorker launches an ephemeral container that reads the
// exited worker's transcript and produces a meeting summary. It is
// fire-and-forget: the supervisor doesn't track its lifecycle beyond
// launch, since it has no status endpoint of its own to probe.
func (s *Supervisor) spawnSummaryWorker(meetingID, sourceContainerID string) {
	launchCtx, cancel := context.WithTimeout(context.Background(), summaryWorkerGrace)
	defer cancel()

	_, err := s.runtime.Launch(launchCtx, ContainerSpec{
		Image: s.summaryImg,
		Labels: map[string]string{
			"lokutor.summary-worker": "1",
			MeetingIDLabel:           meetingID,
		},
		Env: []string{
			"SOURCE_CONTAINER_ID=" + sourceContainerID,
			"MEETING_ID=" + meetingID,
		},
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("summary worker launch failed", "meetingID", meetingID, "error", err)
	}
}
