package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	orch "github.com/lokutor-ai/lokutor-orchestrator/pkg/orchestrator"
)

type fakeRuntime struct {
	mu        sync.Mutex
	launched  []ContainerSpec
	nextID    int
	running   map[string]bool
	exitCodes map[string]int
	launchErr error
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{running: make(map[string]bool), exitCodes: make(map[string]int)}
}

func (f *fakeRuntime) Launch(ctx context.Context, spec ContainerSpec) (LaunchedContainer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.launchErr != nil {
		return LaunchedContainer{}, f.launchErr
	}
	f.nextID++
	id := "container-" + string(rune('a'+f.nextID))
	f.launched = append(f.launched, spec)
	f.running[id] = true
	return LaunchedContainer{ContainerID: id, HostStatusAddr: "127.0.0.1:0"}, nil
}

func (f *fakeRuntime) Stop(ctx context.Context, containerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running[containerID] = false
	return nil
}

func (f *fakeRuntime) Remove(ctx context.Context, containerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.running, containerID)
	return nil
}

func (f *fakeRuntime) Inspect(ctx context.Context, containerID string) (bool, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running[containerID], f.exitCodes[containerID], nil
}

func (f *fakeRuntime) ListByLabel(ctx context.Context, label string) ([]RuntimeContainer, error) {
	return nil, nil
}

func (f *fakeRuntime) setExited(containerID string, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running[containerID] = false
	f.exitCodes[containerID] = code
}

func TestJoinMeetingLaunchesContainerAndTracksMeeting(t *testing.T) {
	rt := newFakeRuntime()
	o := NewOrchestrator(rt, "lokutor/meet-worker:latest", "8090", 3, nil)

	id, err := o.JoinMeeting(context.Background(), "https://meet.example/abc", "Nova")
	if err != nil {
		t.Fatalf("JoinMeeting: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty meeting id")
	}

	snaps := o.ListMeetings()
	if len(snaps) != 1 || snaps[0].ID != id || snaps[0].State != StateRunning {
		t.Fatalf("unexpected snapshot state: %+v", snaps)
	}
}

func TestJoinMeetingEnforcesCapacityCap(t *testing.T) {
	rt := newFakeRuntime()
	o := NewOrchestrator(rt, "img", "8090", 1, nil)

	if _, err := o.JoinMeeting(context.Background(), "url-1", "bot"); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if _, err := o.JoinMeeting(context.Background(), "url-2", "bot"); !errors.Is(err, orch.ErrWorkerCapacity) {
		t.Fatalf("expected ErrWorkerCapacity, got %v", err)
	}
}

func TestLeaveMeetingRemovesUnknownMeetingReturnsNotFound(t *testing.T) {
	rt := newFakeRuntime()
	o := NewOrchestrator(rt, "img", "8090", 3, nil)

	if err := o.LeaveMeeting(context.Background(), "nope"); !errors.Is(err, orch.ErrMeetingNotFound) {
		t.Fatalf("expected ErrMeetingNotFound, got %v", err)
	}
}

func TestLeaveMeetingStopsAndRemovesTrackedContainer(t *testing.T) {
	rt := newFakeRuntime()
	o := NewOrchestrator(rt, "img", "8090", 3, nil)
	id, _ := o.JoinMeeting(context.Background(), "url", "bot")

	if err := o.LeaveMeeting(context.Background(), id); err != nil {
		t.Fatalf("LeaveMeeting: %v", err)
	}
	if len(o.ListMeetings()) != 0 {
		t.Fatal("expected the meeting to no longer be tracked after leave")
	}
}

func TestSupervisorProbeOnceSynthesizesExitWhenContainerStops(t *testing.T) {
	rt := newFakeRuntime()
	o := NewOrchestrator(rt, "img", "8090", 3, nil)
	id, _ := o.JoinMeeting(context.Background(), "url", "bot")

	o.mu.Lock()
	containerID := o.meetings[id].ContainerID
	o.mu.Unlock()
	rt.setExited(containerID, 1)

	sup := NewSupervisor(o, rt, "", nil)
	sup.probeOnce(context.Background())

	snaps := o.ListMeetings()
	if len(snaps) != 1 || snaps[0].State != StateExited || snaps[0].ExitCode != 1 {
		t.Fatalf("expected exited state with exit code 1, got %+v", snaps)
	}
}

func TestSupervisorReconcileAdoptsOrphanedContainers(t *testing.T) {
	rt := newFakeRuntime()
	rt.running["orphan-container"] = true
	o := NewOrchestrator(rt, "img", "8090", 3, nil)

	orphanRuntime := &fakeRuntimeWithOrphans{fakeRuntime: rt, orphans: []RuntimeContainer{
		{ContainerID: "orphan-container", MeetingID: "mtg-orphan", Running: true},
	}}
	sup := NewSupervisor(o, orphanRuntime, "", nil)

	if err := sup.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	snaps := o.ListMeetings()
	if len(snaps) != 1 || snaps[0].ID != "mtg-orphan" || snaps[0].State != StateRunning {
		t.Fatalf("expected orphaned meeting adopted as running, got %+v", snaps)
	}
}

type fakeRuntimeWithOrphans struct {
	*fakeRuntime
	orphans []RuntimeContainer
}

func (f *fakeRuntimeWithOrphans) ListByLabel(ctx context.Context, label string) ([]RuntimeContainer, error) {
	return f.orphans, nil
}
