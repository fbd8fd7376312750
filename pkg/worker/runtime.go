package worker

import "context"

// ContainerSpec describes the container to launch for one meeting-bot
// worker.
type ContainerSpec struct {
	Image       string
	Labels      map[string]string
	Env         []string
	ExposedPort string // container-side port the worker's status HTTP server listens on
}

// LaunchedContainer is what the runtime reports back after creating and
// starting a container.
type LaunchedContainer struct {
	ContainerID string
	// HostStatusAddr is host:port the orchestrator can reach the
	// container's status endpoint on (Docker's published port mapping).
	HostStatusAddr string
}

// RuntimeContainer is one container the runtime reports for a label
// query, used by startup reconciliation.
type RuntimeContainer struct {
	ContainerID string
	MeetingID   string
	Running     bool
	ExitCode    int
	HostStatusAddr string
}

// Runtime abstracts the container backend so the orchestrator's lifecycle
// logic is testable without a real Docker daemon. DockerRuntime is the
// production implementation.
type Runtime interface {
	Launch(ctx context.Context, spec ContainerSpec) (LaunchedContainer, error)
	Stop(ctx context.Context, containerID string) error
	Remove(ctx context.Context, containerID string) error
	Inspect(ctx context.Context, containerID string) (running bool, exitCode int, err error)
	ListByLabel(ctx context.Context, label string) ([]RuntimeContainer, error)
}
