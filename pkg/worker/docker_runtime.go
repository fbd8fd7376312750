package worker

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

// DockerRuntime launches meeting-bot workers as isolated Docker
// containers, grounded on the docker/docker/client usage pattern the
// ashureev-shsh-labs handler holds a *client.Client for.
type DockerRuntime struct {
	cli *client.Client
}

func NewDockerRuntime(cli *client.Client) *DockerRuntime {
	return &DockerRuntime{cli: cli}
}

// NewDockerRuntimeFromEnvironment dials the daemon using the standard
// DOCKER_HOST/DOCKER_TLS_VERIFY environment variables.
func NewDockerRuntimeFromEnvironment() (*DockerRuntime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("worker: docker client: %w", err)
	}
	return NewDockerRuntime(cli), nil
}

func (d *DockerRuntime) Launch(ctx context.Context, spec ContainerSpec) (LaunchedContainer, error) {
	var exposedPorts nat.PortSet
	var portBindings nat.PortMap
	if spec.ExposedPort != "" {
		port, err := nat.NewPort("tcp", spec.ExposedPort)
		if err != nil {
			return LaunchedContainer{}, fmt.Errorf("worker: invalid exposed port %q: %w", spec.ExposedPort, err)
		}
		exposedPorts = nat.PortSet{port: struct{}{}}
		portBindings = nat.PortMap{port: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: ""}}}
	}

	resp, err := d.cli.ContainerCreate(ctx, &container.Config{
		Image:        spec.Image,
		Env:          spec.Env,
		Labels:       spec.Labels,
		ExposedPorts: exposedPorts,
	}, &container.HostConfig{
		PortBindings: portBindings,
		AutoRemove:   false,
	}, &network.NetworkingConfig{}, nil, "")
	if err != nil {
		return LaunchedContainer{}, fmt.Errorf("worker: create container: %w", err)
	}

	if err := d.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return LaunchedContainer{}, fmt.Errorf("worker: start container: %w", err)
	}

	hostAddr, err := d.resolveHostStatusAddr(ctx, resp.ID, spec.ExposedPort)
	if err != nil {
		hostAddr = ""
	}

	return LaunchedContainer{ContainerID: resp.ID, HostStatusAddr: hostAddr}, nil
}

func (d *DockerRuntime) resolveHostStatusAddr(ctx context.Context, containerID, exposedPort string) (string, error) {
	if exposedPort == "" {
		return "", nil
	}
	info, err := d.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return "", err
	}
	port, err := nat.NewPort("tcp", exposedPort)
	if err != nil {
		return "", err
	}
	bindings := info.NetworkSettings.Ports[port]
	if len(bindings) == 0 {
		return "", fmt.Errorf("worker: no host binding published for port %s", exposedPort)
	}
	return fmt.Sprintf("%s:%s", bindings[0].HostIP, bindings[0].HostPort), nil
}

func (d *DockerRuntime) Stop(ctx context.Context, containerID string) error {
	if err := d.cli.ContainerStop(ctx, containerID, container.StopOptions{}); err != nil {
		return fmt.Errorf("worker: stop container %s: %w", containerID, err)
	}
	return nil
}

func (d *DockerRuntime) Remove(ctx context.Context, containerID string) error {
	if err := d.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("worker: remove container %s: %w", containerID, err)
	}
	return nil
}

func (d *DockerRuntime) Inspect(ctx context.Context, containerID string) (running bool, exitCode int, err error) {
	info, err := d.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return false, 0, fmt.Errorf("worker: inspect container %s: %w", containerID, err)
	}
	return info.State.Running, info.State.ExitCode, nil
}

func (d *DockerRuntime) ListByLabel(ctx context.Context, label string) ([]RuntimeContainer, error) {
	containers, err := d.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", label)),
	})
	if err != nil {
		return nil, fmt.Errorf("worker: list containers: %w", err)
	}

	out := make([]RuntimeContainer, 0, len(containers))
	for _, c := range containers {
		running := c.State == "running"
		out = append(out, RuntimeContainer{
			ContainerID: c.ID,
			MeetingID:   c.Labels[MeetingIDLabel],
			Running:     running,
		})
	}
	return out, nil
}
