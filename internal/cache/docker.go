package cache

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"maps"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultImage         = "redis:7-alpine"
	DefaultContainerName = "lectern-redis"
	DefaultPort          = "6380"
	ContainerNamePrefix  = "lectern-redis-"
	ContainerPort        = "6379/tcp"
	DataDir              = "/data"
	Label                = "lectern-redis"
)

// ContainerStatus represents the state of the Redis container.
type ContainerStatus string

const (
	StatusRunning   ContainerStatus = "running"
	StatusStopped   ContainerStatus = "stopped"
	StatusNotFound  ContainerStatus = "not_found"
	StatusUnhealthy ContainerStatus = "unhealthy"
	StatusStarting  ContainerStatus = "starting"
)

// DockerManager manages the Redis Docker container lifecycle.
type DockerManager struct {
	cli           *client.Client
	containerName string
	imageName     string
	dataPath      string            // Host path for append-only persistence (~/.lectern/cache)
	hostPort      string            // Host port to bind (default: 6380)
	labels        map[string]string // Container labels
}

// DockerConfig holds configuration for the Docker manager.
type DockerConfig struct {
	ContainerName string
	HomePath      string // Used to derive a per-home container name when ContainerName is empty
	Image         string
	DataPath      string
	HostPort      string
	Labels        map[string]string // Optional labels for container (used for test cleanup)
}

// GenerateContainerName derives a stable container name from a home
// directory so two lectern homes on one host do not share a cache.
func GenerateContainerName(homePath string) string {
	sum := sha256.Sum256([]byte(homePath))
	return ContainerNamePrefix + hex.EncodeToString(sum[:])[:8]
}

// NewDockerManager creates a new Docker manager for the Redis cache.
func NewDockerManager(cfg DockerConfig) (*DockerManager, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	name := cfg.ContainerName
	if name == "" && cfg.HomePath != "" {
		name = GenerateContainerName(cfg.HomePath)
	}

	labels := map[string]string{Label: "true"}
	maps.Copy(labels, cfg.Labels)

	return &DockerManager{
		cli:           cli,
		containerName: cmp.Or(name, DefaultContainerName),
		imageName:     cmp.Or(cfg.Image, DefaultImage),
		dataPath:      cfg.DataPath,
		hostPort:      cmp.Or(cfg.HostPort, DefaultPort),
		labels:        labels,
	}, nil
}

// Close closes the Docker client.
func (m *DockerManager) Close() error {
	return m.cli.Close()
}

// ContainerName returns the managed container's name.
func (m *DockerManager) ContainerName() string {
	return m.containerName
}

// Addr returns the host address Redis is reachable on.
func (m *DockerManager) Addr() string {
	return "localhost:" + m.hostPort
}

// ErrNotFound is returned by operations that need an existing container.
var ErrNotFound = errors.New("cache container not found")

// found is the managed container as Docker last reported it.
type found struct {
	id     string
	status ContainerStatus
}

// Start brings the container to running: a missing container is created,
// a stopped one started. Either way it returns once Redis answers PING.
func (m *DockerManager) Start(ctx context.Context) error {
	if _, err := m.cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker is not running: %w", err)
	}

	c, err := m.find(ctx)
	if err != nil {
		return err
	}
	switch c.status {
	case StatusRunning:
		return nil
	case StatusNotFound:
		if c.id, err = m.create(ctx); err != nil {
			return err
		}
	case StatusStopped, StatusStarting:
	default:
		return fmt.Errorf("container in unexpected state: %s", c.status)
	}

	if c.status != StatusStarting {
		if err := m.cli.ContainerStart(ctx, c.id, container.StartOptions{}); err != nil {
			if c.status == StatusNotFound {
				_ = m.cli.ContainerRemove(ctx, c.id, container.RemoveOptions{Force: true})
			}
			return fmt.Errorf("failed to start container: %w", err)
		}
	}
	return m.waitForReady(ctx, 30*time.Second)
}

// Stop stops the container, keeping it and its data. A missing container
// is not an error.
func (m *DockerManager) Stop(ctx context.Context) error {
	c, err := m.find(ctx)
	if err != nil || c.status == StatusNotFound || c.status == StatusStopped {
		return err
	}
	timeout := 10
	if err := m.cli.ContainerStop(ctx, c.id, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}
	return nil
}

// Remove deletes the container. Data under the bind mount is kept.
func (m *DockerManager) Remove(ctx context.Context) error {
	c, err := m.find(ctx)
	if err != nil || c.status == StatusNotFound {
		return err
	}
	if err := m.cli.ContainerRemove(ctx, c.id, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}

// Status reports the container state.
func (m *DockerManager) Status(ctx context.Context) (ContainerStatus, error) {
	c, err := m.find(ctx)
	return c.status, err
}

// Logs returns the last tail lines of container output.
func (m *DockerManager) Logs(ctx context.Context, tail string) (string, error) {
	c, err := m.find(ctx)
	if err != nil {
		return "", err
	}
	if c.status == StatusNotFound {
		return "", ErrNotFound
	}

	rc, err := m.cli.ContainerLogs(ctx, c.id, container.LogsOptions{ShowStdout: true, ShowStderr: true, Tail: tail})
	if err != nil {
		return "", fmt.Errorf("failed to get logs: %w", err)
	}
	defer rc.Close()

	var b strings.Builder
	if _, err := io.Copy(&b, rc); err != nil {
		return "", fmt.Errorf("failed to read logs: %w", err)
	}
	return b.String(), nil
}

// ValidateExisting reports an existing container that Start would reuse
// but that is bound to another port or data directory. No container is
// fine.
func (m *DockerManager) ValidateExisting(ctx context.Context) error {
	c, err := m.find(ctx)
	if err != nil || c.status == StatusNotFound {
		return err
	}
	info, err := m.cli.ContainerInspect(ctx, c.id)
	if err != nil {
		return fmt.Errorf("failed to inspect container: %w", err)
	}
	var bindings []nat.PortBinding
	if info.HostConfig != nil {
		bindings = info.HostConfig.PortBindings[ContainerPort]
	}
	return m.incompatibility(bindings, info.Mounts)
}

// incompatibility compares an existing container's port bindings and
// mounts with this manager's settings.
func (m *DockerManager) incompatibility(bindings []nat.PortBinding, mounts []container.MountPoint) error {
	if len(bindings) == 0 {
		return fmt.Errorf("existing container has no port binding for %s", ContainerPort)
	}
	if bindings[0].HostPort != m.hostPort {
		return fmt.Errorf("existing container bound to port %s, expected %s", bindings[0].HostPort, m.hostPort)
	}
	if m.dataPath == "" {
		return nil
	}
	for _, mnt := range mounts {
		if mnt.Destination != DataDir {
			continue
		}
		if mnt.Source != m.dataPath {
			return fmt.Errorf("existing container mounts %s, expected %s", mnt.Source, m.dataPath)
		}
		return nil
	}
	return fmt.Errorf("existing container has no mount for %s", DataDir)
}

// WaitReady waits for Redis to answer PING.
func (m *DockerManager) WaitReady(ctx context.Context, timeout time.Duration) error {
	return m.waitForReady(ctx, timeout)
}

// containerConfig runs redis-server with append-only persistence in DataDir.
func (m *DockerManager) containerConfig() *container.Config {
	return &container.Config{
		Image:        m.imageName,
		Cmd:          []string{"redis-server", "--appendonly", "yes", "--dir", DataDir},
		Labels:       m.labels,
		ExposedPorts: nat.PortSet{ContainerPort: struct{}{}},
		Healthcheck: &container.HealthConfig{
			Test:        []string{"CMD", "redis-cli", "ping"},
			Interval:    2 * time.Second,
			Timeout:     5 * time.Second,
			Retries:     10,
			StartPeriod: 2 * time.Second,
		},
	}
}

// hostConfig binds Redis to loopback only.
func (m *DockerManager) hostConfig() *container.HostConfig {
	hc := &container.HostConfig{
		PortBindings: nat.PortMap{
			ContainerPort: {{HostIP: "127.0.0.1", HostPort: m.hostPort}},
		},
	}
	if m.dataPath != "" {
		hc.Mounts = []mount.Mount{{Type: mount.TypeBind, Source: m.dataPath, Target: DataDir}}
	}
	return hc
}

// create pulls the image when missing and creates the container.
func (m *DockerManager) create(ctx context.Context) (string, error) {
	if _, err := m.cli.ImageInspect(ctx, m.imageName); err != nil {
		pull, err := m.cli.ImagePull(ctx, m.imageName, image.PullOptions{})
		if err != nil {
			return "", fmt.Errorf("failed to pull image: %w", err)
		}
		_, err = io.Copy(io.Discard, pull)
		pull.Close()
		if err != nil {
			return "", fmt.Errorf("failed to pull image: %w", err)
		}
	}

	resp, err := m.cli.ContainerCreate(ctx, m.containerConfig(), m.hostConfig(), nil, nil, m.containerName)
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}
	return resp.ID, nil
}

// find looks the container up by name.
func (m *DockerManager) find(ctx context.Context) (found, error) {
	list, err := m.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("name", "^/"+m.containerName+"$")),
	})
	if err != nil {
		return found{}, fmt.Errorf("failed to list containers: %w", err)
	}
	if len(list) == 0 {
		return found{status: StatusNotFound}, nil
	}
	return found{id: list[0].ID, status: containerState(list[0].State)}, nil
}

func containerState(state string) ContainerStatus {
	switch state {
	case "running":
		return StatusRunning
	case "exited", "dead":
		return StatusStopped
	case "created", "restarting":
		return StatusStarting
	default:
		return ContainerStatus(state)
	}
}

// waitForReady pings Redis once a second until it answers or timeout
// passes.
func (m *DockerManager) waitForReady(ctx context.Context, timeout time.Duration) error {
	rdb := redis.NewClient(&redis.Options{
		Addr:        m.Addr(),
		DialTimeout: 2 * time.Second,
	})
	defer rdb.Close()

	return retry.Do(
		func() error {
			return rdb.Ping(ctx).Err()
		},
		retry.Context(ctx),
		retry.Attempts(max(uint(timeout.Seconds()), 1)),
		retry.Delay(time.Second),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}
