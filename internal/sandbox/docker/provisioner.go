// Package docker implements the sandbox provisioner on the Docker Engine
// API. Each sandbox is a container created from the snapshot image, kept
// alive by an idle entrypoint, and driven through exec sessions.
package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"

	"github.com/lightenlabs/feather/internal/logger"
	"github.com/lightenlabs/feather/internal/sandbox"
)

const (
	// Labels marking containers this service owns; the reaper sweeps by
	// them, so nothing else on the host is ever touched.
	labelManaged       = "feather.managed"
	labelRunID         = "feather.run-id"
	labelLeaseDeadline = "feather.lease-deadline"

	homeDir = "/home/user"

	memoryLimitBytes = 2 * 1024 * 1024 * 1024
	nanoCPUs         = 2 * 1e9
	pidsLimit        = 512

	waitPollInterval = 100 * time.Millisecond
)

// Provisioner implements sandbox.Provisioner using the Docker SDK.
type Provisioner struct {
	cli *client.Client
}

var _ sandbox.Provisioner = (*Provisioner)(nil)

// NewProvisioner creates a Docker-backed provisioner from the environment
// (DOCKER_HOST et al.).
func NewProvisioner() (*Provisioner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Provisioner{cli: cli}, nil
}

// Ping verifies connectivity to the Docker daemon.
func (p *Provisioner) Ping(ctx context.Context) error {
	_, err := p.cli.Ping(ctx)
	return err
}

// Close releases the client connection.
func (p *Provisioner) Close() error {
	return p.cli.Close()
}

// Acquire creates and starts a sandbox container from the snapshot image.
func (p *Provisioner) Acquire(ctx context.Context, snapshotRef string, lease time.Duration) (*sandbox.Handle, error) {
	runID := uuid.NewString()
	deadline := time.Now().Add(lease)

	stopTimeout := int(lease.Seconds())
	cfg := &dockercontainer.Config{
		Image:       snapshotRef,
		Cmd:         []string{"sleep", "infinity"},
		WorkingDir:  homeDir,
		StopTimeout: &stopTimeout,
		Labels: map[string]string{
			labelManaged:       "true",
			labelRunID:         runID,
			labelLeaseDeadline: deadline.Format(time.RFC3339),
		},
	}
	hostCfg := &dockercontainer.HostConfig{
		Init:        boolPtr(true),
		NetworkMode: "bridge",
		Resources: dockercontainer.Resources{
			Memory:    memoryLimitBytes,
			NanoCPUs:  nanoCPUs,
			PidsLimit: int64Ptr(pidsLimit),
		},
	}

	resp, err := p.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "feather-run-"+runID)
	if err != nil {
		return nil, fmt.Errorf("create sandbox: %w", err)
	}
	if err := p.cli.ContainerStart(ctx, resp.ID, dockercontainer.StartOptions{}); err != nil {
		// The container exists but never ran; remove it now rather than
		// waiting for the reaper.
		_ = p.cli.ContainerRemove(context.WithoutCancel(ctx), resp.ID, dockercontainer.RemoveOptions{Force: true})
		return nil, fmt.Errorf("start sandbox: %w", err)
	}

	logger.Info("sandbox acquired", "run_id", runID, "container_id", resp.ID[:12], "lease", lease)
	return &sandbox.Handle{ID: resp.ID, RunID: runID, Deadline: deadline}, nil
}

// WriteFiles copies files into the sandbox as a tar stream. Relative paths
// land under the home directory.
func (p *Provisioner) WriteFiles(ctx context.Context, h *sandbox.Handle, files map[string]string) error {
	if len(files) == 0 {
		return nil
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, content := range files {
		if !strings.HasPrefix(name, "/") {
			name = path.Join(homeDir, name)
		}
		hdr := &tar.Header{
			Name: strings.TrimPrefix(name, "/"),
			Mode: 0o644,
			Size: int64(len(content)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write tar header %s: %w", name, err)
		}
		if _, err := io.WriteString(tw, content); err != nil {
			return fmt.Errorf("write tar entry %s: %w", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("finish tar stream: %w", err)
	}

	if err := p.cli.CopyToContainer(ctx, h.ID, "/", &buf, dockercontainer.CopyToContainerOptions{}); err != nil {
		return fmt.Errorf("copy files to sandbox: %w", err)
	}
	return nil
}

// RunDetached starts a command via exec-attach and returns its demuxed
// output streams.
func (p *Provisioner) RunDetached(ctx context.Context, h *sandbox.Handle, cmd []string, env []string) (sandbox.Process, error) {
	execResp, err := p.cli.ContainerExecCreate(ctx, h.ID, dockercontainer.ExecOptions{
		Cmd:          cmd,
		Env:          env,
		WorkingDir:   homeDir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create exec: %w", err)
	}

	attach, err := p.cli.ContainerExecAttach(ctx, execResp.ID, dockercontainer.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("attach exec: %w", err)
	}

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	go func() {
		_, err := stdcopy.StdCopy(stdoutW, stderrW, attach.Reader)
		_ = stdoutW.CloseWithError(err)
		_ = stderrW.CloseWithError(err)
	}()

	proc := &process{
		stdout: stdoutR,
		stderr: stderrR,
		close:  attach.Close,
		wait: func() (int, error) {
			for {
				inspect, err := p.cli.ContainerExecInspect(ctx, execResp.ID)
				if err != nil {
					return -1, fmt.Errorf("inspect exec: %w", err)
				}
				if !inspect.Running {
					return inspect.ExitCode, nil
				}
				select {
				case <-ctx.Done():
					return -1, ctx.Err()
				case <-time.After(waitPollInterval):
				}
			}
		},
	}
	return proc, nil
}

// Release force-removes the sandbox container. Safe to call after the
// lease already expired and the container is gone.
func (p *Provisioner) Release(ctx context.Context, h *sandbox.Handle) error {
	return h.ReleaseOnce(func() error {
		err := p.cli.ContainerRemove(ctx, h.ID, dockercontainer.RemoveOptions{Force: true})
		if err != nil && !errdefs.IsNotFound(err) {
			return fmt.Errorf("remove sandbox: %w", err)
		}
		logger.Info("sandbox released", "run_id", h.RunID)
		return nil
	})
}

// ReapExpired removes managed containers whose lease deadline has passed.
// Returns the number removed.
func (p *Provisioner) ReapExpired(ctx context.Context) (int, error) {
	list, err := p.cli.ContainerList(ctx, dockercontainer.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", labelManaged+"=true")),
	})
	if err != nil {
		return 0, fmt.Errorf("list sandboxes: %w", err)
	}

	removed := 0
	now := time.Now()
	for _, c := range list {
		deadline, err := time.Parse(time.RFC3339, c.Labels[labelLeaseDeadline])
		if err != nil || now.Before(deadline) {
			continue
		}
		if err := p.cli.ContainerRemove(ctx, c.ID, dockercontainer.RemoveOptions{Force: true}); err != nil {
			if !errdefs.IsNotFound(err) {
				logger.Error("reap sandbox failed", "container_id", c.ID[:12], "error", err)
			}
			continue
		}
		logger.Info("reaped expired sandbox", "run_id", c.Labels[labelRunID])
		removed++
	}
	return removed, nil
}

type process struct {
	stdout io.Reader
	stderr io.Reader
	wait   func() (int, error)
	close  func()
}

func (p *process) Stdout() io.Reader  { return p.stdout }
func (p *process) Stderr() io.Reader  { return p.stderr }
func (p *process) Wait() (int, error) { return p.wait() }
func (p *process) Close() error       { p.close(); return nil }

func boolPtr(b bool) *bool    { return &b }
func int64Ptr(v int64) *int64 { return &v }
