package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"

	"deckhand/internal/boundaries/out"
	"deckhand/internal/domain"
)

// Exec runs a command inside a running container, capturing stdout, stderr
// and the exit code. The command must already have passed policy checks.
func (r *Runtime) Exec(ctx context.Context, name string, cmd []string) (*out.ExecOutput, error) {
	if len(cmd) == 0 {
		return nil, fmt.Errorf("%w: empty exec command", domain.ErrInvalidInput)
	}

	created, err := r.client.ContainerExecCreate(ctx, name, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, r.wrap(err, "create exec")
	}

	attach, err := r.client.ContainerExecAttach(ctx, created.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, r.wrap(err, "attach exec")
	}
	defer attach.Close()

	stdout, stderr, err := parseExecOutput(attach.Reader)
	if err != nil {
		return nil, r.wrap(err, "read exec output")
	}

	inspect, err := r.client.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return nil, r.wrap(err, "inspect exec")
	}

	return &out.ExecOutput{
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: inspect.ExitCode,
	}, nil
}

// parseExecOutput demultiplexes the Docker attach stream into stdout and
// stderr buffers.
func parseExecOutput(r io.Reader) (stdout, stderr []byte, err error) {
	var outBuf, errBuf bytes.Buffer
	if _, err := stdcopy.StdCopy(&outBuf, &errBuf, r); err != nil {
		return nil, nil, err
	}
	return outBuf.Bytes(), errBuf.Bytes(), nil
}
