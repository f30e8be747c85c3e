package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"ionbatch/internal/identify"
	"ionbatch/internal/services"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, stdin io.Reader) ([]byte, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithArgs sets extra arguments passed to every engine invocation.
func WithArgs(args ...string) Option {
	return func(c *Client) {
		c.args = append([]string(nil), args...)
	}
}

// Client runs the identification binary as one process per job.
type Client struct {
	binary string
	args   []string
	exec   Executor
}

// New constructs an engine client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "init", "engine binary required", nil)
	}
	client := &Client{
		binary: binary,
		exec:   commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Identify encodes the handle into a request. The process itself starts when
// the returned job is awaited so that it runs on a worker.
func (c *Client) Identify(_ context.Context, handle identify.Handle) (identify.Job, error) {
	if handle.Instance == nil {
		return nil, services.Wrap(services.ErrValidation, "engine", "identify", "job handle has no instance", nil)
	}
	payload, err := json.Marshal(buildRequest(handle))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "engine", "encode request", "", err)
	}
	return &processJob{
		client:  c,
		payload: payload,
		timeout: handle.InstanceTimeout,
		index:   handle.Instance.Index,
	}, nil
}

type processJob struct {
	client  *Client
	payload []byte
	timeout time.Duration
	index   int
}

func (j *processJob) Await(ctx context.Context) ([]identify.Candidate, error) {
	runCtx := ctx
	if j.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	out, err := j.client.exec.Run(runCtx, j.client.binary, j.client.args, bytes.NewReader(j.payload))
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, services.Wrap(services.ErrTimeout, "engine", "await", fmt.Sprintf("instance %d exceeded %s", j.index, j.timeout), err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrExternalTool, "engine", "run", fmt.Sprintf("instance %d", j.index), err)
	}

	var resp response
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "engine", "decode response", fmt.Sprintf("instance %d", j.index), err)
	}
	if msg := strings.TrimSpace(resp.Error); msg != "" {
		if strings.EqualFold(msg, "timeout") {
			return nil, services.Wrap(services.ErrTimeout, "engine", "await", fmt.Sprintf("instance %d tree search timed out", j.index), nil)
		}
		return nil, services.Wrap(services.ErrExternalTool, "engine", "identify", msg, nil)
	}
	candidates, err := decodeCandidates(resp)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "engine", "decode candidates", fmt.Sprintf("instance %d", j.index), err)
	}
	return candidates, nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, stdin io.Reader) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdin = stdin
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return nil, fmt.Errorf("%w: %s", err, detail)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
