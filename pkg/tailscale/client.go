package tailscale

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// DefaultBinary is looked up on PATH when no binary is configured.
const DefaultBinary = "tailscale"

// Runner executes a command and returns its stdout. A non-zero exit must
// be reported as *CommandError.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandError is returned when the tailscale CLI exits non-zero or
// cannot be started.
type CommandError struct {
	Name     string
	Args     []string
	ExitCode int // -1 when the process never ran
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	cmd := strings.TrimSpace(e.Name + " " + strings.Join(e.Args, " "))
	msg := fmt.Sprintf("running %s: %v", cmd, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExecRunner runs commands with os/exec. There is no timeout; ctx only
// carries interrupts.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return nil, &CommandError{
			Name:     name,
			Args:     append([]string(nil), args...),
			ExitCode: code,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}
	return stdout.Bytes(), nil
}

// Client lists and activates exit nodes through the tailscale CLI.
type Client struct {
	binary string
	runner Runner
	log    *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithRunner replaces the os/exec runner, mostly for tests.
func WithRunner(r Runner) Option {
	return func(c *Client) { c.runner = r }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a Client invoking binary (DefaultBinary when empty).
func New(binary string, opts ...Option) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	c := &Client{
		binary: binary,
		runner: ExecRunner{},
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchListing runs `tailscale exit-node list` and returns its output.
func (c *Client) FetchListing(ctx context.Context) (string, error) {
	args := []string{"exit-node", "list"}
	c.log.Debug("listing exit nodes", zap.String("binary", c.binary), zap.Strings("args", args))

	out, err := c.runner.Run(ctx, c.binary, args...)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ActivateExitNode runs `tailscale set --exit-node <ip>`. An empty ip
// turns the exit node off.
func (c *Client) ActivateExitNode(ctx context.Context, ip string) error {
	args := []string{"set", "--exit-node", ip}
	c.log.Info("applying exit node via tailscale", zap.String("binary", c.binary), zap.Strings("args", args))

	if _, err := c.runner.Run(ctx, c.binary, args...); err != nil {
		return err
	}
	return nil
}
