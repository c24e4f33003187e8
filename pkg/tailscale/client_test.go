package tailscale

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

type recordingRunner struct {
	calls []call
	out   []byte
	err   error
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, call{name: name, args: args})
	return r.out, r.err
}

func TestFetchListingRunsExitNodeList(t *testing.T) {
	r := &recordingRunner{out: []byte("100.64.0.1  a  Sweden  Stockholm\n")}
	c := New("", WithRunner(r))

	out, err := c.FetchListing(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "100.64.0.1  a  Sweden  Stockholm\n", out)
	require.Len(t, r.calls, 1)
	assert.Equal(t, call{name: "tailscale", args: []string{"exit-node", "list"}}, r.calls[0])
}

func TestActivateExitNodeRunsSet(t *testing.T) {
	r := &recordingRunner{}
	c := New("/usr/local/bin/tailscale", WithRunner(r))

	require.NoError(t, c.ActivateExitNode(context.Background(), "100.64.0.2"))
	require.NoError(t, c.ActivateExitNode(context.Background(), ""))

	assert.Equal(t, []call{
		{name: "/usr/local/bin/tailscale", args: []string{"set", "--exit-node", "100.64.0.2"}},
		{name: "/usr/local/bin/tailscale", args: []string{"set", "--exit-node", ""}},
	}, r.calls)
}

func TestClientPropagatesCommandError(t *testing.T) {
	cmdErr := &CommandError{Name: "tailscale", Args: []string{"exit-node", "list"}, ExitCode: 1,
		Stderr: "not logged in\n", Err: errors.New("exit status 1")}
	c := New("", WithRunner(&recordingRunner{err: cmdErr}))

	_, err := c.FetchListing(context.Background())
	var got *CommandError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 1, got.ExitCode)
	assert.Equal(t, "running tailscale exit-node list: exit status 1: not logged in", err.Error())
}

func TestExecRunnerReportsExitCode(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	out, err := ExecRunner{}.Run(context.Background(), sh, "-c", "echo listing")
	require.NoError(t, err)
	assert.Equal(t, "listing\n", string(out))

	_, err = ExecRunner{}.Run(context.Background(), sh, "-c", "echo oops >&2; exit 3")
	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Equal(t, "oops\n", cmdErr.Stderr)
}

func TestExecRunnerMissingBinary(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), "definitely-not-a-real-binary-xyz")
	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, -1, cmdErr.ExitCode)
}
