package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MakerMaker19/exitpick/pkg/config"
	"github.com/MakerMaker19/exitpick/pkg/discovery"
	"github.com/MakerMaker19/exitpick/pkg/exitnode"
	"github.com/MakerMaker19/exitpick/pkg/picker"
)

const listing = `IP           HOSTNAME         COUNTRY          CITY         STATUS
100.64.0.1   se-sto-wg-001    Sweden           Stockholm    -
100.64.0.2   se-got-wg-101    Sweden           Gothenburg   -
100.64.0.3   gb-lon-wg-001    United Kingdom   London       -
100.64.0.4   us-nyc-wg-301    USA              New York     -
`

type fakeListing struct {
	text  string
	err   error
	calls int
}

func (f *fakeListing) FetchListing(context.Context) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeActivator struct {
	ips []string
}

func (f *fakeActivator) ActivateExitNode(_ context.Context, ip string) error {
	f.ips = append(f.ips, ip)
	return nil
}

type fakePublisher struct {
	events []nostr.Event
	closed bool
}

func (f *fakePublisher) Publish(_ context.Context, ev nostr.Event) error {
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) Close() { f.closed = true }

type harness struct {
	listing   *fakeListing
	stdin     string
	activator *fakeActivator
	publisher *fakePublisher
	picked    string
	cfg       config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	// keep a developer's real config and environment out of the tests
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{config.EnvSource, config.EnvParser, config.EnvCountries,
		config.EnvListingFile, config.EnvNostrPrivKey, config.EnvNostrPool} {
		t.Setenv(k, "")
	}
	return &harness{
		listing:   &fakeListing{text: listing},
		activator: &fakeActivator{},
		publisher: &fakePublisher{},
	}
}

func (h *harness) deps() deps {
	return deps{
		newListing: func(cfg config.Config, stdin io.Reader, log *zap.Logger) (exitnode.ListingProvider, error) {
			h.cfg = cfg
			if cfg.Source == config.SourceFile {
				return discovery.NewProvider(cfg, stdin, log)
			}
			return h.listing, nil
		},
		newActivator: func(config.Config, *zap.Logger) exitnode.Activator { return h.activator },
		newLogger:    func(bool) (*zap.Logger, error) { return zap.NewNop(), nil },
		runPicker: func([]exitnode.ExitNode, exitnode.Field, io.Reader, io.Writer) (string, error) {
			if h.picked == "" {
				return "", picker.ErrCancelled
			}
			return h.picked, nil
		},
		newPublisher: func(context.Context, config.Config, *zap.Logger) (publisher, error) {
			return h.publisher, nil
		},
		rand: rand.New(rand.NewPCG(7, 11)),
	}
}

func (h *harness) run(args ...string) (string, string, error) {
	cmd := newRootCmd(h.deps())
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(h.stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// Single-spaced "United Kingdom London" must survive the default parser.
const exampleListing = `100.64.0.1   node-se-1   Sweden         Stockholm
100.64.0.2   node-se-2   Sweden         Gothenburg
100.64.0.3   node-uk-1   United Kingdom London
`

func TestExampleListingWithDefaultConfig(t *testing.T) {
	h := newHarness(t)
	h.listing.text = exampleListing

	_, _, err := h.run("sweden")
	require.NoError(t, err)
	require.Len(t, h.activator.ips, 1)
	assert.Contains(t, []string{"100.64.0.1", "100.64.0.2"}, h.activator.ips[0])

	out, _, err := h.run("--city", "gothen", "-n")
	require.NoError(t, err)
	assert.Equal(t, "Would set exit node to: 100.64.0.2 (node-se-2, Gothenburg, Sweden)\n", out)

	out, _, err = h.run("united", "-n")
	require.NoError(t, err)
	assert.Equal(t, "Would set exit node to: 100.64.0.3 (node-uk-1, London, United Kingdom)\n", out)
	assert.Len(t, h.activator.ips, 1)
	assert.Equal(t, config.ParserColumns, h.cfg.Parser)
}

func TestListingFromStdin(t *testing.T) {
	h := newHarness(t)
	h.stdin = exampleListing

	out, _, err := h.run("--file", "-", "united", "-n")
	require.NoError(t, err)
	assert.Contains(t, out, "100.64.0.3 (node-uk-1, London, United Kingdom)")
	assert.Equal(t, 0, h.listing.calls)
}

func TestSelectByCountry(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("sweden")
	require.NoError(t, err)
	require.Len(t, h.activator.ips, 1)
	assert.Contains(t, []string{"100.64.0.1", "100.64.0.2"}, h.activator.ips[0])
	assert.Equal(t, "Exit node set to: "+h.activator.ips[0]+"\n", out)
}

func TestSelectByCityDryRun(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("--city", "gothen", "--dry-run")
	require.NoError(t, err)
	assert.Empty(t, h.activator.ips)
	assert.Equal(t, "Would set exit node to: 100.64.0.2 (se-got-wg-101, Gothenburg, Sweden)\n", out)
}

func TestHostnameFlagWinsOverCity(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("-c", "--hostname", "us-nyc", "-n")
	require.NoError(t, err)
	assert.Contains(t, out, "100.64.0.4 (us-nyc-wg-301, New York, USA)")
}

func TestFieldFlag(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("--field", "city", "london", "-n")
	require.NoError(t, err)
	assert.Contains(t, out, "100.64.0.3")

	_, _, err = h.run("--field", "planet", "earth")
	assert.ErrorContains(t, err, "unknown field")
}

func TestNoneClearsWithoutListing(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("none")
	require.NoError(t, err)
	assert.Equal(t, 0, h.listing.calls)
	assert.Equal(t, []string{""}, h.activator.ips)
	assert.Equal(t, "Exit node cleared\n", out)

	out, _, err = h.run("none", "-n")
	require.NoError(t, err)
	assert.Equal(t, "Would clear exit node\n", out)
}

func TestErrorsGoToStderr(t *testing.T) {
	h := newHarness(t)

	out, stderr, err := h.run("france")
	var nm *exitnode.NoMatchError
	require.ErrorAs(t, err, &nm)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "no country matching 'france' found")
	assert.NotContains(t, stderr, "Usage:")
}

func TestFetchFailure(t *testing.T) {
	h := newHarness(t)
	h.listing.err = errors.New("tailscale not running")

	_, _, err := h.run("sweden")
	assert.ErrorContains(t, err, "fetch exit node list: tailscale not running")
}

func TestRequiresPattern(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run()
	assert.Error(t, err)
}

func TestValues(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("values")
	require.NoError(t, err)
	// the header row parses as a node; it never validates as an address
	assert.Equal(t, "COUNTRY\nSweden\nUSA\nUnited Kingdom\n", out)

	out, _, err = h.run("values", "--field", "city")
	require.NoError(t, err)
	assert.Equal(t, "CITY\nGothenburg\nLondon\nNew York\nStockholm\n", out)
}

func TestPick(t *testing.T) {
	h := newHarness(t)
	h.picked = "London"

	out, _, err := h.run("pick", "--field", "city")
	require.NoError(t, err)
	assert.Equal(t, []string{"100.64.0.3"}, h.activator.ips)
	assert.Equal(t, "Exit node set to: 100.64.0.3\n", out)
}

func TestPickCancelled(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("pick")
	assert.ErrorIs(t, err, picker.ErrCancelled)
	assert.Empty(t, h.activator.ips)
}

func TestSourceAndParserFlagsOverrideConfig(t *testing.T) {
	h := newHarness(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("parser: words\ncountries: [\"New Zealand\"]\n"), 0o644))

	_, _, err := h.run("--config", cfgPath, "--parser", "columns", "sweden", "-n")
	require.NoError(t, err)
	assert.Equal(t, config.ParserColumns, h.cfg.Parser)
	assert.Equal(t, []string{"New Zealand"}, h.cfg.Countries)

	h.stdin = listing
	_, _, err = h.run("--config", cfgPath, "--file", "-", "sweden", "-n")
	require.NoError(t, err)
	assert.Equal(t, config.SourceFile, h.cfg.Source)
	assert.Equal(t, "-", h.cfg.File.Path)

	_, _, err = h.run("--source", "carrier-pigeon", "sweden")
	assert.ErrorContains(t, err, "unknown source")
}

func TestMissingExplicitConfig(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("--config", filepath.Join(t.TempDir(), "nope.yaml"), "sweden")
	assert.Error(t, err)
}

func TestAnnounceDryRun(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run("announce", "--dry-run")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	// four nodes; the header row is skipped
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[2], `"kind":38384`)
	assert.Contains(t, lines[2], `United Kingdom`)
	assert.Empty(t, h.publisher.events)
}

func TestAnnounce(t *testing.T) {
	h := newHarness(t)
	t.Setenv(config.EnvNostrPrivKey, nostr.GeneratePrivateKey())

	out, _, err := h.run("announce")
	require.NoError(t, err)
	assert.Equal(t, "Announced 4 of 4 exit nodes\n", out)
	require.Len(t, h.publisher.events, 4)
	assert.Equal(t, "se-sto-wg-001", h.publisher.events[0].Tags.GetD())
	assert.True(t, h.publisher.closed)
}

func TestAnnounceNeedsKeyAndLocalSource(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("announce")
	assert.ErrorContains(t, err, "no nostr private key")

	_, _, err = h.run("--source", "nostr", "announce")
	assert.ErrorContains(t, err, "needs a local listing")
}
