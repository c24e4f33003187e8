package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MakerMaker19/exitpick/pkg/config"
	"github.com/MakerMaker19/exitpick/pkg/discovery"
	"github.com/MakerMaker19/exitpick/pkg/exitnode"
	"github.com/MakerMaker19/exitpick/pkg/logging"
	"github.com/MakerMaker19/exitpick/pkg/nostrutil"
	"github.com/MakerMaker19/exitpick/pkg/picker"
	"github.com/MakerMaker19/exitpick/pkg/tailscale"
)

// deps are the seams tests replace.
type deps struct {
	newListing   func(cfg config.Config, stdin io.Reader, log *zap.Logger) (exitnode.ListingProvider, error)
	newActivator func(cfg config.Config, log *zap.Logger) exitnode.Activator
	newLogger    func(verbose bool) (*zap.Logger, error)
	runPicker    func(nodes []exitnode.ExitNode, field exitnode.Field, in io.Reader, out io.Writer) (string, error)
	newPublisher func(ctx context.Context, cfg config.Config, log *zap.Logger) (publisher, error)
	rand         *rand.Rand
}

func defaultDeps() deps {
	return deps{
		newListing: discovery.NewProvider,
		newActivator: func(cfg config.Config, log *zap.Logger) exitnode.Activator {
			return tailscale.New(cfg.Tailscale.Binary, tailscale.WithLogger(log))
		},
		newLogger: logging.New,
		runPicker: picker.Run,
		newPublisher: func(ctx context.Context, cfg config.Config, log *zap.Logger) (publisher, error) {
			return nostrutil.NewClient(ctx, cfg.Nostr.PrivKey, cfg.Nostr.Relays, log)
		},
	}
}

// app holds state shared by every subcommand once flags are parsed.
type app struct {
	deps deps

	configPath  string
	source      string
	parser      string
	listingFile string
	verbose     bool

	cfg config.Config
	log *zap.Logger
}

func newRootCmd(d deps) *cobra.Command {
	a := &app{deps: d}

	var (
		field    string
		city     bool
		hostname bool
		dryRun   bool
	)

	rootCmd := &cobra.Command{
		Use:   "exitpick [pattern]",
		Short: "Select a Tailscale exit node by country, city or hostname",
		Long: `exitpick lists the available exit nodes, matches PATTERN against one field
(case-insensitive substring), picks one node at random among those sharing
the matched value and activates it with "tailscale set --exit-node".

PATTERN "none" turns the exit node off.

Examples:
  exitpick sweden           # any Swedish exit node
  exitpick --city gothen    # a node in Gothenburg
  exitpick --hostname us-nyc -n
  exitpick none`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := resolveField(field, city, hostname)
			if err != nil {
				return err
			}
			return a.runSelect(cmd, f, args[0], dryRun)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default ~/.exitpick/config.yaml)")
	pf.StringVar(&a.source, "source", "", "listing source: tailscale, file or nostr")
	pf.StringVar(&a.parser, "parser", "", "listing parser: columns or words")
	pf.StringVar(&a.listingFile, "file", "", `read the listing from this file ("-" for stdin) instead of tailscale`)
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.Flags().StringVar(&field, "field", "country", "field to match: country, city or hostname")
	rootCmd.Flags().BoolVarP(&city, "city", "c", false, "match against city instead of country")
	rootCmd.Flags().BoolVar(&hostname, "hostname", false, "match against hostname instead of country")
	rootCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "show selected node without activating it")

	rootCmd.AddCommand(newValuesCmd(a), newPickCmd(a), newAnnounceCmd(a))
	return rootCmd
}

// setup loads configuration, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Source = a.source
	}
	if flags.Changed("parser") {
		cfg.Parser = a.parser
	}
	if flags.Changed("file") {
		cfg.Source = config.SourceFile
		cfg.File.Path = a.listingFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.log, err = a.deps.newLogger(a.verbose)
	if err != nil {
		return err
	}
	a.log.Debug("configuration loaded",
		zap.String("source", cfg.Source),
		zap.String("parser", cfg.Parser),
		zap.String("command", cmd.Name()))
	return nil
}

// selector wires the configured collaborators into an exitnode.Selector.
func (a *app) selector(cmd *cobra.Command) (*exitnode.Selector, error) {
	strategy, err := exitnode.ParseStrategy(a.cfg.Parser)
	if err != nil {
		return nil, err
	}
	listing, err := a.deps.newListing(a.cfg, cmd.InOrStdin(), a.log)
	if err != nil {
		return nil, err
	}

	opts := []exitnode.Option{
		exitnode.WithParser(exitnode.NewParser(strategy, a.cfg.Countries...)),
		exitnode.WithLogger(a.log),
	}
	if a.deps.rand != nil {
		opts = append(opts, exitnode.WithRand(a.deps.rand))
	}
	return exitnode.NewSelector(listing, a.deps.newActivator(a.cfg, a.log), opts...), nil
}

func (a *app) runSelect(cmd *cobra.Command, field exitnode.Field, pattern string, dryRun bool) error {
	sel, err := a.selector(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	node, err := sel.Select(ctx, field, pattern)
	if err != nil {
		return err
	}

	msg, err := sel.Apply(ctx, node, dryRun)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}

// resolveField maps the flags to a field. --hostname beats --city, and
// both beat --field.
func resolveField(field string, city, hostname bool) (exitnode.Field, error) {
	switch {
	case hostname:
		return exitnode.FieldHostname, nil
	case city:
		return exitnode.FieldCity, nil
	}
	return exitnode.ParseField(field)
}
