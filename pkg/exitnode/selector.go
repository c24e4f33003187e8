package exitnode

import (
	"context"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"
)

// NonePattern disables the exit node instead of selecting one.
const NonePattern = "none"

// Selector runs the fetch, parse, match, pick, validate pipeline against
// injected collaborators.
type Selector struct {
	listing   ListingProvider
	activator Activator
	parser    Parser
	rnd       *rand.Rand
	log       *zap.Logger
}

// Option customizes a Selector.
type Option func(*Selector)

// WithRand makes tie-breaking use rnd instead of the global source.
func WithRand(rnd *rand.Rand) Option {
	return func(s *Selector) { s.rnd = rnd }
}

// WithParser overrides the default columns parser.
func WithParser(p Parser) Option {
	return func(s *Selector) { s.parser = p }
}

// WithLogger attaches a logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Selector) {
		if l != nil {
			s.log = l
		}
	}
}

// NewSelector builds a Selector. activator may be nil when the caller only
// previews.
func NewSelector(listing ListingProvider, activator Activator, opts ...Option) *Selector {
	s := &Selector{
		listing:   listing,
		activator: activator,
		parser:    NewParser(StrategyColumns),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Nodes fetches and parses the listing. An empty result is ErrEmptyListing.
func (s *Selector) Nodes(ctx context.Context) ([]ExitNode, error) {
	raw, err := s.listing.FetchListing(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch exit node list: %w", err)
	}

	nodes := s.parser.Parse(raw)
	s.log.Debug("parsed exit node listing",
		zap.String("strategy", string(s.parser.Strategy)),
		zap.Int("bytes", len(raw)),
		zap.Int("nodes", len(nodes)))

	if len(nodes) == 0 {
		return nil, ErrEmptyListing
	}
	return nodes, nil
}

// Select returns a validated node whose field matches pattern.
//
// The pattern "none" returns the zero ExitNode without touching the
// listing provider.
func (s *Selector) Select(ctx context.Context, field Field, pattern string) (ExitNode, error) {
	if pattern == NonePattern {
		s.log.Debug("pattern is none; skipping listing")
		return ExitNode{}, nil
	}

	nodes, err := s.Nodes(ctx)
	if err != nil {
		return ExitNode{}, err
	}

	values := UniqueValues(nodes, field)
	matched, err := MatchValue(values, field, pattern)
	if err != nil {
		return ExitNode{}, err
	}
	s.log.Debug("pattern matched",
		zap.String("field", string(field)),
		zap.String("pattern", pattern),
		zap.String("value", matched))

	return s.Choose(nodes, field, matched)
}

// Choose picks a random node whose field equals value exactly and
// validates its address.
func (s *Selector) Choose(nodes []ExitNode, field Field, value string) (ExitNode, error) {
	node, ok := PickNode(nodes, field, value, s.rnd)
	if !ok {
		return ExitNode{}, &NoMatchError{Field: field, Pattern: value, Available: UniqueValues(nodes, field)}
	}

	if err := ValidateIP(node.IP); err != nil {
		s.log.Warn("selected node has invalid address",
			zap.String("ip", node.IP), zap.String("hostname", node.Hostname))
		return ExitNode{}, &InvalidIPError{IP: node.IP, Hostname: node.Hostname}
	}

	s.log.Info("selected exit node",
		zap.String("ip", node.IP),
		zap.String("hostname", node.Hostname),
		zap.String("country", node.Country),
		zap.String("city", node.City))
	return node, nil
}

// Apply activates node, or only describes it when dryRun is set.
// The zero node clears the exit node.
func (s *Selector) Apply(ctx context.Context, node ExitNode, dryRun bool) (string, error) {
	if dryRun {
		return Preview(node), nil
	}
	if s.activator == nil {
		return "", fmt.Errorf("no activator configured")
	}

	if err := s.activator.ActivateExitNode(ctx, node.IP); err != nil {
		return "", fmt.Errorf("set exit node: %w", err)
	}

	if node.IsZero() {
		s.log.Info("exit node cleared")
		return "Exit node cleared", nil
	}
	s.log.Info("exit node set", zap.String("ip", node.IP))
	return fmt.Sprintf("Exit node set to: %s", node.IP), nil
}

// Preview describes what Apply would do without doing it.
func Preview(node ExitNode) string {
	if node.IsZero() {
		return "Would clear exit node"
	}
	return fmt.Sprintf("Would set exit node to: %s (%s, %s, %s)",
		node.IP, node.Hostname, node.City, node.Country)
}
