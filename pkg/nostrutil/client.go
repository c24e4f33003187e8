package nostrutil

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"go.uber.org/zap"
)

// Client wraps a basic nostr relay set + keys.
type Client struct {
	PrivKey string
	PubKey  string
	Relays  []*nostr.Relay

	log *zap.Logger
}

// NewClient connects to the given relay URLs and parses the privkey
// (which may be hex or nsec). Relays that fail to connect are skipped;
// at least one must succeed.
func NewClient(ctx context.Context, priv string, relayURLs []string, log *zap.Logger) (*Client, error) {
	parsed, err := ParsePrivKey(priv)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	c := &Client{
		PrivKey: parsed.PrivHex,
		PubKey:  parsed.PubHex,
		log:     log,
	}

	for _, raw := range relayURLs {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}
		relay, err := nostr.RelayConnect(ctx, url)
		if err != nil {
			log.Warn("failed to connect to relay", zap.String("relay", url), zap.Error(err))
			continue
		}
		c.Relays = append(c.Relays, relay)
	}

	if len(c.Relays) == 0 {
		return nil, fmt.Errorf("no relays connected")
	}

	return c, nil
}

// Publish signs ev with the client key and broadcasts it to all connected
// relays. It fails only if no relay accepted the event.
func (c *Client) Publish(ctx context.Context, ev nostr.Event) error {
	ev.PubKey = c.PubKey
	if ev.CreatedAt == 0 {
		ev.CreatedAt = nostr.Now()
	}
	if err := ev.Sign(c.PrivKey); err != nil {
		return fmt.Errorf("sign event: %w", err)
	}

	var errs []error
	for _, r := range c.Relays {
		if err := r.Publish(ctx, ev); err != nil {
			c.log.Warn("failed to publish event", zap.String("relay", r.URL), zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) == len(c.Relays) {
		return fmt.Errorf("publish to %d relays: %w", len(c.Relays), errors.Join(errs...))
	}
	return nil
}

// Close disconnects from every relay.
func (c *Client) Close() {
	for _, r := range c.Relays {
		_ = r.Close()
	}
}
