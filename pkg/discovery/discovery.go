// Package discovery chooses where the exit-node listing comes from: the
// local tailscale CLI, a saved listing file, or announcements on nostr.
package discovery

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/MakerMaker19/exitpick/pkg/config"
	"github.com/MakerMaker19/exitpick/pkg/exitnode"
	"github.com/MakerMaker19/exitpick/pkg/nostrutil"
	"github.com/MakerMaker19/exitpick/pkg/tailscale"
)

// NewProvider returns the ListingProvider selected by cfg.Source. stdin
// backs the file source when its path is "-".
func NewProvider(cfg config.Config, stdin io.Reader, log *zap.Logger) (exitnode.ListingProvider, error) {
	if log == nil {
		log = zap.NewNop()
	}

	switch strings.ToLower(cfg.Source) {
	case "", config.SourceTailscale:
		return tailscale.New(cfg.Tailscale.Binary, tailscale.WithLogger(log)), nil

	case config.SourceFile:
		if cfg.File.Path == "" {
			return nil, fmt.Errorf("listing file path not set")
		}
		return NewFileProvider(cfg.File.Path, stdin), nil

	case config.SourceNostr:
		var poolPub string
		if cfg.Nostr.PoolPubKey != "" {
			parsed, err := nostrutil.ParsePubKey(cfg.Nostr.PoolPubKey)
			if err != nil {
				return nil, fmt.Errorf("parse pool pubkey: %w", err)
			}
			poolPub = parsed
		} else {
			log.Warn("pool pubkey is empty; accepting announcements from any pool")
		}
		log.Debug("using nostr discovery",
			zap.Strings("relays", cfg.Nostr.Relays),
			zap.String("pool", poolPub),
			zap.Duration("wait", cfg.Nostr.Wait))
		return NewNostrProvider(cfg.Nostr.Relays, poolPub, cfg.Nostr.Wait, log), nil
	}

	return nil, fmt.Errorf("unknown listing source %q", cfg.Source)
}
