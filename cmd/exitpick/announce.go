package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nbd-wtf/go-nostr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MakerMaker19/exitpick/pkg/config"
	"github.com/MakerMaker19/exitpick/pkg/discovery"
	"github.com/MakerMaker19/exitpick/pkg/exitnode"
	"github.com/MakerMaker19/exitpick/pkg/nostrutil"
)

// publisher is the part of nostrutil.Client announce needs.
type publisher interface {
	Publish(ctx context.Context, ev nostr.Event) error
	Close()
}

var _ publisher = (*nostrutil.Client)(nil)

func newAnnounceCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "announce",
		Short: "Publish the local exit nodes to nostr relays",
		Long: `announce reads the local exit node listing and publishes one signed
announcement (kind 38384) per node with a valid IPv4 address, so other
machines can use --source nostr. The key comes from nostr.privkey or
EXITPICK_NOSTR_PRIVKEY; announcements are tagged with nostr.pool_pubkey
when set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Source == config.SourceNostr {
				return errors.New("announce needs a local listing; use --source tailscale or file")
			}

			poolPub := ""
			if a.cfg.Nostr.PoolPubKey != "" {
				pk, err := nostrutil.ParsePubKey(a.cfg.Nostr.PoolPubKey)
				if err != nil {
					return fmt.Errorf("invalid pool pubkey: %w", err)
				}
				poolPub = pk
			}

			sel, err := a.selector(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			nodes, err := sel.Nodes(ctx)
			if err != nil {
				return err
			}

			events := announcements(nodes, poolPub, a.log)
			if len(events) == 0 {
				return errors.New("no exit nodes with a valid address to announce")
			}

			out := cmd.OutOrStdout()
			if dryRun {
				enc := json.NewEncoder(out)
				for _, ev := range events {
					if err := enc.Encode(ev); err != nil {
						return err
					}
				}
				return nil
			}

			if a.cfg.Nostr.PrivKey == "" {
				return fmt.Errorf("no nostr private key (set nostr.privkey or %s)", config.EnvNostrPrivKey)
			}
			pub, err := a.deps.newPublisher(ctx, a.cfg, a.log)
			if err != nil {
				return err
			}
			defer pub.Close()

			published := 0
			for _, ev := range events {
				if err := pub.Publish(ctx, ev); err != nil {
					a.log.Warn("announcement failed", zap.String("d", ev.Tags.GetD()), zap.Error(err))
					continue
				}
				published++
			}
			if published == 0 {
				return fmt.Errorf("none of %d announcements were published", len(events))
			}
			fmt.Fprintf(out, "Announced %d of %d exit nodes\n", published, len(events))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "print unsigned events instead of publishing")
	return cmd
}

// announcements builds one unsigned event per node, skipping nodes whose
// address does not validate (such as a listing header row).
func announcements(nodes []exitnode.ExitNode, poolPub string, log *zap.Logger) []nostr.Event {
	events := make([]nostr.Event, 0, len(nodes))
	for _, n := range nodes {
		if err := exitnode.ValidateIP(n.IP); err != nil {
			log.Debug("skipping node", zap.String("ip", n.IP), zap.String("hostname", n.Hostname))
			continue
		}
		ev, err := discovery.AnnouncementEvent(n, poolPub)
		if err != nil {
			log.Warn("building announcement", zap.String("hostname", n.Hostname), zap.Error(err))
			continue
		}
		events = append(events, ev)
	}
	return events
}
