package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"go.uber.org/zap"

	"github.com/MakerMaker19/exitpick/pkg/exitnode"
)

// nostrProvider builds a listing from exit-node announcements published on
// nostr relays. Relays are queried one after another under a shared
// deadline.
type nostrProvider struct {
	relays    []string
	poolPub   string
	wait      time.Duration
	log       *zap.Logger
	subscribe subscribeFunc

	// seen keeps the newest announcement per author+hostname.
	seen  map[string]*nostr.Event
	order []string
}

// NewNostrProvider creates a ListingProvider that collects announcements
// until every relay reports end of stored events or wait elapses.
func NewNostrProvider(relays []string, poolPubKey string, wait time.Duration, log *zap.Logger) exitnode.ListingProvider {
	if log == nil {
		log = zap.NewNop()
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &nostrProvider{
		relays:    relays,
		poolPub:   poolPubKey,
		wait:      wait,
		log:       log,
		subscribe: subscribeRelay,
	}
}

// relaySub is an open subscription on one relay.
type relaySub struct {
	events <-chan *nostr.Event
	eose   <-chan struct{}
	close  func()
}

type subscribeFunc func(ctx context.Context, url string, filter nostr.Filter) (*relaySub, error)

func subscribeRelay(ctx context.Context, url string, filter nostr.Filter) (*relaySub, error) {
	relay, err := nostr.RelayConnect(ctx, url)
	if err != nil {
		return nil, err
	}

	sub, err := relay.Subscribe(ctx, nostr.Filters{filter})
	if err != nil {
		_ = relay.Close()
		return nil, err
	}
	return &relaySub{
		events: sub.Events,
		eose:   sub.EndOfStoredEvents,
		close: func() {
			sub.Unsub()
			_ = relay.Close()
		},
	}, nil
}

func (p *nostrProvider) FetchListing(ctx context.Context) (string, error) {
	if len(p.relays) == 0 {
		return "", errors.New("no nostr relays configured")
	}

	ctx, cancel := context.WithTimeout(ctx, p.wait)
	defer cancel()

	p.seen = map[string]*nostr.Event{}
	p.order = nil

	filter := nostr.Filter{Kinds: []int{ExitNodeAnnouncementKind}}
	if p.poolPub != "" {
		filter.Tags = nostr.TagMap{"pool": []string{p.poolPub}}
	}

	var tried, failed int
	for _, raw := range p.relays {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}
		tried++
		if err := p.collect(ctx, url, filter); err != nil {
			failed++
			p.log.Warn("nostr relay query failed", zap.String("relay", url), zap.Error(err))
		}
	}
	if failed == tried {
		return "", fmt.Errorf("query %d nostr relays: all failed", failed)
	}

	nodes := make([]exitnode.ExitNode, 0, len(p.order))
	for _, key := range p.order {
		if n, ok := nodeFromEvent(p.seen[key], p.poolPub); ok {
			nodes = append(nodes, n)
		}
	}
	p.log.Debug("collected nostr exit node announcements",
		zap.Int("relays", len(p.relays)), zap.Int("nodes", len(nodes)))

	return RenderListing(nodes), nil
}

// collect reads stored announcements from one relay.
func (p *nostrProvider) collect(ctx context.Context, url string, filter nostr.Filter) error {
	sub, err := p.subscribe(ctx, url, filter)
	if err != nil {
		return err
	}
	defer sub.close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.eose:
			p.drain(sub.events)
			return nil
		case ev, ok := <-sub.events:
			if !ok {
				return nil
			}
			p.add(ev)
		}
	}
}

// drain picks up events queued before the end-of-stored-events signal.
func (p *nostrProvider) drain(events <-chan *nostr.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			p.add(ev)
		default:
			return
		}
	}
}

// add records ev if it is a validly signed announcement newer than what
// we already hold for the same author and hostname.
func (p *nostrProvider) add(ev *nostr.Event) {
	if ev == nil {
		return
	}
	if ok, err := ev.CheckSignature(); !ok || err != nil {
		p.log.Debug("ignoring announcement with bad signature", zap.String("event", ev.ID))
		return
	}

	node, ok := nodeFromEvent(ev, p.poolPub)
	if !ok {
		p.log.Debug("ignoring unusable announcement", zap.String("event", ev.ID))
		return
	}

	key := ev.PubKey + "/" + node.Hostname
	prev, exists := p.seen[key]
	if !exists {
		p.order = append(p.order, key)
	} else if prev.CreatedAt >= ev.CreatedAt {
		return
	}
	p.seen[key] = ev
}
