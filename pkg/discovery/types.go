package discovery

import (
	"encoding/json"
	"strings"

	"github.com/nbd-wtf/go-nostr"

	"github.com/MakerMaker19/exitpick/pkg/exitnode"
)

// ExitNodeAnnouncementKind is the parameterized-replaceable nostr kind
// used to announce exit nodes. The "d" tag is the node hostname.
const ExitNodeAnnouncementKind = 38384

// ExitNodeAnnouncement models the JSON content of an announcement event.
type ExitNodeAnnouncement struct {
	IP       string `json:"ip"`
	Hostname string `json:"hostname"`
	Country  string `json:"country,omitempty"`
	City     string `json:"city,omitempty"`
}

// AnnouncementEvent builds an unsigned announcement for n. poolPub may be
// empty.
func AnnouncementEvent(n exitnode.ExitNode, poolPub string) (nostr.Event, error) {
	content, err := json.Marshal(ExitNodeAnnouncement{
		IP:       n.IP,
		Hostname: n.Hostname,
		Country:  n.Country,
		City:     n.City,
	})
	if err != nil {
		return nostr.Event{}, err
	}

	tags := nostr.Tags{{"d", n.Hostname}}
	if poolPub != "" {
		tags = append(tags, nostr.Tag{"pool", poolPub})
	}
	if n.Country != "" {
		tags = append(tags, nostr.Tag{"country", n.Country})
	}
	if n.City != "" {
		tags = append(tags, nostr.Tag{"city", n.City})
	}

	return nostr.Event{
		Kind:      ExitNodeAnnouncementKind,
		CreatedAt: nostr.Now(),
		Tags:      tags,
		Content:   string(content),
	}, nil
}

// nodeFromEvent turns an announcement into an exit node. ok is false when
// the event is of the wrong kind, belongs to another pool or lacks an IP
// or hostname. Tags override the JSON content.
func nodeFromEvent(ev *nostr.Event, poolPub string) (exitnode.ExitNode, bool) {
	if ev == nil || ev.Kind != ExitNodeAnnouncementKind {
		return exitnode.ExitNode{}, false
	}

	if poolPub != "" && !strings.EqualFold(firstTagValue(ev.Tags, "pool"), poolPub) {
		return exitnode.ExitNode{}, false
	}

	var ann ExitNodeAnnouncement
	if err := json.Unmarshal([]byte(ev.Content), &ann); err != nil {
		return exitnode.ExitNode{}, false
	}

	node := exitnode.ExitNode{
		IP:       strings.TrimSpace(ann.IP),
		Hostname: strings.TrimSpace(ann.Hostname),
		Country:  strings.TrimSpace(ann.Country),
		City:     strings.TrimSpace(ann.City),
	}
	if v := firstTagValue(ev.Tags, "d"); v != "" {
		node.Hostname = v
	}
	if v := firstTagValue(ev.Tags, "country"); v != "" {
		node.Country = v
	}
	if v := firstTagValue(ev.Tags, "city"); v != "" {
		node.City = v
	}

	if node.IP == "" || node.Hostname == "" {
		return exitnode.ExitNode{}, false
	}
	return node, true
}

func firstTagValue(tags nostr.Tags, name string) string {
	for _, t := range tags {
		if len(t) >= 2 && t[0] == name {
			return t[1]
		}
	}
	return ""
}
