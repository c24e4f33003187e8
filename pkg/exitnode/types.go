package exitnode

import (
	"context"
	"fmt"
	"strings"
)

// ExitNode is one row of an exit-node listing.
type ExitNode struct {
	IP       string // "100.64.0.1"
	Hostname string // "se-sto-wg-001.mullvad.ts.net"
	Country  string // "Sweden", "United Kingdom"
	City     string // "Stockholm", "New York"
}

// IsZero reports whether n is the empty node used for "disable exit node".
func (n ExitNode) IsZero() bool {
	return n == ExitNode{}
}

// Field selects which attribute a pattern is matched against.
type Field string

const (
	FieldCountry  Field = "country"
	FieldCity     Field = "city"
	FieldHostname Field = "hostname"
)

// ParseField accepts "country", "city" or "hostname" (case-insensitive).
// An empty string means country.
func ParseField(s string) (Field, error) {
	switch Field(strings.ToLower(strings.TrimSpace(s))) {
	case "", FieldCountry:
		return FieldCountry, nil
	case FieldCity:
		return FieldCity, nil
	case FieldHostname:
		return FieldHostname, nil
	}
	return "", fmt.Errorf("unknown field %q (want country, city or hostname)", s)
}

// Value returns the attribute of n selected by f.
func (f Field) Value(n ExitNode) string {
	switch f {
	case FieldCity:
		return n.City
	case FieldHostname:
		return n.Hostname
	default:
		return n.Country
	}
}

// ListingProvider produces the raw text table of exit nodes
// (e.g. the output of `tailscale exit-node list`).
type ListingProvider interface {
	FetchListing(ctx context.Context) (string, error)
}

// Activator switches the active exit node. An empty ip clears it.
type Activator interface {
	ActivateExitNode(ctx context.Context, ip string) error
}
