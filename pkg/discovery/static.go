package discovery

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/MakerMaker19/exitpick/pkg/exitnode"
)

// fileProvider serves a listing saved from `tailscale exit-node list`.
// The path "-" reads standard input.
type fileProvider struct {
	path  string
	stdin io.Reader
}

// NewFileProvider returns a ListingProvider backed by path. stdin is read
// when path is "-".
func NewFileProvider(path string, stdin io.Reader) exitnode.ListingProvider {
	return fileProvider{path: path, stdin: stdin}
}

func (p fileProvider) FetchListing(_ context.Context) (string, error) {
	if p.path == "-" {
		if p.stdin == nil {
			return "", fmt.Errorf("read listing from stdin: no input")
		}
		b, err := io.ReadAll(p.stdin)
		if err != nil {
			return "", fmt.Errorf("read listing from stdin: %w", err)
		}
		return string(b), nil
	}

	b, err := os.ReadFile(p.path)
	if err != nil {
		return "", fmt.Errorf("read listing: %w", err)
	}
	return string(b), nil
}

// RenderListing writes nodes as a column-aligned table with at least two
// spaces between columns, the same shape the columns parser reads.
// Empty values are written as "-" so every row keeps four columns.
func RenderListing(nodes []exitnode.ExitNode) string {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	for _, n := range nodes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", cell(n.IP), cell(n.Hostname), cell(n.Country), cell(n.City))
	}
	_ = tw.Flush()
	return sb.String()
}

// cell collapses internal whitespace so a value never contains the
// two-space column separator.
func cell(v string) string {
	v = strings.Join(strings.Fields(v), " ")
	if v == "" {
		return "-"
	}
	return v
}
