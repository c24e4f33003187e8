package exitnode

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyListing is returned when the listing holds no parseable nodes.
var ErrEmptyListing = errors.New("no exit nodes found")

// NoMatchError means the pattern matched none of the available values.
type NoMatchError struct {
	Field     Field
	Pattern   string
	Available []string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no %s matching '%s' found. Available %s: %s",
		e.Field, e.Pattern, e.Field.plural(), strings.Join(e.Available, ", "))
}

// AmbiguousMatchError means the pattern matched more than one value.
type AmbiguousMatchError struct {
	Field   Field
	Pattern string
	Matches []string
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("ambiguous match '%s' matches multiple %s: %s",
		e.Pattern, e.Field.plural(), strings.Join(e.Matches, ", "))
}

// InvalidIPError means the selected node's address is not a dotted quad.
type InvalidIPError struct {
	IP       string
	Hostname string
}

func (e *InvalidIPError) Error() string {
	if e.Hostname != "" {
		return fmt.Sprintf("invalid IP address format %q for node %s", e.IP, e.Hostname)
	}
	return fmt.Sprintf("invalid IP address format %q", e.IP)
}

func (f Field) plural() string {
	switch f {
	case FieldCountry:
		return "countries"
	case FieldCity:
		return "cities"
	}
	return string(f) + "s"
}
