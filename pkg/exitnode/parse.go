package exitnode

import (
	"fmt"
	"regexp"
	"strings"
)

// Strategy selects how a listing line is split into fields.
type Strategy string

const (
	// StrategyColumns splits on runs of two or more whitespace characters,
	// so single spaces inside "United Kingdom" or "New York" survive.
	// Lines that yield fewer than four columns are retried with the
	// StrategyWords split.
	StrategyColumns Strategy = "columns"

	// StrategyWords splits on any whitespace and uses the multi-word
	// country allow-list to decide where the country ends and the city
	// begins.
	StrategyWords Strategy = "words"
)

// ParseStrategy accepts "columns" or "words"; empty means columns.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyColumns:
		return StrategyColumns, nil
	case StrategyWords:
		return StrategyWords, nil
	}
	return "", fmt.Errorf("unknown parser %q (want columns or words)", s)
}

var columnSep = regexp.MustCompile(`\s{2,}`)

// Parser turns listing text into exit nodes.
type Parser struct {
	Strategy  Strategy
	Countries CountrySet // words split and the columns fallback
}

// NewParser returns a Parser using the built-in country allow-list
// extended with extraCountries.
func NewParser(strategy Strategy, extraCountries ...string) Parser {
	return Parser{
		Strategy:  strategy,
		Countries: DefaultCountries(extraCountries...),
	}
}

// ParseListing parses text with the given strategy and the default
// allow-list.
func ParseListing(text string, strategy Strategy) []ExitNode {
	return NewParser(strategy).Parse(text)
}

// Parse returns one node per usable line, in order of appearance.
// Comment lines (starting with '#'), blank lines and lines with fewer
// than four fields are skipped. IP addresses are not checked here.
func (p Parser) Parse(text string) []ExitNode {
	var nodes []ExitNode
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var fields []string
		if p.Strategy == StrategyWords {
			fields = p.splitWords(line)
		} else {
			fields = columnSep.Split(line, -1)
			// Single-spaced rows fall back to the allow-list split.
			if len(fields) < 4 {
				fields = p.splitWords(line)
			}
		}
		if len(fields) < 4 {
			continue
		}

		nodes = append(nodes, ExitNode{
			IP:       fields[0],
			Hostname: fields[1],
			Country:  fields[2],
			City:     fields[3],
		})
	}
	return nodes
}

// splitWords returns ip, hostname, country, city for a whitespace
// separated line, or nil if there are fewer than four tokens.
func (p Parser) splitWords(line string) []string {
	tokens := strings.Fields(line)
	if len(tokens) < 4 {
		return nil
	}
	rest := tokens[2:]

	// Shortest listed prefix wins, as long as a city token is left over.
	for n := 2; n < len(rest); n++ {
		candidate := strings.Join(rest[:n], " ")
		if p.Countries.Contains(candidate) {
			return []string{tokens[0], tokens[1], candidate, strings.Join(rest[n:], " ")}
		}
	}

	return []string{tokens[0], tokens[1], rest[0], strings.Join(rest[1:], " ")}
}
