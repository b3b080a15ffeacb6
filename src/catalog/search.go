package catalog

import (
	"fmt"
	"strings"

	"heymelody/src/library"
)

// untaggedAttrs are the track attributes an untagged search term is matched
// against.
var untaggedAttrs = []string{"title", "artist"}

type searchTerm struct {
	// attr is the attribute to match against, or "" for the untagged set.
	attr  string
	value string
}

// A Query matches tracks against a list of search terms. All terms must
// match for a track to be included.
type Query struct {
	terms []searchTerm
}

// CompileQuery parses a search string into a query. Terms are separated by
// whitespace and may be restricted to a single attribute with an
// "attr:value" prefix, e.g. "artist:queen bohemian".
func CompileQuery(q string) (*Query, error) {
	query := &Query{}
	for _, field := range strings.Fields(q) {
		term := searchTerm{value: field}
		if i := strings.IndexByte(field, ':'); i > 0 {
			attr, value := field[:i], field[i+1:]
			if (&library.Track{}).Attr(attr) == nil {
				return nil, fmt.Errorf("unknown search attribute %q", attr)
			}
			if value == "" {
				continue
			}
			term = searchTerm{attr: attr, value: value}
		}
		query.terms = append(query.terms, term)
	}
	if len(query.terms) == 0 {
		return nil, fmt.Errorf("query does not contain any search terms")
	}
	return query, nil
}

func (query *Query) Matches(track library.Track) bool {
	for _, term := range query.terms {
		if !term.matches(track) {
			return false
		}
	}
	return true
}

func (term searchTerm) matches(track library.Track) bool {
	attrs := untaggedAttrs
	if term.attr != "" {
		attrs = []string{term.attr}
	}
	for _, attr := range attrs {
		value, ok := track.Attr(attr).(string)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(value), strings.ToLower(term.value)) {
			return true
		}
	}
	return false
}
