package shoptl

import "strings"

// HandleSet is an ordered, deduplicated set of product handles.
type HandleSet []string

// ParseHandles splits free text on commas and newlines into a HandleSet.
// Entries are trimmed; empty entries and duplicates are dropped.
func ParseHandles(input string) HandleSet {
	parts := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	seen := make(map[string]bool, len(parts))
	handles := make(HandleSet, 0, len(parts))
	for _, part := range parts {
		h := strings.TrimSpace(part)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		handles = append(handles, h)
	}
	return handles
}

// Contains reports whether h is in the set.
func (s HandleSet) Contains(h string) bool {
	for _, v := range s {
		if v == h {
			return true
		}
	}
	return false
}

// Selection is the set of products matched by a HandleSet.
type Selection struct {
	IDs     []string          // Matched Identifications, first-seen order
	Rows    []Row             // Every row of the matched products, original order
	Handles map[string]string // Matched handle -> Identification
	wanted  HandleSet
}

// MissingHandles returns the requested handles that matched no product.
func (s *Selection) MissingHandles() []string {
	var missing []string
	for _, h := range s.wanted {
		if _, ok := s.Handles[h]; !ok {
			missing = append(missing, h)
		}
	}
	return missing
}

// Select finds the products whose handle row content is in handles and
// returns every row belonging to them, regardless of field.
// It returns ErrNoHandles for an empty set and *NoMatchError when nothing matches.
func Select(rows []Row, handles HandleSet) (*Selection, error) {
	if len(handles) == 0 {
		return nil, ErrNoHandles
	}

	wanted := make(map[string]bool, len(handles))
	for _, h := range handles {
		wanted[h] = true
	}

	sel := &Selection{
		Handles: make(map[string]string),
		wanted:  handles,
	}
	ids := make(map[string]bool)
	for _, row := range rows {
		if row.Field != FieldHandle || !wanted[row.Default] {
			continue
		}
		if !ids[row.ID] {
			ids[row.ID] = true
			sel.IDs = append(sel.IDs, row.ID)
		}
		if _, ok := sel.Handles[row.Default]; !ok {
			sel.Handles[row.Default] = row.ID
		}
	}

	if len(ids) == 0 {
		return nil, &NoMatchError{Handles: handles}
	}

	for _, row := range rows {
		if ids[row.ID] {
			sel.Rows = append(sel.Rows, row)
		}
	}

	return sel, nil
}
