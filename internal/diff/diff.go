// Package diff computes field-level structural diffs between two analysis
// payloads. The result is stored alongside each analysis version as
// changes_from_previous; it exists for provenance, not for reconstruction.
package diff

import (
	"reflect"
	"sort"
)

// Changes describes what differs between two document-shaped maps.
// Keys under "added" exist only in the new document, "removed" only in the
// old one, and "changed" in both with different values.
type Changes struct {
	Added   map[string]any       `json:"added,omitempty"`
	Removed map[string]any       `json:"removed,omitempty"`
	Changed map[string]FieldEdit `json:"changed,omitempty"`
}

// FieldEdit holds the before and after values of one changed field.
type FieldEdit struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// Empty reports whether no differences were found.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Changed) == 0
}

// Fields lists every top-level key touched by the diff, sorted.
func (c Changes) Fields() []string {
	seen := make(map[string]struct{})
	for k := range c.Added {
		seen[k] = struct{}{}
	}
	for k := range c.Removed {
		seen[k] = struct{}{}
	}
	for k := range c.Changed {
		seen[k] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Compare diffs two documents at the top-level field granularity.
// Values are compared deeply; a nested change surfaces as a "changed" entry
// for its top-level key with the full before/after values.
func Compare(prev, next map[string]any) Changes {
	c := Changes{
		Added:   make(map[string]any),
		Removed: make(map[string]any),
		Changed: make(map[string]FieldEdit),
	}
	for k, nv := range next {
		pv, ok := prev[k]
		if !ok {
			c.Added[k] = nv
			continue
		}
		if !reflect.DeepEqual(pv, nv) {
			c.Changed[k] = FieldEdit{From: pv, To: nv}
		}
	}
	for k, pv := range prev {
		if _, ok := next[k]; !ok {
			c.Removed[k] = pv
		}
	}
	if len(c.Added) == 0 {
		c.Added = nil
	}
	if len(c.Removed) == 0 {
		c.Removed = nil
	}
	if len(c.Changed) == 0 {
		c.Changed = nil
	}
	return c
}

// AsMap renders the changes in the JSONB shape stored on the analysis row.
func (c Changes) AsMap() map[string]any {
	if c.Empty() {
		return nil
	}
	out := make(map[string]any, 3)
	if len(c.Added) > 0 {
		out["added"] = c.Added
	}
	if len(c.Removed) > 0 {
		out["removed"] = c.Removed
	}
	if len(c.Changed) > 0 {
		changed := make(map[string]any, len(c.Changed))
		for k, e := range c.Changed {
			changed[k] = map[string]any{"from": e.From, "to": e.To}
		}
		out["changed"] = changed
	}
	return out
}
