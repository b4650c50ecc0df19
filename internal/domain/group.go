package domain

import (
	"cmp"
	"slices"
)

// Group is a sender.net mailing-list segment. It is a read-only projection
// of the remote resource and is never cached.
type Group struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// GroupOptions is the display-ready list of groups, ordered by title.
type GroupOptions []Group

// NewGroupOptions sorts groups by title (case-sensitive) and then by id.
func NewGroupOptions(groups []Group) GroupOptions {
	opts := make(GroupOptions, len(groups))
	copy(opts, groups)
	slices.SortStableFunc(opts, func(a, b Group) int {
		if c := cmp.Compare(a.Title, b.Title); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return opts
}

// Map returns the options as group id → title.
func (o GroupOptions) Map() map[string]string {
	m := make(map[string]string, len(o))
	for _, g := range o {
		m[g.ID] = g.Title
	}
	return m
}

