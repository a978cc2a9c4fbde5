package scope

import "strings"

// Action is the verb half of a scope tag.
type Action string

const (
	ActionNew   Action = "new"
	ActionAlter Action = "alter"
)

// Tag is a parsed "<action>:<component>" scope tag.
type Tag struct {
	Action    Action
	Component string
}

// String renders the tag in its stored form.
func (t Tag) String() string {
	return string(t.Action) + ":" + t.Component
}

// ParseTag splits a stored tag. A tag without an action prefix is returned
// with an empty Action.
func ParseTag(s string) Tag {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return Tag{Action: Action(s[:i]), Component: s[i+1:]}
	}
	return Tag{Component: s}
}

// Components returns the distinct components named by tags, in input order.
func Components(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, raw := range tags {
		c := ParseTag(raw).Component
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
