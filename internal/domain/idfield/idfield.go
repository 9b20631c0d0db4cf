package idfield

import "strings"

// DefaultUniqueKey is the identifier field used when nothing is configured.
const DefaultUniqueKey = "id"

// List is an ordered set of backend fields that may hold a record identifier.
// Order drives clause order in identifier queries; duplicates are kept.
type List []string

// Parse splits a comma-separated field setting into a List.
// Pieces are trimmed and empty pieces dropped; blank input yields an empty List.
func Parse(raw string) List {
	if strings.TrimSpace(raw) == "" {
		return List{}
	}

	parts := strings.Split(raw, ",")
	fields := make(List, 0, len(parts))
	for _, p := range parts {
		if f := strings.TrimSpace(p); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// ResolveUniqueKey returns the canonical identifier field for a raw field setting.
func ResolveUniqueKey(raw string) string {
	return Parse(raw).UniqueKey()
}

// UniqueKey returns "id" if it is listed anywhere or the list is empty,
// otherwise the first field.
func (l List) UniqueKey() string {
	if len(l) == 0 || l.Contains(DefaultUniqueKey) {
		return DefaultUniqueKey
	}
	return l[0]
}

// OrDefault returns l, or the single-element default list when l is empty.
func (l List) OrDefault() List {
	if len(l) == 0 {
		return List{DefaultUniqueKey}
	}
	return l
}

// Contains reports whether name is one of the fields.
func (l List) Contains(name string) bool {
	for _, f := range l {
		if f == name {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of the list.
func (l List) Clone() List {
	out := make(List, len(l))
	copy(out, l)
	return out
}

// String renders the list back in its configuration form.
func (l List) String() string {
	return strings.Join(l, ",")
}
