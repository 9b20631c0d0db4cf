// Package params holds the parameter bag sent with one backend request.
package params

import (
	"net/url"
	"slices"
	"strings"
)

// Bag is an ordered multi-value parameter set for a single outgoing request.
// It is not safe for concurrent use; treat each Bag as request-scoped.
type Bag struct {
	keys   []string
	values map[string][]string
}

// New returns an empty Bag.
func New() *Bag {
	return &Bag{values: make(map[string][]string)}
}

// FromValues builds a Bag from url.Values. Keys are sorted since url.Values has no order.
func FromValues(v url.Values) *Bag {
	b := New()
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		b.Set(k, v[k]...)
	}
	return b
}

// Set replaces all values of key. A new key is appended to the key order.
func (b *Bag) Set(key string, values ...string) {
	b.init()
	if _, ok := b.values[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.values[key] = append([]string(nil), values...)
}

// Add appends a value to key.
func (b *Bag) Add(key, value string) {
	b.init()
	if _, ok := b.values[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.values[key] = append(b.values[key], value)
}

// Get returns a copy of the values of key, or nil.
func (b *Bag) Get(key string) []string {
	v, ok := b.values[key]
	if !ok {
		return nil
	}
	return append([]string(nil), v...)
}

// First returns the first value of key, or "".
func (b *Bag) First(key string) string {
	if v := b.values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Has reports whether key is present.
func (b *Bag) Has(key string) bool {
	_, ok := b.values[key]
	return ok
}

// Contains reports whether key holds value.
func (b *Bag) Contains(key, value string) bool {
	for _, v := range b.values[key] {
		if v == value {
			return true
		}
	}
	return false
}

// Remove deletes key.
func (b *Bag) Remove(key string) {
	if _, ok := b.values[key]; !ok {
		return
	}
	delete(b.values, key)
	for i, k := range b.keys {
		if k == key {
			b.keys = append(b.keys[:i], b.keys[i+1:]...)
			break
		}
	}
}

// Keys returns keys in insertion order.
func (b *Bag) Keys() []string {
	return append([]string(nil), b.keys...)
}

// Clone returns a deep copy.
func (b *Bag) Clone() *Bag {
	c := New()
	for _, k := range b.keys {
		c.Set(k, b.values[k]...)
	}
	return c
}

// Encode renders the bag as a query string in insertion order.
// Equal bags built in the same order encode identically.
func (b *Bag) Encode() string {
	var sb strings.Builder
	for _, k := range b.keys {
		ek := url.QueryEscape(k)
		for _, v := range b.values[k] {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(ek)
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(v))
		}
	}
	return sb.String()
}

func (b *Bag) init() {
	if b.values == nil {
		b.values = make(map[string][]string)
	}
}
