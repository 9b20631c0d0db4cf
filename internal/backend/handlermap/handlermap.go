// Package handlermap routes connector operations to search backend handlers.
package handlermap

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/multiid/internal/domain"
	"github.com/kailas-cloud/multiid/internal/domain/operation"
	"github.com/kailas-cloud/multiid/internal/domain/params"
)

// Handler describes one backend request handler and its parameter policy.
//
// Defaults are set only when the request does not carry the key.
// Appends are added to whatever the request carries (skipping exact duplicates).
// Invariants always replace the request's values.
type Handler struct {
	Path       string
	Defaults   map[string][]string
	Appends    map[string][]string
	Invariants map[string][]string
}

// Map is an immutable operation-to-handler table.
type Map struct {
	handlers map[operation.Operation]Handler
}

// Default returns the stock Solr layout: retrieve via /select, similar via /mlt.
func Default() map[operation.Operation]Handler {
	return map[operation.Operation]Handler{
		operation.Retrieve: {Path: "select"},
		operation.Similar:  {Path: "mlt"},
	}
}

// New validates and freezes a handler table.
func New(handlers map[operation.Operation]Handler) (*Map, error) {
	m := &Map{handlers: make(map[operation.Operation]Handler, len(handlers))}
	for op, h := range handlers {
		if !op.IsValid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownOperation, op)
		}
		path := strings.Trim(strings.TrimSpace(h.Path), "/")
		if path == "" {
			return nil, fmt.Errorf("handler path is required for operation %q", op)
		}
		m.handlers[op] = Handler{
			Path:       path,
			Defaults:   cloneValues(h.Defaults),
			Appends:    cloneValues(h.Appends),
			Invariants: cloneValues(h.Invariants),
		}
	}
	return m, nil
}

// Handler returns the backend handler path for op.
func (m *Map) Handler(op operation.Operation) (string, error) {
	h, ok := m.handlers[op]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownOperation, op)
	}
	return h.Path, nil
}

// Prepare applies the defaults, appends and invariants of op's handler to p.
func (m *Map) Prepare(op operation.Operation, p *params.Bag) error {
	h, ok := m.handlers[op]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownOperation, op)
	}

	for _, k := range sortedKeys(h.Defaults) {
		if !p.Has(k) {
			p.Set(k, h.Defaults[k]...)
		}
	}
	for _, k := range sortedKeys(h.Appends) {
		for _, v := range h.Appends[k] {
			if !p.Contains(k, v) {
				p.Add(k, v)
			}
		}
	}
	for _, k := range sortedKeys(h.Invariants) {
		p.Set(k, h.Invariants[k]...)
	}
	return nil
}

// Operations returns the mapped operations in a stable order.
func (m *Map) Operations() []operation.Operation {
	ops := make([]operation.Operation, 0, len(m.handlers))
	for op := range m.handlers {
		ops = append(ops, op)
	}
	slices.Sort(ops)
	return ops
}

func sortedKeys(v map[string][]string) []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func cloneValues(v map[string][]string) map[string][]string {
	if len(v) == 0 {
		return nil
	}
	out := make(map[string][]string, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
