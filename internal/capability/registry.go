package capability

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registry holds all registered capabilities. It is shared across concurrent
// runs: reads are concurrent, writes are serialized and last-write-wins.
type Registry struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]Record)}
}

// Register inserts or replaces a capability by name. Registration is
// idempotent under identical name+schema; a differing schema under the same
// name bumps the version recorded in provenance. The last registration wins
// for Resolve.
func (r *Registry) Register(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.Provenance.CreatedAt.IsZero() {
		rec.Provenance.CreatedAt = time.Now()
	}
	if rec.Provenance.Version == 0 {
		rec.Provenance.Version = 1
	}
	if prev, ok := r.records[rec.Name]; ok && prev.SchemaJSON != rec.SchemaJSON {
		rec.Provenance.Version = prev.Provenance.Version + 1
	}
	r.records[rec.Name] = rec
}

// Resolve returns the capability registered under name.
func (r *Registry) Resolve(name string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[name]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrUnknownCapability, name)
	}
	return rec, nil
}

// List returns all registered names, sorted so oracle prompts stay
// deterministic.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.records))
	for name := range r.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summaries returns name/description/schema for every capability, sorted by
// name. Used when building gateway requests.
func (r *Registry) Summaries() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Summary, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, Summary{
			Name:        rec.Name,
			Description: rec.Description,
			SchemaJSON:  rec.SchemaJSON,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
