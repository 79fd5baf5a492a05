package cookie

import (
	"sync"

	"github.com/rvilla/marks-front/internal/log"
)

// Jar is a single mutable per-request cookie store, used by render contexts
// where the request and response sides share one view of the session. A
// read-only jar silently drops writes: the session may go stale until a
// context with write access observes it again.
type Jar struct {
	mu       sync.Mutex
	entries  map[string]Entry
	order    []string
	changed  map[string]struct{}
	readOnly bool
}

// NewJar creates a jar seeded with the given entries
func NewJar(entries []Entry) *Jar {
	j := &Jar{
		entries: make(map[string]Entry, len(entries)),
		changed: make(map[string]struct{}),
	}
	for _, e := range entries {
		if _, ok := j.entries[e.Name]; !ok {
			j.order = append(j.order, e.Name)
		}
		j.entries[e.Name] = e
	}
	return j
}

// NewReadOnlyJar creates a jar whose Sink drops writes without error
func NewReadOnlyJar(entries []Entry) *Jar {
	j := NewJar(entries)
	j.readOnly = true
	return j
}

// Source returns a Source over the jar's current entries
func (j *Jar) Source() Source {
	return func() []Entry {
		j.mu.Lock()
		defer j.mu.Unlock()
		entries := make([]Entry, 0, len(j.order))
		for _, name := range j.order {
			entries = append(entries, j.entries[name])
		}
		return entries
	}
}

// Sink returns a Sink that mutates the jar in place
func (j *Jar) Sink() Sink {
	return func(entries []Entry) {
		j.mu.Lock()
		defer j.mu.Unlock()
		if j.readOnly {
			log.LogTraceWithFields("cookie", "Dropping writes on read-only jar", map[string]any{
				"count": len(entries),
			})
			return
		}
		for _, e := range entries {
			if _, ok := j.entries[e.Name]; !ok {
				j.order = append(j.order, e.Name)
			}
			j.entries[e.Name] = e
			j.changed[e.Name] = struct{}{}
		}
	}
}

// Changed returns the entries written through the Sink since construction,
// in write order. These are the entries a handler must mirror onto its
// response before finalizing it.
func (j *Jar) Changed() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	entries := make([]Entry, 0, len(j.changed))
	for _, name := range j.order {
		if _, ok := j.changed[name]; ok {
			entries = append(entries, j.entries[name])
		}
	}
	return entries
}
