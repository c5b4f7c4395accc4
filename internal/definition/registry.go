package definition

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/pitabwire/designer/model"
)

// snapshot is an immutable collection of named layouts.
type snapshot struct {
	layouts  map[string]model.LayoutDefinition
	names    []string
	checksum string
}

// Registry is a read-optimized, thread-safe store of all loaded layouts.
// It uses atomic pointer swap for lock-free concurrent reads.
type Registry struct {
	snap atomic.Pointer[snapshot]
}

// NewRegistry creates a Registry from the given layouts.
func NewRegistry(defs []model.LayoutDefinition) *Registry {
	r := &Registry{}
	r.Replace(defs)
	return r
}

// Replace atomically swaps the registry contents with a new snapshot built
// from the given layouts. A later layout with the same name wins.
func (r *Registry) Replace(defs []model.LayoutDefinition) {
	s := &snapshot{
		layouts: make(map[string]model.LayoutDefinition, len(defs)),
	}

	for _, def := range defs {
		s.layouts[def.Name] = def
	}

	checksumParts := make([]string, 0, len(s.layouts))
	for name, def := range s.layouts {
		s.names = append(s.names, name)
		checksumParts = append(checksumParts, def.Checksum)
	}
	sort.Strings(s.names)
	sort.Strings(checksumParts)
	combined := strings.Join(checksumParts, ":")
	s.checksum = fmt.Sprintf("%x", sha256.Sum256([]byte(combined)))

	r.snap.Store(s)
}

func (r *Registry) current() *snapshot {
	return r.snap.Load()
}

// Get returns the named layout. The returned configuration is a private
// copy the caller may mutate.
func (r *Registry) Get(name string) (model.LayoutDefinition, bool) {
	d, ok := r.current().layouts[name]
	if !ok {
		return model.LayoutDefinition{}, false
	}
	d.Config = d.Config.Clone()
	return d, true
}

// Names returns the sorted layout names.
func (r *Registry) Names() []string {
	return append([]string(nil), r.current().names...)
}

// Summaries returns the listing view of every layout, sorted by name.
func (r *Registry) Summaries() []model.LayoutSummary {
	s := r.current()
	out := make([]model.LayoutSummary, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, s.layouts[name].Summary())
	}
	return out
}

// Len returns the number of registered layouts.
func (r *Registry) Len() int {
	return len(r.current().layouts)
}

// Checksum returns the combined checksum of all loaded layouts.
func (r *Registry) Checksum() string {
	return r.current().checksum
}
