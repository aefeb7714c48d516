package inference

import (
	"slices"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Built-in graph names
const (
	GraphIdentity = "identity"
	GraphResample = "resample"
)

// GraphFactory creates a fresh instance of a registered graph
type GraphFactory func() Graph

var (
	registryMu sync.RWMutex
	registry   = make(map[string]GraphFactory)
)

func init() {
	RegisterGraph(GraphIdentity, func() Graph { return identityGraph{} })
	RegisterGraph(GraphResample, func() Graph { return &resampleGraph{quality: resampling.QualityHigh} })
}

// RegisterGraph makes a graph loadable as "builtin:<name>".
// Registering an existing name replaces it.
func RegisterGraph(name string, factory GraphFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// ListGraphs returns the registered graph names in sorted order
func ListGraphs() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
