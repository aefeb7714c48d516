package inference

import (
	"context"
	"fmt"
	"strings"
)

// BuiltinPrefix marks model paths that name a registered graph
const BuiltinPrefix = "builtin:"

// Graph is a loaded inference graph
type Graph interface {
	// Run executes the graph and returns its first output
	Run(ctx context.Context, inputs []Value) (Value, error)

	// Close releases the graph's resources
	Close() error
}

// Loader deserializes graphs
type Loader interface {
	Load(cfg LocalConfig) (Graph, error)
}

// LoaderFunc adapts a function to the Loader interface
type LoaderFunc func(cfg LocalConfig) (Graph, error)

// Load calls f(cfg)
func (f LoaderFunc) Load(cfg LocalConfig) (Graph, error) {
	return f(cfg)
}

// DefaultLoader resolves "builtin:<name>" from the graph registry and hands
// every other path to ONNX Runtime.
var DefaultLoader Loader = LoaderFunc(func(cfg LocalConfig) (Graph, error) {
	if name, ok := strings.CutPrefix(cfg.ModelPath, BuiltinPrefix); ok {
		return newBuiltinGraph(name)
	}
	return loadONNX(cfg)
})

func newBuiltinGraph(name string) (Graph, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("graph %q is not registered", name)
	}
	return factory(), nil
}
