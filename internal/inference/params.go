package inference

import "fmt"

// Parameter keys understood by the backends
const (
	ParamModelPath   = "modelPath"
	ParamLibraryPath = "libraryPath"
	ParamURL         = "url"
	ParamAPIName     = "apiName"
)

// Params is a loosely typed parameter map as supplied by a host.
// Backends parse it once into a typed config.
type Params map[string]any

// String returns the string value stored under key.
// Missing keys, non-string values and empty strings are configuration errors.
func (p Params) String(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("%w: missing parameter %q", ErrConfiguration, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: parameter %q must be a string, got %T", ErrConfiguration, key, v)
	}
	if s == "" {
		return "", fmt.Errorf("%w: parameter %q is empty", ErrConfiguration, key)
	}
	return s, nil
}

// OptionalString is like String but returns "" for a missing key
func (p Params) OptionalString(key string) (string, error) {
	if _, ok := p[key]; !ok {
		return "", nil
	}
	return p.String(key)
}

// LocalConfig configures a local inference backend
type LocalConfig struct {
	// ModelPath is a model file or a "builtin:<name>" graph
	ModelPath string

	// LibraryPath optionally points at the ONNX Runtime shared library
	LibraryPath string
}

// Validate checks the config
func (c LocalConfig) Validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("%w: model path is required", ErrConfiguration)
	}
	return nil
}

// ParseLocalParams reads a LocalConfig from host parameters
func ParseLocalParams(p Params) (LocalConfig, error) {
	modelPath, err := p.String(ParamModelPath)
	if err != nil {
		return LocalConfig{}, err
	}
	libraryPath, err := p.OptionalString(ParamLibraryPath)
	if err != nil {
		return LocalConfig{}, err
	}
	return LocalConfig{ModelPath: modelPath, LibraryPath: libraryPath}, nil
}
