// Package config loads the YAML service configuration: the HTTP listener,
// pipeline lifetime, named model definitions (local or remote), the
// resampler graph and logging.
package config
