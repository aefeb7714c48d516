// Package pipeline manages named processing pipelines built from the model
// definitions in the configuration. Pipelines are loaded on first use (or at
// startup when preloading), each one serializes its own calls, and pipelines
// left idle longer than the configured timeout are closed by a background
// cleanup routine.
package pipeline
