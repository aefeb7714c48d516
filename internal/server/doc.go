// Package server exposes the pipelines over HTTP. POST /process/{name}
// takes a WAV body and answers with the processed WAV; the remaining
// endpoints report health, pipeline state, the sanitized configuration and
// Prometheus metrics. EchoHandler is a stub remote inference endpoint used
// for local testing of the remote backend.
package server
