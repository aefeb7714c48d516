// Package metrics defines the Prometheus instrumentation of the service.
package metrics
