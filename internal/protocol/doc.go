// Package protocol defines the JSON wire format spoken with remote inference
// services. A request carries the input audio as a base64-encoded WAV file;
// the response body is the processed WAV file itself.
package protocol
