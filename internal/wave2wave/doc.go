// Package wave2wave transforms host audio buffers in place through a local
// inference graph or a remote inference service.
//
// Both variants implement Processor. A failed call always leaves the
// caller's buffer exactly as it was.
package wave2wave
