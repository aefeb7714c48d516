package wave2wave

import (
	"context"

	"github.com/TEAMuP-dev/HARP-sub001/internal/audio"
	"github.com/TEAMuP-dev/HARP-sub001/internal/remote"
)

// Remote runs buffers through a remote inference service
type Remote struct {
	backend *remote.Backend
}

// NewRemote wraps a remote backend
func NewRemote(backend *remote.Backend) *Remote {
	return &Remote{backend: backend}
}

// Backend returns the wrapped remote backend
func (r *Remote) Backend() *remote.Backend {
	return r.backend
}

// Ready reports whether an endpoint is configured
func (r *Remote) Ready() bool {
	return r.backend.Ready()
}

// Close releases the backend
func (r *Remote) Close() error {
	return r.backend.Close()
}

// Process transforms buf in place through the service
func (r *Remote) Process(ctx context.Context, buf *audio.Buffer, sampleRate int) error {
	return r.backend.Process(ctx, buf, sampleRate)
}
