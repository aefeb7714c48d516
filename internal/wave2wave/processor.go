package wave2wave

import (
	"context"

	"github.com/TEAMuP-dev/HARP-sub001/internal/audio"
)

// Backend names
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// ModelHandle is a loadable inference unit
type ModelHandle interface {
	Ready() bool
	Close() error
}

// Processor transforms a buffer in place. The buffer may change shape.
type Processor interface {
	ModelHandle
	Process(ctx context.Context, buf *audio.Buffer, sampleRate int) error
}
