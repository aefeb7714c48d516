package inference

import "errors"

var (
	// ErrConfiguration reports missing or malformed model parameters
	ErrConfiguration = errors.New("inference: invalid configuration")

	// ErrModelLoad reports a model file that could not be loaded
	ErrModelLoad = errors.New("inference: model load failed")

	// ErrInference reports a failed forward pass
	ErrInference = errors.New("inference: forward pass failed")

	// ErrNotReady is returned when a handle is used before a successful load
	ErrNotReady = errors.New("inference: model not loaded")
)
