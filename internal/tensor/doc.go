// Package tensor provides a dense float32 tensor and the conversion between
// host audio buffers and model tensors.
//
// A buffer with C channels and N samples maps to a tensor of shape (C, N)
// holding the same values in row-major order. The conversion always copies;
// tensors never alias buffer storage.
package tensor
