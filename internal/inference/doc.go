// Package inference runs local inference graphs.
//
// A Backend owns at most one loaded Graph and serializes every load and
// forward pass on it. Graphs come from a Loader: model files are executed
// with ONNX Runtime, and names of the form "builtin:<name>" resolve to graphs
// registered in process with RegisterGraph.
//
// The package also provides the Resampler, which converts waveforms between
// sample rates through a loaded resampling graph and falls back to the input
// when that fails.
package inference
