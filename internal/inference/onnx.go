package inference

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/TEAMuP-dev/HARP-sub001/internal/tensor"
)

var (
	ortMu sync.Mutex

	// runtime hooks, replaced in tests
	ortIsInitialized  = ort.IsInitialized
	ortSetLibraryPath = ort.SetSharedLibraryPath
	ortInitialize     = func() error { return ort.InitializeEnvironment() }
)

// initRuntime initializes the process-wide ONNX Runtime environment. A failed
// attempt is retried on the next call, so a bad library path can be corrected
// without restarting. Once initialized, later library paths are ignored.
func initRuntime(libraryPath string) error {
	ortMu.Lock()
	defer ortMu.Unlock()

	if ortIsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ortSetLibraryPath(libraryPath)
	}
	return ortInitialize()
}

// onnxGraph runs a model file through an ONNX Runtime session
type onnxGraph struct {
	session     *ort.DynamicAdvancedSession
	inputNames  []string
	outputNames []string
}

func loadONNX(cfg LocalConfig) (Graph, error) {
	if err := initRuntime(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model %s: %w", cfg.ModelPath, err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model %s has %d inputs and %d outputs", cfg.ModelPath, len(inputs), len(outputs))
	}

	g := &onnxGraph{
		inputNames:  make([]string, len(inputs)),
		outputNames: make([]string, len(outputs)),
	}
	for i, info := range inputs {
		g.inputNames[i] = info.Name
	}
	for i, info := range outputs {
		g.outputNames[i] = info.Name
	}

	g.session, err = ort.NewDynamicAdvancedSession(cfg.ModelPath, g.inputNames, g.outputNames, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create session for %s: %w", cfg.ModelPath, err)
	}
	return g, nil
}

func (g *onnxGraph) Run(_ context.Context, inputs []Value) (Value, error) {
	if len(inputs) != len(g.inputNames) {
		return Value{}, fmt.Errorf("model expects %d inputs %v, got %d", len(g.inputNames), g.inputNames, len(inputs))
	}

	ortInputs := make([]ort.Value, 0, len(inputs))
	defer func() {
		for _, v := range ortInputs {
			v.Destroy()
		}
	}()

	for i, in := range inputs {
		v, err := toORT(in)
		if err != nil {
			return Value{}, fmt.Errorf("input %q: %w", g.inputNames[i], err)
		}
		ortInputs = append(ortInputs, v)
	}

	// nil outputs are allocated by the runtime
	ortOutputs := make([]ort.Value, len(g.outputNames))
	defer func() {
		for _, v := range ortOutputs {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	if err := g.session.Run(ortInputs, ortOutputs); err != nil {
		return Value{}, err
	}
	return fromORT(ortOutputs[0])
}

func (g *onnxGraph) Close() error {
	if g.session == nil {
		return nil
	}
	err := g.session.Destroy()
	g.session = nil
	return err
}

func toORT(v Value) (ort.Value, error) {
	if !v.IsTensor() {
		s, _ := v.Scalar()
		scalar, err := ort.NewScalar(s)
		if err != nil {
			return nil, err
		}
		return scalar, nil
	}

	t, _ := v.Tensor()
	shape := make([]int64, t.Dims())
	for i := range shape {
		shape[i] = int64(t.Size(i))
	}
	data := make([]float32, t.Len())
	copy(data, t.Data())
	out, err := ort.NewTensor(ort.NewShape(shape...), data)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func fromORT(v ort.Value) (Value, error) {
	switch out := v.(type) {
	case *ort.Tensor[float32]:
		shape := out.GetShape()
		dims := make([]int, len(shape))
		for i, d := range shape {
			dims[i] = int(d)
		}
		t, err := tensor.FromData(out.GetData(), dims...)
		if err != nil {
			return Value{}, err
		}
		return TensorValue(t), nil
	case *ort.Scalar[float32]:
		return ScalarValue(out.GetData()), nil
	default:
		return Value{}, fmt.Errorf("unsupported output type %T (only float32 is supported)", v)
	}
}
