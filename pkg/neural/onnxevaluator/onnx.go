// Package onnxevaluator implements neural.Evaluator by running a
// combined policy+value model in-process via ONNX Runtime, avoiding the
// network hop grpcevaluator pays for every batch.
package onnxevaluator

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/samuelbarrett1234/40KLearn/pkg/game"
	"github.com/samuelbarrett1234/40KLearn/pkg/neural"
)

// initOnce guards ort.InitializeEnvironment: the ONNX Runtime
// environment is process-wide, so only the first Evaluator created
// pays its setup cost.
var initOnce sync.Once
var initErr error

// Evaluator wraps a single ONNX Runtime session. It is not safe for
// concurrent use: callers that batch work across goroutines should
// serialize calls to EvaluateBatch, or hold one Evaluator per worker.
type Evaluator struct {
	session    *ort.DynamicSession[float32, float32]
	inputSize  int
	policySize int
}

// New points ONNX Runtime at sharedLibraryPath (the platform-specific
// onnxruntime shared library; leave empty to use the runtime's
// compiled-in default search path), initializes the environment if
// necessary, and loads modelPath. inputSize must equal
// len(neural.FeatureVector(s)) for every state this Evaluator will see;
// policySize is the model's fixed policy output width, which
// EvaluateBatch trims down to each state's actual action count.
func New(sharedLibraryPath, modelPath, inputName, valueOutputName, policyOutputName string, inputSize, policySize int) (*Evaluator, error) {
	if sharedLibraryPath != "" {
		ort.SetSharedLibraryPath(sharedLibraryPath)
	}
	initOnce.Do(func() {
		initErr = ort.InitializeEnvironment()
	})
	if initErr != nil {
		return nil, fmt.Errorf("onnxevaluator: initialize environment: %w", initErr)
	}

	session, err := ort.NewDynamicSession[float32, float32](
		modelPath,
		[]string{inputName},
		[]string{valueOutputName, policyOutputName},
	)
	if err != nil {
		return nil, fmt.Errorf("onnxevaluator: load %s: %w", modelPath, err)
	}

	return &Evaluator{
		session:    session,
		inputSize:  inputSize,
		policySize: policySize,
	}, nil
}

var _ neural.Evaluator = (*Evaluator)(nil)

// Close releases the underlying session. It does not tear down the
// process-wide ONNX Runtime environment, since other Evaluators may
// share it.
func (e *Evaluator) Close() error {
	return e.session.Destroy()
}

// EvaluateBatch implements neural.Evaluator.
func (e *Evaluator) EvaluateBatch(states []game.GameState) ([]float64, [][]float64, error) {
	if len(states) == 0 {
		return nil, nil, nil
	}
	batchSize := len(states)

	flat := make([]float32, 0, batchSize*e.inputSize)
	cmdCounts := make([]int, batchSize)
	for i, s := range states {
		vec := neural.FeatureVector(s)
		if len(vec) != e.inputSize {
			return nil, nil, fmt.Errorf("onnxevaluator: expected %d input features, got %d", e.inputSize, len(vec))
		}
		for _, v := range vec {
			flat = append(flat, float32(v))
		}

		cmds, err := s.Commands()
		if err != nil {
			return nil, nil, fmt.Errorf("onnxevaluator: %w", err)
		}
		cmdCounts[i] = len(cmds)
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(int64(batchSize), int64(e.inputSize)), flat)
	if err != nil {
		return nil, nil, fmt.Errorf("onnxevaluator: input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	valueTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(batchSize), 1))
	if err != nil {
		return nil, nil, fmt.Errorf("onnxevaluator: value tensor: %w", err)
	}
	defer valueTensor.Destroy()

	policyTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(batchSize), int64(e.policySize)))
	if err != nil {
		return nil, nil, fmt.Errorf("onnxevaluator: policy tensor: %w", err)
	}
	defer policyTensor.Destroy()

	inputs := []*ort.Tensor[float32]{inputTensor}
	outputs := []*ort.Tensor[float32]{valueTensor, policyTensor}
	if err := e.session.Run(inputs, outputs); err != nil {
		return nil, nil, fmt.Errorf("onnxevaluator: run: %w", err)
	}

	valueData := valueTensor.GetData()
	policyData := policyTensor.GetData()

	values := make([]float64, batchSize)
	priors := make([][]float64, batchSize)
	for i := 0; i < batchSize; i++ {
		values[i] = float64(valueData[i])

		row := policyData[i*e.policySize : (i+1)*e.policySize]
		prior := make([]float64, cmdCounts[i])
		var total float64
		for j := range prior {
			if j < len(row) {
				prior[j] = float64(row[j])
			}
			total += prior[j]
		}
		if total > 0 {
			for j := range prior {
				prior[j] /= total
			}
		} else if len(prior) > 0 {
			share := 1.0 / float64(len(prior))
			for j := range prior {
				prior[j] = share
			}
		}
		priors[i] = prior
	}
	return values, priors, nil
}
