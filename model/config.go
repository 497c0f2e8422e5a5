package model

import (
	"errors"
	"fmt"

	"genegraph/adjacency"
	"genegraph/layer"
	"genegraph/tensor"
)

// Sentinel errors for model construction and use.
var (
	// ErrUnknownModel indicates a model name outside the registry. Fatal
	// configuration error, raised at construction time.
	ErrUnknownModel = errors.New("model: unknown model name")

	// ErrBadConfig indicates an invalid Config field combination.
	ErrBadConfig = errors.New("model: invalid configuration")
)

// InferenceMode selects the forward pipeline of a GraphNetwork.
type InferenceMode int

const (
	// ModeSupervised ends in graph-level class logits.
	ModeSupervised InferenceMode = iota

	// ModeSemiSupervised ends in a per-node read-out (node-level outputs),
	// skipping gates and dropout.
	ModeSemiSupervised

	// ModeGeneInference mirrors ModeSupervised and additionally captures
	// per-layer input gradients during Backward.
	ModeGeneInference
)

// Activation is one layer's last input/output pair, exposed for logging and
// visualization. A debugging surface, not part of the numeric contract.
type Activation struct {
	Input  *tensor.Tensor
	Output *tensor.Tensor
}

// Gradients maps layer names to input gradients captured during a
// gene-inference backward pass. Empty in the other modes.
type Gradients map[string]*tensor.Tensor

// Model is the surface the training driver works against.
type Model interface {
	// Name returns the registry name the model was built under.
	Name() string

	// Forward maps a (batch, nodes, channels) sample tensor to logits.
	Forward(x *tensor.Tensor) (*tensor.Tensor, error)

	// Backward consumes the loss gradient w.r.t. the logits, accumulates
	// parameter gradients, and returns captured per-layer gradients (empty
	// outside gene-inference mode).
	Backward(grad *tensor.Tensor) (Gradients, error)

	// Params exposes all learnable parameters to the optimizer.
	Params() []*layer.Param

	// Regularization returns the model-specific structural penalty scaled
	// by regLambda; exactly 0 for all models except slr.
	Regularization(regLambda float64) float64

	// AddRegGrad accumulates the gradient of Regularization into the
	// affected parameters. A no-op wherever Regularization is 0.
	AddRegGrad(regLambda float64)

	// L1Penalty returns lambda times the L1 norm of the read-out (and,
	// where applicable, first-layer) parameters.
	L1Penalty(lambda float64) float64

	// AddL1Grad accumulates the L1 subgradient into the same parameters.
	AddL1Grad(lambda float64)

	// Representation maps layer names to their last input/output tensors.
	Representation() map[string]Activation

	// Snapshot captures all parameters by name; Restore loads a snapshot
	// best-effort (unknown keys ignored, shape mismatches skipped).
	Snapshot() Snapshot
	Restore(s Snapshot)

	// SetTraining toggles training-only behavior (dropout masks).
	SetTraining(training bool)
}

// Config carries everything needed to build a model.
type Config struct {
	// Adjacency is the raw gene-interaction graph. The graph models and slr
	// propagate through it; lr and mlp only take the node count from it.
	Adjacency *adjacency.Adjacency

	// InputDim is the raw per-node channel count (1 for expression signal).
	InputDim int

	// Channels lists the output width of every convolution (or hidden) layer.
	Channels []int

	// NumClasses is the read-out width.
	NumClasses int

	// Embedding, when positive, inserts a learned per-node embedding of
	// that width before the first convolution.
	Embedding int

	// UseGate, when positive, inserts an elementwise gate after every
	// convolution.
	UseGate float64

	// Dropout enables per-node dropout between blocks.
	Dropout bool

	// AttentionHeads, when positive, replaces the flatten before the
	// read-out with attention pooling over that many heads.
	AttentionHeads int

	// Adjacency transform knobs, applied once at construction.
	SelfLoops   bool
	Normalize   bool
	KeepPercent float64 // 0 means DefaultKeepPercent
	Pooling     adjacency.PoolMode

	// SGCDegree is the propagation power for sgc (0 means default).
	SGCDegree int

	// Mode selects the GraphNetwork forward pipeline.
	Mode InferenceMode

	// Seed drives weight initialization and dropout masks.
	Seed int64
}

// New builds a model from its registry name. Unknown names fail immediately
// with ErrUnknownModel.
func New(name string, cfg Config) (Model, error) {
	var (
		m   Model
		err error
	)
	switch name {
	case "gcn", "sgc", "lcg":
		m, err = newGraphNetwork(name, cfg)
	case "slr":
		m, err = newSparseLogistic(cfg)
	case "lr":
		m, err = newLogistic(cfg)
	case "mlp":
		m, err = newMLP(cfg)
	default:
		return nil, fmt.Errorf("model: %q: %w", name, ErrUnknownModel)
	}
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (c Config) validate(needGraph bool) error {
	if c.NumClasses <= 0 {
		return fmt.Errorf("model: %d classes: %w", c.NumClasses, ErrBadConfig)
	}
	if c.InputDim <= 0 {
		return fmt.Errorf("model: input dim %d: %w", c.InputDim, ErrBadConfig)
	}
	if needGraph && c.Adjacency == nil {
		return fmt.Errorf("model: missing adjacency: %w", ErrBadConfig)
	}

	return nil
}
