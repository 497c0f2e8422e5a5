package training

import "errors"

var (
	// ErrNilModel indicates a trainer built without a model.
	ErrNilModel = errors.New("training: model must not be nil")

	// ErrNilDataset indicates a run invoked without a training dataset.
	ErrNilDataset = errors.New("training: training dataset must not be nil")

	// ErrLogitsShape indicates logits that are not (batch, classes) or whose
	// batch disagrees with the label count.
	ErrLogitsShape = errors.New("training: logits must be (batch, classes) matching the labels")

	// ErrBadCheckpoint indicates an unreadable or malformed checkpoint file.
	ErrBadCheckpoint = errors.New("training: malformed checkpoint")
)
