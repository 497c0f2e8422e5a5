package training

import (
	"encoding/gob"
	"fmt"
	"os"

	"genegraph/model"
)

// Checkpoint is what a run persists: the best snapshot plus enough metadata
// to identify it.
type Checkpoint struct {
	RunID     string
	ModelName string
	BestEpoch int
	Params    model.Snapshot
}

// SaveCheckpoint writes cp to path, replacing any existing file.
func SaveCheckpoint(path string, cp Checkpoint) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("training: create checkpoint: %w", err)
	}
	if err = gob.NewEncoder(f).Encode(cp); err != nil {
		f.Close()

		return fmt.Errorf("training: encode checkpoint: %w", err)
	}

	return f.Close()
}

// LoadCheckpoint reads a checkpoint written by SaveCheckpoint. Restoring its
// Params into a differently shaped model is safe: mismatched parameters are
// skipped.
func LoadCheckpoint(path string) (Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("training: open checkpoint: %w", err)
	}
	defer f.Close()

	var cp Checkpoint
	if err = gob.NewDecoder(f).Decode(&cp); err != nil {
		return Checkpoint{}, fmt.Errorf("training: %v: %w", err, ErrBadCheckpoint)
	}

	return cp, nil
}
