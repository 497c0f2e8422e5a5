package model

import (
	"genegraph/layer"
	"genegraph/tensor"
)

// Entry is one serialized parameter: its shape and flat values.
type Entry struct {
	Shape []int
	Data  []float64
}

// Snapshot maps parameter names to serialized values. Snapshots can be
// partially reloaded: Restore ignores unknown keys and skips entries whose
// shape no longer matches (sparse-vs-dense representation drift), so a best-
// effort restore never fails the whole load.
type Snapshot map[string]Entry

func snapshotParams(params []*layer.Param) Snapshot {
	s := make(Snapshot, len(params))
	for _, p := range params {
		data := make([]float64, p.Value.Len())
		copy(data, p.Value.Data())
		s[p.Name] = Entry{Shape: p.Value.Shape(), Data: data}
	}

	return s
}

func restoreParams(params []*layer.Param, s Snapshot) {
	for _, p := range params {
		e, ok := s[p.Name]
		if !ok {
			continue
		}
		if !shapeMatches(e, p.Value) {
			continue // shape drift, skip this parameter
		}
		copy(p.Value.Data(), e.Data)
	}
}

func shapeMatches(e Entry, t *tensor.Tensor) bool {
	shape := t.Shape()
	if len(e.Shape) != len(shape) || len(e.Data) != t.Len() {
		return false
	}
	for i := range shape {
		if e.Shape[i] != shape[i] {
			return false
		}
	}

	return true
}

func l1Penalty(lambda float64, params []*layer.Param) float64 {
	if lambda == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range params {
		for _, v := range p.Value.Data() {
			if v < 0 {
				sum -= v
			} else {
				sum += v
			}
		}
	}

	return lambda * sum
}

func addL1Grad(lambda float64, params []*layer.Param) {
	if lambda == 0 {
		return
	}
	for _, p := range params {
		grad := p.Grad.Data()
		for i, v := range p.Value.Data() {
			switch {
			case v > 0:
				grad[i] += lambda
			case v < 0:
				grad[i] -= lambda
			}
		}
	}
}
