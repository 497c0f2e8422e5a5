package training

import "math"

// Schedule yields the learning rate for optimizer step t (1-based).
type Schedule interface {
	LearningRate(step int) float64
}

// constantSchedule always returns the base rate.
type constantSchedule float64

func (s constantSchedule) LearningRate(int) float64 { return float64(s) }

// cosineSchedule warms up linearly, decays along a half cosine to minLR, and
// stays there.
type cosineSchedule struct {
	baseLR      float64
	minLR       float64
	warmupSteps int
	decaySteps  int
}

func newCosineSchedule(baseLR, minLR float64, warmupSteps, decaySteps int) *cosineSchedule {
	return &cosineSchedule{baseLR: baseLR, minLR: minLR, warmupSteps: warmupSteps, decaySteps: decaySteps}
}

// LearningRate implements Schedule.
func (s *cosineSchedule) LearningRate(step int) float64 {
	if step < s.warmupSteps {
		return s.baseLR * float64(step) / float64(s.warmupSteps)
	}
	if step < s.decaySteps {
		progress := float64(step-s.warmupSteps) / float64(s.decaySteps-s.warmupSteps)

		return s.minLR + (s.baseLR-s.minLR)*0.5*(1+math.Cos(math.Pi*progress))
	}

	return s.minLR
}
