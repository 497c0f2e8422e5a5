package training

import (
	"fmt"
	"math"

	"genegraph/tensor"
)

// CrossEntropy computes the mean softmax cross-entropy of (batch, classes)
// logits against integer labels, together with its gradient
// (softmax − one-hot)/batch. The log-sum-exp is max-shifted so large logits
// never overflow.
func CrossEntropy(logits *tensor.Tensor, labels []int) (float64, *tensor.Tensor, error) {
	if logits == nil || logits.Rank() != 2 || logits.Dim(0) != len(labels) {
		return 0, nil, ErrLogitsShape
	}
	batch, classes := logits.Dim(0), logits.Dim(1)

	grad := tensor.New(batch, classes)
	total := 0.0
	for b := 0; b < batch; b++ {
		if labels[b] < 0 || labels[b] >= classes {
			return 0, nil, fmt.Errorf("training: label %d outside [0, %d): %w", labels[b], classes, ErrLogitsShape)
		}

		maxLogit := logits.At(b, 0)
		for k := 1; k < classes; k++ {
			if v := logits.At(b, k); v > maxLogit {
				maxLogit = v
			}
		}

		sumExp := 0.0
		for k := 0; k < classes; k++ {
			sumExp += math.Exp(logits.At(b, k) - maxLogit)
		}
		logSumExp := maxLogit + math.Log(sumExp)

		total += logSumExp - logits.At(b, labels[b])

		for k := 0; k < classes; k++ {
			p := math.Exp(logits.At(b, k) - logSumExp)
			if k == labels[b] {
				p--
			}
			grad.Set(p/float64(batch), b, k)
		}
	}

	return total / float64(batch), grad, nil
}

// Accuracy returns the fraction of argmax predictions matching the labels.
func Accuracy(logits *tensor.Tensor, labels []int) (float64, error) {
	if logits == nil || logits.Rank() != 2 || logits.Dim(0) != len(labels) {
		return 0, ErrLogitsShape
	}
	if len(labels) == 0 {
		return 0, nil
	}

	correct := 0
	for b := 0; b < logits.Dim(0); b++ {
		best := 0
		for k := 1; k < logits.Dim(1); k++ {
			if logits.At(b, k) > logits.At(b, best) {
				best = k
			}
		}
		if best == labels[b] {
			correct++
		}
	}

	return float64(correct) / float64(len(labels)), nil
}
