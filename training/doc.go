// Package training drives model optimization: minibatch epochs with Adam,
// a numerically stable cross-entropy loss, optional warmup+cosine learning
// rate scheduling, and best-epoch snapshot tracking.
//
// The loss a step minimizes is
//
//	cross-entropy + model.Regularization(regLambda) + model.L1Penalty(l1Lambda)
//
// with the penalty gradients accumulated through the model's AddRegGrad and
// AddL1Grad hooks after the data backward pass.
//
// Determinism
//
// Batch shuffling draws from the trainer's seeded source and dropout from
// the model's, so a fixed pair of seeds reproduces a run exactly.
package training
