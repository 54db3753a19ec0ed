package network

import (
	G "gorgonia.org/gorgonia"
)

// NewSingleHeadMLP creates and returns a new multi-layered perceptron
// with a single output node, commonly used as a state value critic.
func NewSingleHeadMLP(features, batch int, g *G.ExprGraph, hiddenSizes []int,
	biases []bool, init G.InitWFn, activations []*Activation) (NeuralNet,
	error) {
	return NewMultiHeadMLP(features, batch, 1, g, hiddenSizes, biases, init,
		activations)
}
