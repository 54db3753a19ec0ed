// Package network implements Gorgonia neural networks used as function
// approximators
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet implements a neural network on a Gorgonia expression
// graph. A NeuralNet holds its input node and the nodes of its
// predictions, and exposes its learnable weights for optimizer
// attachment.
type NeuralNet interface {
	Graph() *G.ExprGraph

	// Clone clones the NeuralNet to a new graph with the same weight
	// values. CloneWithBatch additionally changes the input batch size.
	Clone() (NeuralNet, error)
	CloneWithBatch(int) (NeuralNet, error)

	BatchSize() int
	Features() int
	Outputs() int

	// SetInput sets the value of the network's input node before a VM
	// runs the forward pass
	SetInput([]float64) error

	// Set sets the weights of the NeuralNet to be equal to those of
	// another NeuralNet
	Set(NeuralNet) error

	Learnables() G.Nodes
	Model() []G.ValueGrad

	// Prediction returns the nodes storing the network's predictions,
	// and Output returns the values of those nodes after a VM has run
	Prediction() []*G.Node
	Output() []G.Value
}

// Set sets the weights of a NeuralNet dest to those of a NeuralNet src
func Set(dest, src NeuralNet) error {
	return dest.Set(src)
}
