package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Elementwise nonlinearities, dispatched by name so that Activations
// compare equal and survive gob encoding
var activationOps = map[string]func(*G.Node) (*G.Node, error){
	"relu": G.Rectify,
	"tanh": G.Tanh,
	"identity": func(x *G.Node) (*G.Node, error) {
		return x, nil
	},
}

// Activation applies a named elementwise nonlinearity to a layer's
// pre-activations
type Activation struct {
	name string
}

// ReLU returns a rectified linear *Activation
func ReLU() *Activation {
	return &Activation{name: "relu"}
}

// TanH returns a hyperbolic tangent *Activation
func TanH() *Activation {
	return &Activation{name: "tanh"}
}

// Identity returns an identity *Activation
func Identity() *Activation {
	return &Activation{name: "identity"}
}

// fwd applies the Activation to x on x's graph
func (a *Activation) fwd(x *G.Node) (*G.Node, error) {
	op, ok := activationOps[a.name]
	if !ok {
		return nil, fmt.Errorf("fwd: no such activation \n\thave(%v)",
			a.name)
	}
	return op(x)
}

// IsIdentity returns whether the Activation leaves its input
// unchanged
func (a *Activation) IsIdentity() bool {
	return a.name == "identity"
}

// String implements the fmt.Stringer interface
func (a *Activation) String() string {
	return a.name
}

// GobEncode implements the gob.GobEncoder interface
func (a *Activation) GobEncode() ([]byte, error) {
	return []byte(a.name), nil
}

// GobDecode implements the gob.GobDecoder interface
func (a *Activation) GobDecode(encoded []byte) error {
	name := string(encoded)
	if _, ok := activationOps[name]; !ok {
		return fmt.Errorf("gobdecode: no such activation \n\thave(%v)",
			name)
	}
	a.name = name
	return nil
}
