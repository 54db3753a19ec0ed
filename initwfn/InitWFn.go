// Package initwfn wraps the weight initialization schemes that the
// trainer's networks are built with, keeping them JSON serializable
// so that experiment configurations can name an initializer and its
// parameters in one place.
package initwfn

import (
	"encoding/json"
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type names a weight initialization scheme
type Type string

// Available initialization schemes
const (
	GlorotU Type = "GlorotU"
)

// Config describes a weight initialization scheme and creates the
// Gorgonia InitWFn it describes.
type Config interface {
	Create() G.InitWFn
	Type() Type
}

// InitWFn pairs a Config with the Gorgonia InitWFn created from it.
// The wrapper, unlike a bare G.InitWFn, can round-trip through JSON.
type InitWFn struct {
	initWFn G.InitWFn
	Type
	Config
}

// newInitWFn returns a new InitWFn described by a Config
func newInitWFn(c Config) (*InitWFn, error) {
	init := InitWFn{Type: c.Type(), Config: c}
	init.initWFn = init.Config.Create()

	return &init, nil
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (w *InitWFn) InitWFn() G.InitWFn {
	return w.initWFn
}

// String implements the fmt.Stringer interface
func (w *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %v}", w.Type, w.Config)
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (w *InitWFn) UnmarshalJSON(data []byte) error {
	var wrapper struct {
		Type   Type
		Config json.RawMessage
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return err
	}

	switch wrapper.Type {
	case GlorotU:
		var config GlorotUConfig
		if err := json.Unmarshal(wrapper.Config, &config); err != nil {
			return err
		}
		w.Config = config

	default:
		return fmt.Errorf("unmarshaljson: no such initialization "+
			"scheme \n\thave(%v)", wrapper.Type)
	}

	w.Type = wrapper.Type
	w.initWFn = w.Config.Create()

	return nil
}

// GlorotUConfig describes Glorot uniform initialization with the
// argument gain.
type GlorotUConfig struct {
	Gain float64
}

// NewGlorotU returns a new Glorot uniform weight initializer
func NewGlorotU(gain float64) (*InitWFn, error) {
	return newInitWFn(GlorotUConfig{Gain: gain})
}

// Type returns the initialization scheme the Config describes
func (g GlorotUConfig) Type() Type {
	return GlorotU
}

// Create returns the described initialization scheme as a Gorgonia
// InitWFn
func (g GlorotUConfig) Create() G.InitWFn {
	return G.GlorotU(g.Gain)
}
