package initwfn

import (
	"encoding/json"
	"testing"
)

func TestGlorotUJSONRoundTrip(t *testing.T) {
	init, err := NewGlorotU(1.5)
	if err != nil {
		t.Fatalf("could not create initializer: %v", err)
	}

	data, err := json.Marshal(init)
	if err != nil {
		t.Fatalf("could not marshal initializer: %v", err)
	}

	decoded := new(InitWFn)
	if err := json.Unmarshal(data, decoded); err != nil {
		t.Fatalf("could not unmarshal initializer: %v", err)
	}

	if decoded.Type != GlorotU {
		t.Errorf("type want(%v) have(%v)", GlorotU, decoded.Type)
	}
	config, ok := decoded.Config.(GlorotUConfig)
	if !ok {
		t.Fatalf("config want(GlorotUConfig) have(%T)", decoded.Config)
	}
	if config.Gain != 1.5 {
		t.Errorf("gain want(1.5) have(%v)", config.Gain)
	}
	if decoded.InitWFn() == nil {
		t.Error("decoded initializer should create an InitWFn")
	}
}

func TestUnmarshalRejectsUnknownScheme(t *testing.T) {
	data := []byte(`{"Type": "Orthogonal", "Config": {"Gain": 1}}`)

	if err := json.Unmarshal(data, new(InitWFn)); err == nil {
		t.Error("unknown initialization scheme should be an error")
	}
}
