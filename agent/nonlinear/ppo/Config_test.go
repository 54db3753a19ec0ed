package ppo

import "testing"

func TestConfigFromMapDefaults(t *testing.T) {
	c, err := ConfigFromMap(nil)
	if err != nil {
		t.Fatalf("could not create config: %v", err)
	}

	want := DefaultConfig()
	if c != want {
		t.Errorf("empty map should produce the default config "+
			"\n\twant(%+v) \n\thave(%+v)", want, c)
	}
}

func TestConfigFromMapOverrides(t *testing.T) {
	c, err := ConfigFromMap(map[string]interface{}{
		"timesteps_per_batch": 10,
		"learning_rate":       1e-3,
		"exploration_factor":  0,
		"render":              false,
		"seed":                13,
	})
	if err != nil {
		t.Fatalf("could not create config: %v", err)
	}

	if c.TimestepsPerBatch != 10 {
		t.Errorf("timesteps per batch want(10) have(%v)",
			c.TimestepsPerBatch)
	}
	if c.StepSize != 1e-3 {
		t.Errorf("step size want(0.001) have(%v)", c.StepSize)
	}
	if c.ExplorationFactor != 0 {
		t.Errorf("exploration factor want(0) have(%v)", c.ExplorationFactor)
	}
	if c.Render {
		t.Error("render should be overridden to false")
	}
	if c.Seed == nil || *c.Seed != 13 {
		t.Errorf("seed want(13) have(%v)", c.Seed)
	}

	// Unset options keep their defaults
	if c.Gamma != DefaultConfig().Gamma {
		t.Errorf("gamma want(%v) have(%v)", DefaultConfig().Gamma, c.Gamma)
	}
}

func TestConfigFromMapRejectsUnknownKeys(t *testing.T) {
	_, err := ConfigFromMap(map[string]interface{}{
		"learning_rte": 1e-3,
	})
	if err == nil {
		t.Error("unrecognized hyperparameter should be an error")
	}
}

func TestConfigFromMapRejectsNonIntegerSeed(t *testing.T) {
	_, err := ConfigFromMap(map[string]interface{}{
		"seed": 1.5,
	})
	if err == nil {
		t.Error("non-integer seed should be an error")
	}

	_, err = ConfigFromMap(map[string]interface{}{
		"seed": "13",
	})
	if err == nil {
		t.Error("string seed should be an error")
	}
}

func TestConfigValidate(t *testing.T) {
	c := DefaultConfig()
	c.Clip = 0
	if err := c.Validate(); err == nil {
		t.Error("zero clip radius should be an error")
	}

	c = DefaultConfig()
	c.Gamma = 1.5
	if err := c.Validate(); err == nil {
		t.Error("gamma above 1 should be an error")
	}

	c = DefaultConfig()
	c.TimestepsPerBatch = 0
	if err := c.Validate(); err == nil {
		t.Error("zero timesteps per batch should be an error")
	}

	c = DefaultConfig()
	c.Render = true
	c.RenderEveryI = 0
	if err := c.Validate(); err == nil {
		t.Error("zero render interval while rendering should be an error")
	}

	c = DefaultConfig()
	c.Render = false
	c.RenderEveryI = 0
	if err := c.Validate(); err != nil {
		t.Errorf("zero render interval without rendering should be "+
			"valid: %v", err)
	}
}
