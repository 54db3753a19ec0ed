package floatutils

import "testing"

func TestClip(t *testing.T) {
	tests := []struct {
		value, min, max, want float64
	}{
		{0.5, -1, 1, 0.5},
		{-3, -1, 1, -1},
		{2, -1, 1, 1},
		{1, -1, 1, 1},
	}

	for _, test := range tests {
		if have := Clip(test.value, test.min, test.max); have != test.want {
			t.Errorf("clip(%v, %v, %v) want(%v) have(%v)", test.value,
				test.min, test.max, test.want, have)
		}
	}
}

func TestOnes(t *testing.T) {
	ones := Ones(3)
	if len(ones) != 3 {
		t.Fatalf("length want(3) have(%v)", len(ones))
	}
	for i, one := range ones {
		if one != 1.0 {
			t.Errorf("index %v want(1) have(%v)", i, one)
		}
	}
}
