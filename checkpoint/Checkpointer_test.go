package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	G "gorgonia.org/gorgonia"

	"github.com/curio-rl/curio/network"
)

func newTestNet(t *testing.T, init G.InitWFn) network.NeuralNet {
	t.Helper()

	net, err := network.NewSingleHeadMLP(2, 1, G.NewGraph(), []int{3},
		[]bool{true}, init, []*network.Activation{network.TanH()})
	if err != nil {
		t.Fatalf("could not create network: %v", err)
	}
	return net
}

func TestCheckpointRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()

	net := newTestNet(t, G.GlorotU(1.0))
	serializable, ok := net.(Serializable)
	if !ok {
		t.Fatal("network should be serializable")
	}

	checkpointer := NewNIteration(2, serializable,
		FilenameEnumerator(0, filepath.Join(dir, "actor"), ".bin"))

	// Off-interval iterations write nothing
	if err := checkpointer.Checkpoint(1); err != nil {
		t.Fatalf("could not checkpoint: %v", err)
	}
	filename := filepath.Join(dir, "actor1.bin")
	if _, err := os.Stat(filename); !os.IsNotExist(err) {
		t.Fatal("off-interval iteration should not write a checkpoint")
	}

	if err := checkpointer.Checkpoint(2); err != nil {
		t.Fatalf("could not checkpoint: %v", err)
	}

	// Restore into a network with different weights
	restored := newTestNet(t, G.Zeroes())
	if err := Restore(filename, restored.(Serializable)); err != nil {
		t.Fatalf("could not restore: %v", err)
	}

	wantNodes := net.Learnables()
	haveNodes := restored.Learnables()
	if len(haveNodes) != len(wantNodes) {
		t.Fatalf("learnables want(%v) have(%v)", len(wantNodes),
			len(haveNodes))
	}
	for i := range wantNodes {
		want := wantNodes[i].Value().Data().([]float64)
		have := haveNodes[i].Value().Data().([]float64)
		if len(have) != len(want) {
			t.Fatalf("learnable %v: length want(%v) have(%v)", i,
				len(want), len(have))
		}
		for j := range want {
			if have[j] != want[j] {
				t.Errorf("learnable %v weight %v: want(%v) have(%v)", i, j,
					want[j], have[j])
			}
		}
	}
}

func TestRestoreMissingFile(t *testing.T) {
	net := newTestNet(t, G.GlorotU(1.0))

	err := Restore(filepath.Join(t.TempDir(), "missing.bin"),
		net.(Serializable))
	if err == nil {
		t.Error("restoring a missing file should be an error")
	}
}
