package checkpoint

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"DPSGDDev/pkg/network"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterSaveAndLoad(t *testing.T) {
	logger, _ := test.NewNullLogger()
	w, err := NewWriter(t.TempDir(), logger)
	require.NoError(t, err)

	nn, err := network.NewNeuronNetwork([]int{3, 4, 2}, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)

	require.NoError(t, w.Save(nn, 1, 40))
	require.NoError(t, w.Save(nn, 2, 30))

	for _, name := range []string{"model_epoch_1.gob", "model_epoch_2.gob", "model_last.gob", "model_best.gob"} {
		_, err := os.Stat(filepath.Join(w.Dir(), name))
		assert.NoError(t, err, name)
	}

	best, err := Load(filepath.Join(w.Dir(), "model_best.gob"))
	require.NoError(t, err)
	assert.Equal(t, 1, best.Epoch)
	assert.Equal(t, 40.0, best.Accuracy)
	assert.Equal(t, w.RunID(), best.RunID)
	assert.Equal(t, []int{3, 4, 2}, best.LayerSizes)

	last, err := Load(filepath.Join(w.Dir(), "model_last.gob"))
	require.NoError(t, err)
	assert.Equal(t, 2, last.Epoch)
	require.Len(t, last.Params, 4)
	assert.Equal(t, "layers.0.weight", last.Params[0].Name)
	assert.Equal(t, nn.Layers[0].Weights.RawMatrix().Data, last.Params[0].Data)
}

func TestSnapshotRestore(t *testing.T) {
	logger, _ := test.NewNullLogger()
	w, err := NewWriter(t.TempDir(), logger)
	require.NoError(t, err)

	src, err := network.NewNeuronNetwork([]int{2, 3}, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)
	require.NoError(t, w.Save(src, 1, 50))

	snap, err := Load(filepath.Join(w.Dir(), "model_last.gob"))
	require.NoError(t, err)

	dst, err := network.NewNeuronNetwork([]int{2, 3}, rand.New(rand.NewPCG(9, 9)))
	require.NoError(t, err)
	require.NoError(t, snap.Restore(dst))
	assert.Equal(t, src.Layers[0].Weights.RawMatrix().Data, dst.Layers[0].Weights.RawMatrix().Data)

	other, err := network.NewNeuronNetwork([]int{2, 4}, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)
	assert.Error(t, snap.Restore(other))
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.gob"))
	assert.Error(t, err)
}
