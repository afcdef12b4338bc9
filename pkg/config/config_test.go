package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
batch_size: 20
num_microbatches: 4
lr: 0.1
momentum: 0.9
decay: 0.0005
epochs: 5
S: 1.0
z: 1.5
dp: true
mu: 0.5
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(baseYAML))
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.BatchSize)
	assert.Equal(t, 4, cfg.NumMicrobatches)
	assert.True(t, cfg.DP)
	assert.InDelta(t, 1.5, cfg.Sigma(), 1e-12)
	assert.Equal(t, uint64(5), cfg.Seed)
	assert.Equal(t, DatasetSynthetic, cfg.Dataset)
	assert.Equal(t, 20, cfg.LogEvery)
	assert.Equal(t, []int{64, 64}, cfg.HiddenSizes)
	assert.Equal(t, "DP: true, S: 1, z: 1.5, BS: 20, Mom: 0.9, LR: 0.1, DEC:0.0005, MB: 4, mu: 0.5.", cfg.WindowName())
}

func TestParseRejectsMissingKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("batch_size: 20\nlr: 0.1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "num_microbatches")
	assert.Contains(t, err.Error(), "mu")
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader(baseYAML + "bogus: 1\n"))
	assert.Error(t, err)
}

func TestValidateRejectsIndivisibleMicrobatches(t *testing.T) {
	_, err := Parse(strings.NewReader(strings.Replace(baseYAML, "num_microbatches: 4", "num_microbatches: 3", 1)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not divisible")

	// 非DP运行不使用微批次
	nonDP := strings.Replace(baseYAML, "num_microbatches: 4", "num_microbatches: 3", 1)
	nonDP = strings.Replace(nonDP, "dp: true", "dp: false", 1)
	_, err = Parse(strings.NewReader(nonDP))
	assert.NoError(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"zero clip":      {"S: 1.0", "S: 0"},
		"negative noise": {"z: 1.5", "z: -1"},
		"negative mu":    {"mu: 0.5", "mu: -0.5"},
		"zero epochs":    {"epochs: 5", "epochs: 0"},
		"zero lr":        {"lr: 0.1", "lr: 0"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(strings.Replace(baseYAML, c[0], c[1], 1)))
			assert.Error(t, err)
		})
	}

	_, err := Parse(strings.NewReader(baseYAML + "dataset: mnist\n"))
	assert.Error(t, err, "mnist requires data_dir")
	_, err = Parse(strings.NewReader(baseYAML + "dataset: imagenet\n"))
	assert.Error(t, err)
}

func TestLoadAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte(baseYAML), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	seed := uint64(42)
	cfg.ApplyOverrides(Overrides{Epochs: 9, Seed: &seed, DashboardAddr: ":8090"})
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 9, cfg.Epochs)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, ":8090", cfg.DashboardAddr)
	assert.Equal(t, 20, cfg.BatchSize)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSeedZeroIsKept(t *testing.T) {
	cfg, err := Parse(strings.NewReader(baseYAML + "seed: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), cfg.Seed)

	cfg, err = Parse(strings.NewReader(baseYAML + "seed: 17\n"))
	require.NoError(t, err)
	cfg.ApplyOverrides(Overrides{})
	assert.Equal(t, uint64(17), cfg.Seed)

	zero := uint64(0)
	cfg.ApplyOverrides(Overrides{Seed: &zero})
	assert.Equal(t, uint64(0), cfg.Seed)
}
