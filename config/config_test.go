package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("loop_primitive: rt.loop\nprefixes:\n  get_args: getter\n"))
	require.NoError(t, err)
	assert.Equal(t, "rt.loop", cfg.LoopPrimitive)
	assert.Equal(t, "getter", cfg.Prefixes.GetArgs)
	assert.Equal(t, "set_args", cfg.Prefixes.SetArgs, "unset fields keep defaults")
	assert.Equal(t, "self", cfg.SelfName)
}

func TestParseRejects(t *testing.T) {
	for _, src := range []string{
		"self_name: ''\n",
		"loop_primitive: 'rt..loop'\n",
		"unknown_key: 1\n",
		"undefined_var: '1x'\n",
	} {
		_, err := Parse([]byte(src))
		assert.Error(t, err, src)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	b, err := Default().Marshal()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "loopconv.yaml")
	require.NoError(t, os.WriteFile(path, b, 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
