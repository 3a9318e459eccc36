package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfiguration(t *testing.T) {
	cfg := DefaultConfiguration()
	assert.Equal(t, "", cfg.DomainTag)
	assert.Equal(t, uint16(1344), cfg.FragmentSize)
	require.NoError(t, cfg.Validate())
}

func TestLoadAppliesDefaultsWithoutFile(t *testing.T) {
	v := viper.New()
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, uint16(1344), cfg.FragmentSize)
}

func TestLoadRejectsZeroFragmentSize(t *testing.T) {
	v := viper.New()
	v.Set("fragment_size", 0)
	_, err := Load(v)
	assert.Error(t, err)
}

func TestLoadTrimsInterfaceName(t *testing.T) {
	v := viper.New()
	v.Set("interface_name", "  eth0  ")
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "eth0", cfg.InterfaceName)
}
