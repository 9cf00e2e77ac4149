package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v, err := NewViper("")
	require.NoError(t, err)

	c, err := New(v)
	require.NoError(t, err)

	assert.Equal(t, 3, c.Isotopes.Count)
	assert.Equal(t, 30*time.Minute, c.Isotopes.CacheTTL)
	assert.Equal(t, "IS", c.Standards.InternalPrefix)
	assert.Equal(t, "ES", c.Standards.ExternalPrefix)
	assert.Equal(t, "mzXML", c.Translate.Format)
	assert.Equal(t, int64(500), c.Translate.MaxPieceMB)
	assert.Equal(t, time.Second, c.Translate.PollInterval)
	assert.Empty(t, c.Library)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lipidquant.yaml")
	content := `
library: /data/reference.db
isotopes:
  count: 4
  cache-ttl: 5m
filter:
  min-area: 1000
  modifications: [H, Na]
translate:
  command: msconvert {file} --{format}
  max-piece-mb: 250
  poll-interval: 200ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v, err := NewViper(path)
	require.NoError(t, err)
	c, err := New(v)
	require.NoError(t, err)

	assert.Equal(t, "/data/reference.db", c.Library)
	assert.Equal(t, 4, c.Isotopes.Count)
	assert.Equal(t, 5*time.Minute, c.Isotopes.CacheTTL)
	assert.Equal(t, []string{"H", "Na"}, c.Filter.Modifications)
	assert.Equal(t, int64(250), c.Translate.MaxPieceMB)
	assert.Equal(t, 200*time.Millisecond, c.Translate.PollInterval)
	assert.Equal(t, "mzXML", c.Translate.Format, "unset keys keep their default")

	f := c.HitFilter()
	assert.Equal(t, 1000.0, f.MinArea)
	assert.Equal(t, []string{"H", "Na"}, f.Modifications)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("LIPIDQUANT_ISOTOPES_COUNT", "5")
	t.Setenv("LIPIDQUANT_TRANSLATE_MAX_PIECE_MB", "100")

	v, err := NewViper("")
	require.NoError(t, err)
	c, err := New(v)
	require.NoError(t, err)

	assert.Equal(t, 5, c.Isotopes.Count)
	assert.Equal(t, int64(100), c.Translate.MaxPieceMB)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := NewViper(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		v, _ := NewViper("")
		c, _ := New(v)
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero isotopes", func(c *Config) { c.Isotopes.Count = 0 }},
		{"negative ttl", func(c *Config) { c.Isotopes.CacheTTL = -time.Second }},
		{"cutoff above 100", func(c *Config) { c.Filter.AreaCutoff = 101 }},
		{"negative top n", func(c *Config) { c.Filter.ChainTopN = -1 }},
		{"zero piece size", func(c *Config) { c.Translate.MaxPieceMB = 0 }},
		{"zero poll interval", func(c *Config) { c.Translate.PollInterval = 0 }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
