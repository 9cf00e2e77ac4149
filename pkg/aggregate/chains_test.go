package aggregate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/lipidquant/pkg/core"
)

func TestAddChainInformation(t *testing.T) {
	r := newRecord(t, 0)

	n, err := r.AddChainInformation("H", map[string]float64{
		"18:1_16:0": 30,
		"16:1_18:0": 50,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"16:1_18:0", "16:0_18:1"}, r.ChainInformation("H").Names())

	n, err = r.AddChainInformation("Na", map[string]float64{
		"16:0/18:1":   40,
		"O-16:0_18:1": 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	total := r.ChainInformationTotal()
	assert.Equal(t, []string{"16:0_18:1", "16:1_18:0", "O-16:0_18:1"}, total.Names())
	area, ok := total.Get("16:0_18:1")
	require.True(t, ok)
	assert.Equal(t, 70.0, area, "permuted names are summed")

	strongest, ok := r.StrongestChainIdentification()
	require.True(t, ok)
	assert.Equal(t, "16:0_18:1", strongest)
}

func TestAddChainInformationKeepsEarlierEntries(t *testing.T) {
	r := newRecord(t, 0)
	_, err := r.AddChainInformation("H", map[string]float64{"16:0_18:1": 10})
	require.NoError(t, err)
	_, err = r.AddChainInformation("H", map[string]float64{"18:0_18:2": 20, "18:1_16:0": 15})
	require.NoError(t, err)

	chains := r.ChainInformation("H")
	assert.Equal(t, []string{"16:0_18:1", "18:0_18:2"}, chains.Names())
	area, _ := chains.Get("16:0_18:1")
	assert.Equal(t, 25.0, area)
}

func TestAddChainInformationTiesAreStable(t *testing.T) {
	r := newRecord(t, 0)
	_, err := r.AddChainInformation("H", map[string]float64{"18:0_18:2": 10, "16:0_20:2": 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"16:0_20:2", "18:0_18:2"}, r.ChainInformation("H").Names())
}

func TestAddChainInformationInvalid(t *testing.T) {
	r := newRecord(t, 0)
	_, err := r.AddChainInformation("H", map[string]float64{"16:0_18:1": 10})
	require.NoError(t, err)

	_, err = r.AddChainInformation("H", map[string]float64{"16:0_18:1": 5, "garbage": 1})
	var cee *core.ChainEncodingError
	require.True(t, errors.As(err, &cee))

	area, _ := r.ChainInformation("H").Get("16:0_18:1")
	assert.Equal(t, 10.0, area, "nothing is added on error")
	assert.Len(t, r.ChainInformationTotal(), 1)
}

func TestStrongestChainIdentificationEmpty(t *testing.T) {
	r := newRecord(t, 0)
	_, ok := r.StrongestChainIdentification()
	assert.False(t, ok)
	assert.Empty(t, r.ChainInformation("H"))
}
