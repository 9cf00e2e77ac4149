package chain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/lipidquant/pkg/core"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"two acyl chains", "16:0_18:1", []string{"16:0", "18:1"}, false},
		{"positional", "18:1/16:0", []string{"18:1", "16:0"}, false},
		{"ether", "O-16:0_20:4", []string{"O-16:0", "20:4"}, false},
		{"long chain base", "d18:1_24:0", []string{"d18:1", "24:0"}, false},
		{"oxidized", "18:1;O2_16:0", []string{"18:1;O2", "16:0"}, false},
		{"empty slot", "16:0_-", []string{"16:0", "-"}, false},
		{"single chain", "22:6", []string{"22:6"}, false},
		{"empty", "", nil, true},
		{"missing colon", "16_18:1", nil, true},
		{"trailing separator", "16:0_", nil, true},
		{"letters only", "PC_PE", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chains, err := Decode(tt.input)
			if tt.wantErr {
				var cee *core.ChainEncodingError
				require.True(t, errors.As(err, &cee), "expected ChainEncodingError, got %v", err)
				return
			}
			require.NoError(t, err)
			got := make([]string, len(chains))
			for i, c := range chains {
				got[i] = c.String()
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		want       string
		wantChains int
	}{
		{"already sorted", "16:0_18:1", "16:0_18:1", 2},
		{"permutation", "18:1_16:0", "16:0_18:1", 2},
		{"positional permutation", "18:1/16:0", "16:0_18:1", 2},
		{"same carbons by double bonds", "18:2_18:1", "18:1_18:2", 2},
		{"empty last", "-_16:0", "16:0_-", 2},
		{"three chains", "20:4_16:0_18:0", "16:0_18:0_20:4", 3},
		{"prefix tie break", "P-16:0_O-16:0", "O-16:0_P-16:0", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n, err := Canonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantChains, n)
		})
	}
}

func TestSortDoesNotMutateInput(t *testing.T) {
	chains, err := Decode("18:1_16:0")
	require.NoError(t, err)
	_ = Sort(chains)
	assert.Equal(t, "18:1_16:0", Encode(chains))
}
