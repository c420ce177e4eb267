package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		address string
		want    Kind
	}{
		{uniEth, KindEVM},
		{"0x1F9840A85D5AF5BF1D1762F925BDADDC4201F984", KindEVM},
		{"1f9840a85d5af5bf1d1762f925bdaddc4201f984", KindUnknown},
		{"0x1234", KindUnknown},
		{usdcSol, KindSolana},
		{"So11111111111111111111111111111111111111112", KindSolana},
		{"EQCxE6mUtQJKFnGfaROTKOt1lZbDiiX1kCixRv7Nw2Id_sDs", KindUnknown},
		{"0OIl-not-base58-0OIl-not-base58-0OIl", KindUnknown},
		{"", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.address))
		})
	}
}

func TestFilters(t *testing.T) {
	all := []string{usdcSol, uniEth, "garbage", uniArb}
	assert.Equal(t, []string{uniEth, uniArb}, FilterEVM(all))
	assert.Equal(t, []string{usdcSol}, FilterSolana(all))
	assert.Empty(t, FilterEVM(nil))
}

func TestPreferred(t *testing.T) {
	c, ok := Preferred([]string{usdcSol, uniEth})
	assert.True(t, ok)
	assert.Equal(t, uniEth, c)

	c, ok = Preferred([]string{"garbage", usdcSol})
	assert.True(t, ok)
	assert.Equal(t, usdcSol, c)

	_, ok = Preferred([]string{"garbage"})
	assert.False(t, ok)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "evm", KindEVM.String())
	assert.Equal(t, "solana", KindSolana.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}
