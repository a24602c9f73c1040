package dkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysocial-network/beacon/model/randomness"
)

func TestTrustedDealer_WeightedParties(t *testing.T) {
	dealer := &TrustedDealer{Weights: []int{1, 2, 3}, Threshold: 4}
	outputs, err := dealer.Deal()
	require.NoError(t, err)
	require.Len(t, outputs, 3)

	for party, output := range outputs {
		require.NoError(t, output.Validate())
		assert.Equal(t, 6, output.TotalShares)
		assert.Len(t, output.Shares, dealer.Weights[party])
		for i, s := range output.Shares {
			assert.Equal(t, output.SharesOf(randomness.PartyID(party))[i], s.I)
		}
		// all parties agree on the group key
		assert.True(t, output.GroupKey().Equal(outputs[0].GroupKey()))
	}
	assert.Equal(t, []int{1, 2}, outputs[0].SharesOf(1))
}

func TestTrustedDealer_InvalidParameters(t *testing.T) {
	_, err := NewTrustedDealer(3, 4).Deal()
	assert.Error(t, err)

	_, err = NewTrustedDealer(3, 0).Deal()
	assert.Error(t, err)

	_, err = (&TrustedDealer{Weights: []int{1, 0}, Threshold: 1}).Deal()
	assert.Error(t, err)
}

func TestTrustedDealer_Seeded(t *testing.T) {
	deal := func(seed string) []*randomness.DKGOutput {
		dealer := NewTrustedDealer(4, 3)
		dealer.Seed = []byte(seed)
		outputs, err := dealer.Deal()
		require.NoError(t, err)
		return outputs
	}

	first := deal("localnet")
	second := deal("localnet")
	other := deal("other")

	assert.True(t, first[0].GroupKey().Equal(second[0].GroupKey()))
	for party := range first {
		assert.True(t, first[party].Shares[0].V.Equal(second[party].Shares[0].V))
	}
	assert.False(t, first[0].GroupKey().Equal(other[0].GroupKey()))
}
