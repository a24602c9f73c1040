package signature_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mysocial-network/beacon/model/randomness"
	"github.com/mysocial-network/beacon/module/dkg"
	"github.com/mysocial-network/beacon/module/signature"
)

const (
	testEpoch = randomness.Epoch(3)
	testRound = randomness.Round(5)
)

// createSigners creates one threshold signer per party of an n-party, threshold t sharing.
func createSigners(t *testing.T, n int, threshold int) []*signature.ThresholdSigner {
	outputs, err := dkg.NewTrustedDealer(n, threshold).Deal()
	require.NoError(t, err)
	signers := make([]*signature.ThresholdSigner, 0, n)
	for _, output := range outputs {
		s, err := signature.NewThresholdSigner(output)
		require.NoError(t, err)
		signers = append(signers, s)
	}
	return signers
}

func partials(t *testing.T, signers []*signature.ThresholdSigner, epoch randomness.Epoch, round randomness.Round) [][]byte {
	var all [][]byte
	for _, s := range signers {
		sigs, err := s.SignPartial(epoch, round)
		require.NoError(t, err)
		all = append(all, sigs...)
	}
	return all
}

func TestThresholdSigner_AggregateAnySubset(t *testing.T) {
	signers := createSigners(t, 5, 3)
	all := partials(t, signers, testEpoch, testRound)

	subsets := [][]int{{0, 1, 2}, {2, 3, 4}, {4, 0, 2}, {0, 1, 2, 3, 4}}
	var first []byte
	for _, subset := range subsets {
		sigs := make([][]byte, 0, len(subset))
		for _, i := range subset {
			sigs = append(sigs, all[i])
		}
		full, err := signers[0].Aggregate(testEpoch, testRound, sigs, 3)
		require.NoError(t, err)
		require.NoError(t, signers[1].Verify(testEpoch, testRound, full))

		// every subset interpolates to the same unique signature
		if first == nil {
			first = full
		}
		assert.Equal(t, first, full)
	}
}

// TestThresholdSigner_AggregateProperty checks that any ordering of any subset of the partial
// signatures yields the unique group signature iff it holds at least threshold shares.
func TestThresholdSigner_AggregateProperty(t *testing.T) {
	signers := createSigners(t, 5, 3)
	all := partials(t, signers, testEpoch, testRound)
	expected, err := signers[0].Aggregate(testEpoch, testRound, all, 3)
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		shuffled := rapid.Permutation(all).Draw(t, "partials")
		count := rapid.IntRange(0, len(all)).Draw(t, "count")

		full, err := signers[1].Aggregate(testEpoch, testRound, shuffled[:count], 3)
		if count < 3 {
			require.ErrorIs(t, err, signature.ErrInsufficientShares)
			return
		}
		require.NoError(t, err)
		require.Equal(t, expected, full)
	})
}

func TestThresholdSigner_NotEnoughShares(t *testing.T) {
	signers := createSigners(t, 3, 2)
	all := partials(t, signers, testEpoch, testRound)

	_, err := signers[0].Aggregate(testEpoch, testRound, all[:1], 2)
	require.ErrorIs(t, err, signature.ErrInsufficientShares)

	// duplicates of the same share do not count as distinct contributors
	_, err = signers[0].Aggregate(testEpoch, testRound, [][]byte{all[0], all[0]}, 2)
	require.ErrorIs(t, err, signature.ErrInsufficientShares)
}

func TestThresholdSigner_InvalidShareIsReported(t *testing.T) {
	signers := createSigners(t, 4, 2)
	all := partials(t, signers, testEpoch, testRound)
	wrongRound := partials(t, signers[1:2], testEpoch, testRound+1)

	// share 1 signs the wrong round, shares 0 and 2 are still enough
	full, err := signers[0].Aggregate(testEpoch, testRound, [][]byte{all[0], wrongRound[0], all[2]}, 2)
	require.NoError(t, err)
	require.NoError(t, signers[0].Verify(testEpoch, testRound, full))

	// without share 2 the invalid share is reported back
	_, err = signers[0].Aggregate(testEpoch, testRound, [][]byte{wrongRound[0], all[0]}, 2)
	insufficient, ok := signature.IsInsufficientSharesError(err)
	require.True(t, ok)
	assert.Equal(t, []int{1}, insufficient.Invalid)
	assert.Equal(t, 1, insufficient.Valid)
}

func TestThresholdSigner_SignPartialIsDeterministic(t *testing.T) {
	signers := createSigners(t, 3, 2)
	first, err := signers[2].SignPartial(testEpoch, testRound)
	require.NoError(t, err)
	second, err := signers[2].SignPartial(testEpoch, testRound)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	index, err := signature.ShareIndex(first[0])
	require.NoError(t, err)
	assert.Equal(t, 2, index)
	require.NoError(t, signers[0].VerifyPartial(testEpoch, testRound, first[0]))
	require.ErrorIs(t, signers[0].VerifyPartial(testEpoch+1, testRound, first[0]), signature.ErrInvalidSignature)
}

func TestThresholdSigner_VerifyRejectsOtherRound(t *testing.T) {
	signers := createSigners(t, 3, 2)
	full, err := signers[0].Aggregate(testEpoch, testRound, partials(t, signers, testEpoch, testRound), 2)
	require.NoError(t, err)

	require.NoError(t, signers[2].Verify(testEpoch, testRound, full))
	require.ErrorIs(t, signers[2].Verify(testEpoch, testRound+1, full), signature.ErrInvalidSignature)
	require.ErrorIs(t, signers[2].Verify(testEpoch+1, testRound, full), signature.ErrInvalidSignature)
	require.ErrorIs(t, signers[2].Verify(testEpoch, testRound, []byte{1, 2, 3}), signature.ErrInvalidSignature)

	assert.Len(t, signature.RandomnessFromSignature(full), 32)
}

func TestDecodePartial_Malformed(t *testing.T) {
	_, err := signature.DecodePartial(nil)
	assert.True(t, errors.Is(err, signature.ErrInvalidFormat))

	_, err = signature.DecodePartial([]byte{0, 1})
	assert.True(t, errors.Is(err, signature.ErrInvalidFormat))

	_, err = signature.DecodePartial([]byte{0, 1, 0xff, 0xff, 0xff})
	assert.True(t, errors.Is(err, signature.ErrInvalidFormat))
}

func TestThresholdSigner_NoKeyShares(t *testing.T) {
	outputs, err := dkg.NewTrustedDealer(3, 2).Deal()
	require.NoError(t, err)
	observer := *outputs[0]
	observer.Shares = nil

	s, err := signature.NewThresholdSigner(&observer)
	require.NoError(t, err)
	_, err = s.SignPartial(testEpoch, testRound)
	require.ErrorIs(t, err, signature.ErrNoKeyShares)
}
