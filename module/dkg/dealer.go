package dkg

import (
	"crypto/cipher"
	"fmt"

	"go.dedis.ch/kyber/v4/share"
	"go.dedis.ch/kyber/v4/xof/blake2xb"

	"github.com/mysocial-network/beacon/model/randomness"
	"github.com/mysocial-network/beacon/module/signature"
)

// TrustedDealer produces the DKG outputs of an epoch from a single dealer-generated secret.
// The beacon only consumes DKG outputs, so the dealer stands in for the ceremony in local
// networks and tests. It must never be used where the dealer is not trusted by all parties.
type TrustedDealer struct {
	// Weights is the number of shares owned by each party; party i is PartyID(i).
	Weights []int
	// Threshold is the number of shares required to reconstruct a signature.
	Threshold int
	// Seed makes the sharing deterministic when set. Dealers with the same seed, weights and
	// threshold produce the same outputs.
	Seed []byte
}

// NewTrustedDealer creates a dealer for parties with equal weight 1.
func NewTrustedDealer(parties int, threshold int) *TrustedDealer {
	weights := make([]int, parties)
	for i := range weights {
		weights[i] = 1
	}
	return &TrustedDealer{Weights: weights, Threshold: threshold}
}

// Deal generates a fresh sharing and returns the DKG output of every party, indexed by PartyID.
func (d *TrustedDealer) Deal() ([]*randomness.DKGOutput, error) {
	total := 0
	for party, w := range d.Weights {
		if w <= 0 {
			return nil, fmt.Errorf("party %d has non-positive weight %d", party, w)
		}
		total += w
	}
	if d.Threshold <= 0 || d.Threshold > total {
		return nil, fmt.Errorf("threshold %d out of range for %d shares", d.Threshold, total)
	}

	suite := signature.Suite()
	var stream cipher.Stream = suite.RandomStream()
	if len(d.Seed) > 0 {
		stream = blake2xb.New(d.Seed)
	}
	secret := suite.G2().Scalar().Pick(stream)
	priPoly := share.NewPriPoly(suite.G2(), d.Threshold, secret, stream)
	pubPoly := priPoly.Commit(suite.G2().Point().Base())
	priShares := priPoly.Shares(total)

	shareIDs := make(map[randomness.PartyID][]int, len(d.Weights))
	next := 0
	for party, w := range d.Weights {
		for j := 0; j < w; j++ {
			shareIDs[randomness.PartyID(party)] = append(shareIDs[randomness.PartyID(party)], next)
			next++
		}
	}

	outputs := make([]*randomness.DKGOutput, len(d.Weights))
	for party := range d.Weights {
		ids := shareIDs[randomness.PartyID(party)]
		own := make([]*share.PriShare, 0, len(ids))
		for _, id := range ids {
			own = append(own, priShares[id])
		}
		outputs[party] = &randomness.DKGOutput{
			PublicPoly:  pubPoly,
			Shares:      own,
			ShareIDs:    shareIDs,
			TotalShares: total,
		}
	}
	return outputs, nil
}
