package unittest

import (
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/require"

	"github.com/mysocial-network/beacon/model/randomness"
	"github.com/mysocial-network/beacon/module/dkg"
)

// PeerIDFixture returns a random libp2p peer ID.
func PeerIDFixture(t testing.TB) peer.ID {
	key, _, err := crypto.GenerateEd25519Key(rand.Reader)
	require.NoError(t, err)
	id, err := peer.IDFromPrivateKey(key)
	require.NoError(t, err)
	return id
}

// Committee is a committee of one epoch together with the DKG output of every member.
type Committee struct {
	Names       []randomness.AuthorityName
	Authorities randomness.AuthorityMap
	Outputs     []*randomness.DKGOutput
	Threshold   uint16
}

// PeerID returns the peer ID of the i-th member.
func (c *Committee) PeerID(i int) peer.ID {
	return c.Authorities[c.Names[i]].PeerID
}

// CommitteeFixture returns a committee of parties with the given share weights. Member i owns
// PartyID i.
func CommitteeFixture(t testing.TB, weights []int, threshold int) *Committee {
	dealer := &dkg.TrustedDealer{Weights: weights, Threshold: threshold}
	outputs, err := dealer.Deal()
	require.NoError(t, err)

	c := &Committee{
		Names:       make([]randomness.AuthorityName, 0, len(weights)),
		Authorities: make(randomness.AuthorityMap, len(weights)),
		Outputs:     outputs,
		Threshold:   uint16(threshold),
	}
	for i := range weights {
		name := randomness.AuthorityName(fmt.Sprintf("authority-%d", i))
		c.Names = append(c.Names, name)
		c.Authorities[name] = randomness.AuthorityInfo{
			PeerID:  PeerIDFixture(t),
			PartyID: randomness.PartyID(i),
		}
	}
	return c
}

// EqualCommitteeFixture returns a committee of n members owning one share each.
func EqualCommitteeFixture(t testing.TB, n int, threshold int) *Committee {
	weights := make([]int, n)
	for i := range weights {
		weights[i] = 1
	}
	return CommitteeFixture(t, weights, threshold)
}
