package randomness

import (
	"fmt"

	"github.com/libp2p/go-libp2p/core/peer"
)

// Epoch identifies a committee era. Exactly one epoch is current in the beacon at a time.
type Epoch uint64

// Round identifies one randomness output slot within an epoch.
type Round uint64

// Next returns the round following r.
func (r Round) Next() Round {
	return r + 1
}

func (r Round) String() string {
	return fmt.Sprintf("%d", uint64(r))
}

// AuthorityName is the stable identity of a validator across epochs.
type AuthorityName string

// PartyID is the position of an authority in the DKG node list of an epoch.
type PartyID uint16

// AuthorityInfo maps an authority to its network identity and DKG party for one epoch.
// It must not be reused across epochs.
type AuthorityInfo struct {
	PeerID  peer.ID
	PartyID PartyID
}

// AuthorityMap is the committee of the current epoch.
type AuthorityMap map[AuthorityName]AuthorityInfo

// PeerIDs returns the network identities of all committee members.
func (m AuthorityMap) PeerIDs() []peer.ID {
	ids := make([]peer.ID, 0, len(m))
	for _, info := range m {
		ids = append(ids, info.PeerID)
	}
	return ids
}

// ByPeerID returns the authority info registered for the given peer.
func (m AuthorityMap) ByPeerID(pid peer.ID) (AuthorityName, AuthorityInfo, bool) {
	for name, info := range m {
		if info.PeerID == pid {
			return name, info, true
		}
	}
	return "", AuthorityInfo{}, false
}

// Output is a completed round of randomness delivered to the downstream consumer.
type Output struct {
	Epoch Epoch
	Round Round
	// Bytes is the random value for the round, derived from the round's full threshold signature.
	Bytes []byte
}
