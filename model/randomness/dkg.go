package randomness

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/share"
)

// DKGOutput is the result of the distributed key generation for one epoch, as consumed by the
// random beacon. It is replaced wholesale on every epoch transition.
type DKGOutput struct {
	// PublicPoly holds the public commitments of the shared polynomial. Its free coefficient
	// (PublicPoly.Commit()) is the group public key of the epoch.
	PublicPoly *share.PubPoly
	// Shares are the key shares owned by this node, empty if the node did not obtain any.
	Shares []*share.PriShare
	// ShareIDs lists the share indices owned by each party. Parties may own several shares.
	ShareIDs map[PartyID][]int
	// TotalShares is the total number of shares n of the sharing.
	TotalShares int
}

// GroupKey returns the public key threshold signatures of the epoch verify against.
func (o *DKGOutput) GroupKey() kyber.Point {
	return o.PublicPoly.Commit()
}

// SharesOf returns the sorted share indices owned by the given party.
func (o *DKGOutput) SharesOf(party PartyID) []int {
	ids := append([]int(nil), o.ShareIDs[party]...)
	sort.Ints(ids)
	return ids
}

// Validate checks the internal consistency of the DKG output.
// Returns a multierror listing every inconsistency found, or nil.
func (o *DKGOutput) Validate() error {
	var errs *multierror.Error
	if o.PublicPoly == nil {
		errs = multierror.Append(errs, fmt.Errorf("missing public polynomial"))
	}
	if o.TotalShares <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("invalid total number of shares %d", o.TotalShares))
	}

	owners := make(map[int]PartyID)
	for party, ids := range o.ShareIDs {
		if len(ids) == 0 {
			errs = multierror.Append(errs, fmt.Errorf("party %d owns no shares", party))
		}
		for _, id := range ids {
			if id < 0 || id >= o.TotalShares {
				errs = multierror.Append(errs, fmt.Errorf("party %d owns out of range share %d", party, id))
				continue
			}
			if other, ok := owners[id]; ok {
				errs = multierror.Append(errs, fmt.Errorf("share %d owned by both party %d and party %d", id, other, party))
				continue
			}
			owners[id] = party
		}
	}
	for _, s := range o.Shares {
		if s == nil || s.I < 0 || s.I >= o.TotalShares {
			errs = multierror.Append(errs, fmt.Errorf("invalid local key share"))
		}
	}
	return errs.ErrorOrNil()
}
