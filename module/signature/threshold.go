package signature

import (
	"fmt"
	"sort"

	"go.dedis.ch/kyber/v4/pairing"
	"go.dedis.ch/kyber/v4/pairing/bn256"
	"go.dedis.ch/kyber/v4/share"
	"go.dedis.ch/kyber/v4/sign/bdn"
	"go.dedis.ch/kyber/v4/sign/tbls"
	"golang.org/x/crypto/sha3"

	"github.com/mysocial-network/beacon/model/randomness"
)

// shareIndexLen is the length of the share index prefix of an encoded partial signature.
const shareIndexLen = 2

// Suite returns the pairing suite used by the random beacon. Keys live on G2, signatures on G1.
func Suite() pairing.Suite {
	return bn256.NewSuite()
}

// PartialSignature is a decoded random beacon signature share.
type PartialSignature struct {
	Index int
	Raw   []byte
}

// DecodePartial parses an encoded partial signature and checks that it carries a well-formed
// share index and curve point. It does not verify the signature.
// Returns ErrInvalidFormat if the encoding is malformed.
func DecodePartial(raw []byte) (PartialSignature, error) {
	if len(raw) <= shareIndexLen {
		return PartialSignature{}, fmt.Errorf("partial signature of %d bytes is too short: %w", len(raw), ErrInvalidFormat)
	}
	s := tbls.SigShare(raw)
	index, err := s.Index()
	if err != nil {
		return PartialSignature{}, fmt.Errorf("could not decode share index: %v: %w", err, ErrInvalidFormat)
	}
	point := Suite().G1().Point()
	if err := point.UnmarshalBinary(raw[shareIndexLen:]); err != nil {
		return PartialSignature{}, fmt.Errorf("could not decode signature share %d: %v: %w", index, err, ErrInvalidFormat)
	}
	return PartialSignature{Index: index, Raw: raw}, nil
}

// ShareIndex returns the share index of an encoded partial signature.
// Returns ErrInvalidFormat if the encoding is malformed.
func ShareIndex(raw []byte) (int, error) {
	p, err := DecodePartial(raw)
	if err != nil {
		return 0, err
	}
	return p.Index, nil
}

// RandomnessFromSignature derives the random output of a round from its full signature.
func RandomnessFromSignature(sig []byte) []byte {
	digest := sha3.Sum256(sig)
	return digest[:]
}

// ThresholdSigner wraps the DKG output of one epoch. It produces this node's partial
// signatures for beacon rounds, combines partial signatures into the full signature and
// verifies signatures against the group key.
//
// All methods are safe for concurrent use; the signer is immutable after construction.
type ThresholdSigner struct {
	suite  pairing.Suite
	output *randomness.DKGOutput
	shares []*share.PriShare // sorted by share index
}

// NewThresholdSigner creates a signer for the given DKG output.
// Returns an error if the output is inconsistent.
func NewThresholdSigner(output *randomness.DKGOutput) (*ThresholdSigner, error) {
	if output == nil {
		return nil, fmt.Errorf("missing DKG output")
	}
	if err := output.Validate(); err != nil {
		return nil, fmt.Errorf("invalid DKG output: %w", err)
	}
	shares := append([]*share.PriShare(nil), output.Shares...)
	sort.Slice(shares, func(i, j int) bool { return shares[i].I < shares[j].I })

	return &ThresholdSigner{
		suite:  Suite(),
		output: output,
		shares: shares,
	}, nil
}

// TotalShares returns the number of shares n of the epoch's sharing.
func (s *ThresholdSigner) TotalShares() int {
	return s.output.TotalShares
}

// SignPartial returns this node's partial signatures for the given round, one per owned key
// share, ordered by share index. Signing is deterministic.
// Expected errors during normal operations:
//   - ErrNoKeyShares if this node owns no key shares in the epoch
func (s *ThresholdSigner) SignPartial(epoch randomness.Epoch, round randomness.Round) ([][]byte, error) {
	if len(s.shares) == 0 {
		return nil, ErrNoKeyShares
	}
	msg := RoundMessage(epoch, round)
	sigs := make([][]byte, 0, len(s.shares))
	for _, priShare := range s.shares {
		sig, err := tbls.Sign(s.suite, priShare, msg)
		if err != nil {
			return nil, fmt.Errorf("could not sign round %d with share %d: %w", round, priShare.I, err)
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

// VerifyPartial verifies a single partial signature against the public key of its share.
// Expected errors during normal operations:
//   - ErrInvalidFormat if the encoding is malformed or the share index is out of range
//   - ErrInvalidSignature if the signature does not verify
func (s *ThresholdSigner) VerifyPartial(epoch randomness.Epoch, round randomness.Round, raw []byte) error {
	partial, err := DecodePartial(raw)
	if err != nil {
		return err
	}
	if partial.Index >= s.output.TotalShares {
		return fmt.Errorf("share index %d out of range: %w", partial.Index, ErrInvalidFormat)
	}
	err = tbls.Verify(s.suite, s.output.PublicPoly, RoundMessage(epoch, round), raw)
	if err != nil {
		return fmt.Errorf("share %d: %v: %w", partial.Index, err, ErrInvalidSignature)
	}
	return nil
}

// Verify verifies a full signature for the given round against the group public key.
// Expected errors during normal operations:
//   - ErrInvalidSignature if the signature does not verify
func (s *ThresholdSigner) Verify(epoch randomness.Epoch, round randomness.Round, sig []byte) error {
	err := bdn.Verify(s.suite, s.output.GroupKey(), RoundMessage(epoch, round), sig)
	if err != nil {
		return fmt.Errorf("round %d: %v: %w", round, err, ErrInvalidSignature)
	}
	return nil
}

// Aggregate combines partial signatures into the full signature of the round.
// Partials are sorted by share index and deduplicated before interpolation. The first
// attempt interpolates without checking the individual shares; if the result fails
// verification, every share is verified and interpolation is retried with the valid ones.
// Expected errors during normal operations:
//   - InsufficientSharesError (wrapping ErrInsufficientShares) if fewer than threshold distinct
//     valid shares are available; it lists the indices of shares that failed verification
//   - ErrInvalidSignature if the interpolated signature does not verify
func (s *ThresholdSigner) Aggregate(epoch randomness.Epoch, round randomness.Round, partials [][]byte, threshold int) ([]byte, error) {
	if threshold <= 0 || threshold > s.output.TotalShares {
		return nil, fmt.Errorf("invalid threshold %d for %d shares", threshold, s.output.TotalShares)
	}

	decoded, invalid := s.orderedDistinct(partials)
	if len(decoded) < threshold {
		return nil, InsufficientSharesError{Valid: len(decoded), Required: threshold, Invalid: invalid}
	}

	sig, err := s.recover(decoded[:threshold], threshold)
	if err == nil {
		if verr := s.Verify(epoch, round, sig); verr == nil {
			return sig, nil
		}
	}

	// optimistic interpolation failed, fall back to checking each share
	msg := RoundMessage(epoch, round)
	valid := make([]PartialSignature, 0, len(decoded))
	for _, p := range decoded {
		if err := tbls.Verify(s.suite, s.output.PublicPoly, msg, p.Raw); err != nil {
			invalid = append(invalid, p.Index)
			continue
		}
		valid = append(valid, p)
	}
	if len(valid) < threshold {
		return nil, InsufficientSharesError{Valid: len(valid), Required: threshold, Invalid: invalid}
	}

	sig, err = s.recover(valid[:threshold], threshold)
	if err != nil {
		return nil, fmt.Errorf("could not interpolate verified shares: %w", err)
	}
	if err := s.Verify(epoch, round, sig); err != nil {
		return nil, err
	}
	return sig, nil
}

// orderedDistinct decodes the given partials, drops malformed ones (reported as invalid when
// their index is readable) and duplicates, and sorts the rest by share index.
func (s *ThresholdSigner) orderedDistinct(partials [][]byte) ([]PartialSignature, []int) {
	var invalid []int
	seen := make(map[int]struct{}, len(partials))
	decoded := make([]PartialSignature, 0, len(partials))
	for _, raw := range partials {
		p, err := DecodePartial(raw)
		if err != nil {
			continue
		}
		if p.Index >= s.output.TotalShares {
			invalid = append(invalid, p.Index)
			continue
		}
		if _, dup := seen[p.Index]; dup {
			continue
		}
		seen[p.Index] = struct{}{}
		decoded = append(decoded, p)
	}
	sort.Slice(decoded, func(i, j int) bool { return decoded[i].Index < decoded[j].Index })
	return decoded, invalid
}

// recover runs Lagrange interpolation in the exponent over the given shares.
func (s *ThresholdSigner) recover(partials []PartialSignature, threshold int) ([]byte, error) {
	pubShares := make([]*share.PubShare, 0, len(partials))
	for _, p := range partials {
		point := s.suite.G1().Point()
		if err := point.UnmarshalBinary(p.Raw[shareIndexLen:]); err != nil {
			return nil, fmt.Errorf("could not decode share %d: %w", p.Index, err)
		}
		pubShares = append(pubShares, &share.PubShare{I: p.Index, V: point})
	}
	commit, err := share.RecoverCommit(s.suite.G1(), pubShares, threshold, s.output.TotalShares)
	if err != nil {
		return nil, fmt.Errorf("could not recover signature: %w", err)
	}
	return commit.MarshalBinary()
}
