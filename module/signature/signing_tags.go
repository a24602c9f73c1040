package signature

import (
	"encoding/binary"

	"github.com/mysocial-network/beacon/model/randomness"
)

// List of domain separation tags for protocol signatures.
//
// Random beacon signatures use the threshold BLS signature scheme.
// To scope a signature to a specific sub-protocol, the signed message is
// prefixed with a domain separation tag specific to where the signature is used.

// protocol prefix
const protocolPrefix = "MYSOCIAL-"

// protocol version
const protocolVersion = "-V00-"

// Ciphersuite index
// Only one ciphersuite (BLS over BN256, signatures on G1) is used.
const cipherSuiteIndex = "CS00-"

// an example of domain tag output is :
// MYSOCIAL-CERTAIN_DOMAIN-V00-CS00-with-
func tag(domain string) string {
	return protocolPrefix + domain + protocolVersion + cipherSuiteIndex + "with-"
}

var (
	// RandomBeaconTag is used for threshold signatures in the random beacon
	RandomBeaconTag = tag("Random_Beacon")
)

// RoundMessage returns the canonical message signed by all beacon participants for the
// given epoch and round.
func RoundMessage(epoch randomness.Epoch, round randomness.Round) []byte {
	msg := make([]byte, 0, len(RandomBeaconTag)+16)
	msg = append(msg, RandomBeaconTag...)
	msg = binary.BigEndian.AppendUint64(msg, uint64(epoch))
	msg = binary.BigEndian.AppendUint64(msg, uint64(round))
	return msg
}
