package randomness

import (
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/mysocial-network/beacon/model/randomness"
)

// command is processed by the engine's event loop, one at a time in arrival order.
type command interface {
	isCommand()
}

// EpochUpdate carries everything the engine needs to produce randomness in a new epoch.
type EpochUpdate struct {
	Epoch       randomness.Epoch
	Authorities randomness.AuthorityMap
	// DKGOutput is nil if the DKG of the epoch failed; no randomness is produced in that case.
	DKGOutput *randomness.DKGOutput
	Threshold uint16
	// RecoveredRound is the highest round completed before a restart within the epoch, if any.
	RecoveredRound *randomness.Round
}

type updateEpoch struct {
	update EpochUpdate
	result chan<- error
}

type sendPartialSignatures struct {
	epoch randomness.Epoch
	round randomness.Round
}

type completeRound struct {
	epoch randomness.Epoch
	round randomness.Round
}

type receiveSignatures struct {
	peer        peer.ID
	epoch       randomness.Epoch
	round       randomness.Round
	partialSigs [][]byte
	fullSig     []byte
}

type maybeIgnoreByzantinePeer struct {
	epoch randomness.Epoch
	peer  peer.ID
}

type partialSignaturesResult struct {
	sigs [][]byte
	err  error
}

type adminGetPartialSignatures struct {
	round  randomness.Round
	result chan<- partialSignaturesResult
}

type adminInjectPartialSignatures struct {
	authority randomness.AuthorityName
	round     randomness.Round
	sigs      [][]byte
	result    chan<- error
}

type adminInjectFullSignature struct {
	round  randomness.Round
	sig    []byte
	result chan<- error
}

func (updateEpoch) isCommand()                  {}
func (sendPartialSignatures) isCommand()        {}
func (completeRound) isCommand()                {}
func (receiveSignatures) isCommand()            {}
func (maybeIgnoreByzantinePeer) isCommand()     {}
func (adminGetPartialSignatures) isCommand()    {}
func (adminInjectPartialSignatures) isCommand() {}
func (adminInjectFullSignature) isCommand()     {}

// reply delivers a result on a buffered one-shot channel, if the caller asked for one.
func reply[T any](ch chan<- T, v T) {
	if ch == nil {
		return
	}
	select {
	case ch <- v:
	default:
	}
}
