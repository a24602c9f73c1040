package storage

import (
	"github.com/mysocial-network/beacon/model/randomness"
)

// CompletedRounds persists the random outputs of completed beacon rounds, so that a restarted
// node can resume from the round after the highest one it has already observed.
type CompletedRounds interface {

	// Store persists the random output of a completed round. Storing the same output twice
	// is a no-op.
	// Expected errors during normal operations:
	//   - storage.ErrDataMismatch if a different output is already stored for the round
	Store(epoch randomness.Epoch, round randomness.Round, output []byte) error

	// ByRound returns the random output of a completed round.
	// Expected errors during normal operations:
	//   - storage.ErrNotFound if the round has not been stored
	ByRound(epoch randomness.Epoch, round randomness.Round) ([]byte, error)

	// HighestRound returns the highest completed round stored for the epoch.
	// Expected errors during normal operations:
	//   - storage.ErrNotFound if no round of the epoch has been stored
	HighestRound(epoch randomness.Epoch) (randomness.Round, error)

	// RemoveEpochsBelow deletes the rounds of all epochs lower than the given one.
	RemoveEpochsBelow(epoch randomness.Epoch) error
}
