package operation

import (
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/mysocial-network/beacon/model/randomness"
)

// InsertCompletedRound stores the random output of a completed round.
// Error returns:
//   - storage.ErrAlreadyExists if an output is already stored for the round
func InsertCompletedRound(epoch randomness.Epoch, round randomness.Round, output []byte) func(*badger.Txn) error {
	return insert(makePrefix(codeCompletedRound, uint64(epoch), uint64(round)), output)
}

// RetrieveCompletedRound retrieves the random output of a completed round.
// Error returns:
//   - storage.ErrNotFound if no output is stored for the round
func RetrieveCompletedRound(epoch randomness.Epoch, round randomness.Round, output *[]byte) func(*badger.Txn) error {
	return retrieve(makePrefix(codeCompletedRound, uint64(epoch), uint64(round)), output)
}

// FindHighestCompletedRound looks up the highest round stored for the given epoch. Found is
// false if no round of the epoch is stored.
func FindHighestCompletedRound(epoch randomness.Epoch, round *randomness.Round, found *bool) func(*badger.Txn) error {
	prefix := makePrefix(codeCompletedRound, uint64(epoch))
	return func(tx *badger.Txn) error {
		*found = false
		var decodeErr error
		err := iterateKeys(prefix, true, func(key []byte) bool {
			if len(key) != len(prefix)+8 {
				decodeErr = fmt.Errorf("unexpected completed round key length %d", len(key))
				return false
			}
			*round = randomness.Round(binary.BigEndian.Uint64(key[len(prefix):]))
			*found = true
			return false
		})(tx)
		if err != nil {
			return err
		}
		return decodeErr
	}
}

// RemoveCompletedRounds deletes all the rounds stored for the given epoch.
func RemoveCompletedRounds(epoch randomness.Epoch) func(*badger.Txn) error {
	return removeByPrefix(makePrefix(codeCompletedRound, uint64(epoch)))
}

// ListCompletedEpochs collects the distinct epochs for which at least one round is stored,
// in increasing order.
func ListCompletedEpochs(epochs *[]randomness.Epoch) func(*badger.Txn) error {
	prefix := makePrefix(codeCompletedRound)
	return func(tx *badger.Txn) error {
		*epochs = (*epochs)[:0]
		return iterateKeys(prefix, false, func(key []byte) bool {
			if len(key) < len(prefix)+8 {
				return true
			}
			epoch := randomness.Epoch(binary.BigEndian.Uint64(key[len(prefix):]))
			if n := len(*epochs); n == 0 || (*epochs)[n-1] != epoch {
				*epochs = append(*epochs, epoch)
			}
			return true
		})(tx)
	}
}

// UpdateLatestEpoch stores the latest epoch for which the node produced randomness.
func UpdateLatestEpoch(epoch randomness.Epoch) func(*badger.Txn) error {
	return upsert(makePrefix(codeLatestEpoch), uint64(epoch))
}

// RetrieveLatestEpoch retrieves the latest epoch for which the node produced randomness.
// Error returns:
//   - storage.ErrNotFound if no epoch has been stored yet
func RetrieveLatestEpoch(epoch *randomness.Epoch) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		var value uint64
		err := retrieve(makePrefix(codeLatestEpoch), &value)(tx)
		if err != nil {
			return err
		}
		*epoch = randomness.Epoch(value)
		return nil
	}
}
