package operation

import (
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysocial-network/beacon/model/randomness"
	"github.com/mysocial-network/beacon/storage"
	"github.com/mysocial-network/beacon/utils/unittest"
)

func TestInsertRetrieveCompletedRound(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		output := []byte("random output")

		err := db.Update(InsertCompletedRound(1, 2, output))
		require.NoError(t, err)

		var actual []byte
		err = db.View(RetrieveCompletedRound(1, 2, &actual))
		require.NoError(t, err)
		assert.Equal(t, output, actual)

		err = db.Update(InsertCompletedRound(1, 2, output))
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)

		err = db.View(RetrieveCompletedRound(1, 3, &actual))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestFindHighestCompletedRound(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		var round randomness.Round
		var found bool
		require.NoError(t, db.View(FindHighestCompletedRound(7, &round, &found)))
		assert.False(t, found)

		for _, r := range []randomness.Round{1, 9, 4} {
			require.NoError(t, db.Update(InsertCompletedRound(7, r, []byte{1})))
		}
		require.NoError(t, db.Update(InsertCompletedRound(8, 100, []byte{1})))

		require.NoError(t, db.View(FindHighestCompletedRound(7, &round, &found)))
		assert.True(t, found)
		assert.EqualValues(t, 9, round)
	})
}

func TestRemoveCompletedRounds(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		require.NoError(t, db.Update(InsertCompletedRound(1, 1, []byte{1})))
		require.NoError(t, db.Update(InsertCompletedRound(2, 1, []byte{2})))
		require.NoError(t, db.Update(InsertCompletedRound(3, 1, []byte{3})))

		var epochs []randomness.Epoch
		require.NoError(t, db.View(ListCompletedEpochs(&epochs)))
		assert.Equal(t, []randomness.Epoch{1, 2, 3}, epochs)

		require.NoError(t, db.Update(RemoveCompletedRounds(2)))

		require.NoError(t, db.View(ListCompletedEpochs(&epochs)))
		assert.Equal(t, []randomness.Epoch{1, 3}, epochs)
	})
}

func TestLatestEpoch(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		var epoch randomness.Epoch
		err := db.View(RetrieveLatestEpoch(&epoch))
		assert.ErrorIs(t, err, storage.ErrNotFound)

		require.NoError(t, db.Update(UpdateLatestEpoch(3)))
		require.NoError(t, db.View(RetrieveLatestEpoch(&epoch)))
		assert.EqualValues(t, 3, epoch)
	})
}

func TestCorruptedValue(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		key := makePrefix(codeCompletedRound, uint64(1), uint64(1))
		require.NoError(t, db.Update(func(tx *badger.Txn) error {
			return tx.Set(key, []byte{0xff, 0xff, 0xff})
		}))

		var output []byte
		err := db.View(RetrieveCompletedRound(1, 1, &output))
		assert.ErrorIs(t, err, errUncompressedValue)
	})
}
