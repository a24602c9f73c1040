package badger

import (
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysocial-network/beacon/model/randomness"
	"github.com/mysocial-network/beacon/storage"
	"github.com/mysocial-network/beacon/utils/unittest"
)

func TestCompletedRounds_StoreAndRetrieve(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		store, err := NewCompletedRounds(db, 10)
		require.NoError(t, err)

		output := []byte{1, 2, 3}
		require.NoError(t, store.Store(2, 5, output))

		actual, err := store.ByRound(2, 5)
		require.NoError(t, err)
		assert.Equal(t, output, actual)

		// a fresh store reads from the database
		fresh, err := NewCompletedRounds(db, 10)
		require.NoError(t, err)
		actual, err = fresh.ByRound(2, 5)
		require.NoError(t, err)
		assert.Equal(t, output, actual)

		_, err = store.ByRound(2, 6)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestCompletedRounds_StoreTwice(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		store, err := NewCompletedRounds(db, 10)
		require.NoError(t, err)

		require.NoError(t, store.Store(1, 1, []byte{1}))
		require.NoError(t, store.Store(1, 1, []byte{1}))

		err = store.Store(1, 1, []byte{2})
		assert.True(t, errors.Is(err, storage.ErrDataMismatch))
	})
}

func TestCompletedRounds_HighestRound(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		store, err := NewCompletedRounds(db, 10)
		require.NoError(t, err)

		_, err = store.HighestRound(1)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		for _, round := range []uint64{3, 256, 1, 17} {
			require.NoError(t, store.Store(1, randomness.Round(round), []byte{byte(round)}))
		}
		require.NoError(t, store.Store(2, 1000, []byte{9}))
		require.NoError(t, store.Store(0, 2000, []byte{9}))

		highest, err := store.HighestRound(1)
		require.NoError(t, err)
		assert.EqualValues(t, 256, highest)

		highest, err = store.HighestRound(2)
		require.NoError(t, err)
		assert.EqualValues(t, 1000, highest)
	})
}

func TestCompletedRounds_RemoveEpochsBelow(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		store, err := NewCompletedRounds(db, 10)
		require.NoError(t, err)

		require.NoError(t, store.Store(1, 1, []byte{1}))
		require.NoError(t, store.Store(1, 2, []byte{2}))
		require.NoError(t, store.Store(2, 1, []byte{3}))
		require.NoError(t, store.Store(3, 1, []byte{4}))

		require.NoError(t, store.RemoveEpochsBelow(3))

		_, err = store.ByRound(1, 2)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = store.HighestRound(2)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		output, err := store.ByRound(3, 1)
		require.NoError(t, err)
		assert.Equal(t, []byte{4}, output)
	})
}

func TestCompletedRounds_LatestEpoch(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		store, err := NewCompletedRounds(db, 10)
		require.NoError(t, err)

		_, err = store.LatestEpoch()
		assert.ErrorIs(t, err, storage.ErrNotFound)

		require.NoError(t, store.SetLatestEpoch(4))
		require.NoError(t, store.SetLatestEpoch(5))

		epoch, err := store.LatestEpoch()
		require.NoError(t, err)
		assert.EqualValues(t, 5, epoch)
	})
}
