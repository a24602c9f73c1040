package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	beacon "github.com/mysocial-network/beacon/engine/randomness"
	"github.com/mysocial-network/beacon/model/randomness"
	"github.com/mysocial-network/beacon/storage"
	storagebadger "github.com/mysocial-network/beacon/storage/badger"
	"github.com/mysocial-network/beacon/utils/unittest"
)

func TestMain(m *testing.M) {
	log = unittest.Logger()
	os.Exit(m.Run())
}

func testParams(dir string) LocalnetParams {
	return LocalnetParams{
		Weights:       []int{1, 1, 1},
		Threshold:     2,
		Seed:          "test",
		DataDir:       dir,
		RoundInterval: 50 * time.Millisecond,
		Engine:        beacon.DefaultConfig(),
	}
}

func runWithTimeout(t *testing.T, params LocalnetParams) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, runLocalnet(ctx, params))
	require.NoError(t, ctx.Err(), "local network did not reach the round limit")
}

// withStore opens the completed round store of a validator of a stopped network.
func withStore(t *testing.T, dir string, index int, f func(*storagebadger.CompletedRounds)) {
	db := unittest.BadgerDB(t, filepath.Join(dir, string(authorityName(index))))
	defer db.Close()
	store, err := storagebadger.NewCompletedRounds(db, 10)
	require.NoError(t, err)
	f(store)
}

func TestLocalnet_ProducesAndRecoversRounds(t *testing.T) {
	unittest.RunWithTempDir(t, func(dir string) {
		params := testParams(dir)
		params.Rounds = 3
		runWithTimeout(t, params)

		outputs := make([][]byte, 3)
		for i := range params.Weights {
			withStore(t, dir, i, func(store *storagebadger.CompletedRounds) {
				highest, err := store.HighestRound(firstEpoch)
				require.NoError(t, err)
				assert.EqualValues(t, 2, highest)

				outputs[i], err = store.ByRound(firstEpoch, 2)
				require.NoError(t, err)
			})
		}
		// every validator derived the same randomness
		assert.Equal(t, outputs[0], outputs[1])
		assert.Equal(t, outputs[0], outputs[2])

		// a restarted network resumes after the stored rounds
		params.Rounds = 2
		runWithTimeout(t, params)

		withStore(t, dir, 0, func(store *storagebadger.CompletedRounds) {
			highest, err := store.HighestRound(firstEpoch)
			require.NoError(t, err)
			assert.EqualValues(t, 4, highest)

			// the keys are dealt from the seed, so the stored round is unchanged
			output, err := store.ByRound(firstEpoch, 2)
			require.NoError(t, err)
			assert.Equal(t, outputs[0], output)
		})
	})
}

func TestLocalnet_EpochChange(t *testing.T) {
	unittest.RunWithTempDir(t, func(dir string) {
		params := testParams(dir)
		params.Rounds = 5
		params.EpochRounds = 2
		runWithTimeout(t, params)

		withStore(t, dir, 1, func(store *storagebadger.CompletedRounds) {
			epoch, err := store.LatestEpoch()
			require.NoError(t, err)
			assert.EqualValues(t, 3, epoch)

			highest, err := store.HighestRound(3)
			require.NoError(t, err)
			assert.EqualValues(t, 0, highest)

			// rounds of past epochs are pruned
			_, err = store.HighestRound(firstEpoch)
			assert.ErrorIs(t, err, storage.ErrNotFound)
		})
	})
}

func TestLocalnetParams_Validate(t *testing.T) {
	params := testParams("data")
	require.NoError(t, params.Validate())

	params.Weights = []int{1, 0}
	params.Threshold = 5
	params.Seed = ""
	params.RoundInterval = 0
	err := params.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-positive weight")
	assert.Contains(t, err.Error(), "threshold 5 out of range")
	assert.Contains(t, err.Error(), "seed")
	assert.Contains(t, err.Error(), "round interval")
}

func TestProgressTracker(t *testing.T) {
	tracker := newProgressTracker(2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var waitErr error
	reached := make(chan struct{})
	go func() {
		waitErr = tracker.waitFor(ctx, 1, 3)
		close(reached)
	}()

	tracker.observe(0, randomness.Output{Epoch: 1, Round: 5})
	tracker.observe(1, randomness.Output{Epoch: 1, Round: 2})
	unittest.RequireNeverClosedWithin(t, reached, 100*time.Millisecond, "waitFor returned before all nodes reached the round")

	// an older round never lowers the mark
	tracker.observe(0, randomness.Output{Epoch: 1, Round: 1})
	tracker.observe(1, randomness.Output{Epoch: 2, Round: 0})
	unittest.RequireCloseBefore(t, reached, time.Second, "waitFor did not return")
	require.NoError(t, waitErr)

	cancel()
	require.ErrorIs(t, tracker.waitFor(ctx, 9, 9), context.Canceled)
}
