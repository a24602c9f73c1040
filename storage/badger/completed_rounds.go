package badger

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mysocial-network/beacon/model/randomness"
	"github.com/mysocial-network/beacon/storage"
	"github.com/mysocial-network/beacon/storage/badger/operation"
)

// DefaultCacheSize is the number of recently stored or read rounds kept in memory.
const DefaultCacheSize = 1000

type roundKey struct {
	epoch randomness.Epoch
	round randomness.Round
}

// CompletedRounds implements storage.CompletedRounds on top of badger.
type CompletedRounds struct {
	db    *badger.DB
	cache *lru.Cache[roundKey, []byte]
}

var _ storage.CompletedRounds = (*CompletedRounds)(nil)

// NewCompletedRounds creates a completed round store with the given cache size.
func NewCompletedRounds(db *badger.DB, cacheSize int) (*CompletedRounds, error) {
	cache, err := lru.New[roundKey, []byte](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create completed round cache: %w", err)
	}
	return &CompletedRounds{
		db:    db,
		cache: cache,
	}, nil
}

func (c *CompletedRounds) Store(epoch randomness.Epoch, round randomness.Round, output []byte) error {
	err := c.db.Update(func(tx *badger.Txn) error {
		err := operation.InsertCompletedRound(epoch, round, output)(tx)
		if !errors.Is(err, storage.ErrAlreadyExists) {
			return err
		}
		var stored []byte
		err = operation.RetrieveCompletedRound(epoch, round, &stored)(tx)
		if err != nil {
			return fmt.Errorf("could not retrieve existing output: %w", err)
		}
		if !bytes.Equal(stored, output) {
			return fmt.Errorf("round %d of epoch %d already has a different output: %w", round, epoch, storage.ErrDataMismatch)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not store completed round: %w", err)
	}

	c.cache.Add(roundKey{epoch: epoch, round: round}, output)
	return nil
}

func (c *CompletedRounds) ByRound(epoch randomness.Epoch, round randomness.Round) ([]byte, error) {
	key := roundKey{epoch: epoch, round: round}
	if output, ok := c.cache.Get(key); ok {
		return output, nil
	}

	var output []byte
	err := c.db.View(operation.RetrieveCompletedRound(epoch, round, &output))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve completed round: %w", err)
	}
	c.cache.Add(key, output)
	return output, nil
}

func (c *CompletedRounds) HighestRound(epoch randomness.Epoch) (randomness.Round, error) {
	var round randomness.Round
	var found bool
	err := c.db.View(operation.FindHighestCompletedRound(epoch, &round, &found))
	if err != nil {
		return 0, fmt.Errorf("could not look up highest completed round: %w", err)
	}
	if !found {
		return 0, storage.ErrNotFound
	}
	return round, nil
}

func (c *CompletedRounds) RemoveEpochsBelow(epoch randomness.Epoch) error {
	var epochs []randomness.Epoch
	err := c.db.View(operation.ListCompletedEpochs(&epochs))
	if err != nil {
		return fmt.Errorf("could not list stored epochs: %w", err)
	}

	for _, stored := range epochs {
		if stored >= epoch {
			break
		}
		err := c.db.Update(operation.RemoveCompletedRounds(stored))
		if err != nil {
			return fmt.Errorf("could not remove rounds of epoch %d: %w", stored, err)
		}
	}

	for _, key := range c.cache.Keys() {
		if key.epoch < epoch {
			c.cache.Remove(key)
		}
	}
	return nil
}

// LatestEpoch returns the latest epoch recorded with SetLatestEpoch.
// Expected errors during normal operations:
//   - storage.ErrNotFound if no epoch has been recorded
func (c *CompletedRounds) LatestEpoch() (randomness.Epoch, error) {
	var epoch randomness.Epoch
	err := c.db.View(operation.RetrieveLatestEpoch(&epoch))
	if err != nil {
		return 0, fmt.Errorf("could not retrieve latest epoch: %w", err)
	}
	return epoch, nil
}

// SetLatestEpoch records the latest epoch for which the node produced randomness.
func (c *CompletedRounds) SetLatestEpoch(epoch randomness.Epoch) error {
	return c.db.Update(operation.UpdateLatestEpoch(epoch))
}
