package module

import (
	"time"
)

// RandomnessMetrics records the progress of the random beacon.
// Implementations must be safe to call from the beacon's event loop only; they are
// not required to be concurrency-safe beyond what the underlying registry provides.
type RandomnessMetrics interface {
	// Epoch records the epoch the beacon currently produces randomness for.
	Epoch(epoch uint64)

	// RoundsPending records the number of requested rounds not yet completed.
	RoundsPending(count int)

	// ByzantinePeerIgnored is called whenever a peer is excluded for the rest of the epoch.
	ByzantinePeerIgnored()

	// RoundCompleted records the completion of a round. The completion sequence only
	// moves forward, completions of older rounds are ignored.
	RoundCompleted(round uint64)

	// RoundGenerationLatency records the time from requesting a round locally until its
	// full signature was obtained.
	RoundGenerationLatency(duration time.Duration)

	// RoundObservationLatency records the time from first observing signatures of a round that
	// was not yet requested locally until its full signature was obtained.
	RoundObservationLatency(duration time.Duration)

	// RoundStuck is called when a round exceeded its aggregation attempts.
	RoundStuck(round uint64)
}

// AdminMetrics tracks admin commands.
type AdminMetrics interface {
	// AdminCommandExecuted records the execution of an admin command and whether it succeeded.
	AdminCommandExecuted(command string, success bool)
}
