package randomness

import (
	"time"

	"github.com/libp2p/go-libp2p/core/protocol"
)

// ProtocolID is the libp2p protocol of the SendSignatures RPC.
const ProtocolID protocol.ID = "/mysocial/randomness/send-signatures/1.0.0"

const (
	// DefaultMaxMessageSize bounds the encoded size of a single request or response.
	DefaultMaxMessageSize = 1 << 20

	// DefaultStreamTimeout bounds a complete request/response exchange on one stream.
	DefaultStreamTimeout = 10 * time.Second
)
