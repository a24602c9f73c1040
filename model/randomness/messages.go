package randomness

// SendSignaturesRequest is the message validators exchange to produce the randomness of a round.
type SendSignaturesRequest struct {
	Epoch Epoch `cbor:"1,keyasint"`
	Round Round `cbor:"2,keyasint"`
	// PartialSigs holds the encoded partial signatures of the sender, ordered by share index.
	// They are kept as raw bytes so oversized requests can be rejected before decoding.
	PartialSigs [][]byte `cbor:"3,keyasint,omitempty"`
	// FullSig is set instead of PartialSigs when the sender already completed the round.
	FullSig []byte `cbor:"4,keyasint,omitempty"`
}

// SendSignaturesResponse is the reply to a SendSignaturesRequest.
// An empty Error means the request was accepted for processing.
type SendSignaturesResponse struct {
	Code  uint8  `cbor:"1,keyasint"`
	Error string `cbor:"2,keyasint,omitempty"`
}
