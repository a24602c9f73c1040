package cbor

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Encoder is a stream encoder writing one envelope per message as a CBOR byte string.
type Encoder struct {
	codec *Codec
	enc   *cbor.Encoder
}

// Encode writes the envelope of v to the stream.
func (e *Encoder) Encode(v interface{}) error {
	data, err := e.codec.Encode(v)
	if err != nil {
		return err
	}
	if err := e.enc.Encode(data); err != nil {
		return fmt.Errorf("could not write envelope: %w", err)
	}
	return nil
}
