package cbor

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Decoder is a stream decoder reading envelopes written by Encoder.
type Decoder struct {
	codec *Codec
	dec   *cbor.Decoder
}

// Decode reads the next envelope from the stream and decodes its payload.
func (d *Decoder) Decode() (interface{}, error) {
	var data []byte
	if err := d.dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("could not read envelope: %w", err)
	}
	return d.codec.Decode(data)
}
