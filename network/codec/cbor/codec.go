package cbor

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/mysocial-network/beacon/network/codec"
)

// defaultDecMode limits nesting and collection sizes of decoded envelopes.
var defaultDecMode, _ = cbor.DecOptions{
	MaxNestedLevels:  8,
	MaxArrayElements: 1 << 16,
	MaxMapPairs:      1 << 8,
}.DecMode()

var defaultEncMode, _ = cbor.CanonicalEncOptions().EncMode()

// Codec encodes messages as an envelope of one code byte followed by the CBOR payload.
type Codec struct {
	encMode cbor.EncMode
	decMode cbor.DecMode
}

var _ codec.Codec = (*Codec)(nil)

func NewCodec() *Codec {
	return &Codec{
		encMode: defaultEncMode,
		decMode: defaultDecMode,
	}
}

// NewEncoder creates a new encoder writing to the given stream.
func (c *Codec) NewEncoder(w io.Writer) codec.Encoder {
	return &Encoder{codec: c, enc: c.encMode.NewEncoder(w)}
}

// NewDecoder creates a new decoder reading from the given stream.
func (c *Codec) NewDecoder(r io.Reader) codec.Decoder {
	return &Decoder{codec: c, dec: c.decMode.NewDecoder(r)}
}

// Encode returns the envelope of v.
func (c *Codec) Encode(v interface{}) ([]byte, error) {
	code, what, err := codec.MessageCodeFromInterface(v)
	if err != nil {
		return nil, fmt.Errorf("could not determine envelope code: %w", err)
	}
	payload, err := c.encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("could not encode CBOR payload of %s: %w", what, err)
	}
	data := make([]byte, 0, len(payload)+1)
	data = append(data, code)
	data = append(data, payload...)
	return data, nil
}

// Decode decodes an envelope produced by Encode.
// Expected errors during normal operations:
//   - codec.ErrInvalidEncoding if data is empty
//   - codec.ErrUnknownMsgCode if the code byte is unknown
//   - codec.ErrMsgUnmarshal if the payload does not match the code
func (c *Codec) Decode(data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty envelope: %w", codec.ErrInvalidEncoding)
	}
	code := data[0]
	v, what, err := codec.InterfaceFromMessageCode(code)
	if err != nil {
		return nil, err
	}
	if err := c.decMode.Unmarshal(data[1:], v); err != nil {
		return nil, codec.NewMsgUnmarshalErr(code, what, err)
	}
	return v, nil
}
