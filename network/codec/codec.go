package codec

import (
	"io"
)

// Codec encodes and decodes messages exchanged between peers.
type Codec interface {
	NewEncoder(w io.Writer) Encoder
	NewDecoder(r io.Reader) Decoder
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte) (interface{}, error)
}

// Encoder encodes messages onto a stream.
type Encoder interface {
	Encode(v interface{}) error
}

// Decoder decodes messages from a stream.
type Decoder interface {
	Decode() (interface{}, error)
}
