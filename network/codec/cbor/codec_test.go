package cbor_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysocial-network/beacon/model/randomness"
	"github.com/mysocial-network/beacon/network/codec"
	"github.com/mysocial-network/beacon/network/codec/cbor"
)

func TestCodec_StreamRoundTrip(t *testing.T) {
	c := cbor.NewCodec()
	var buf bytes.Buffer

	req := &randomness.SendSignaturesRequest{
		Epoch:       3,
		Round:       5,
		PartialSigs: [][]byte{{0, 1, 2}, {0, 2, 3}},
	}
	resp := &randomness.SendSignaturesResponse{Code: 1, Error: "unavailable"}

	enc := c.NewEncoder(&buf)
	require.NoError(t, enc.Encode(req))
	require.NoError(t, enc.Encode(resp))

	dec := c.NewDecoder(&buf)
	v, err := dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, req, v)

	v, err = dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, resp, v)
}

func TestCodec_FullSignatureOnly(t *testing.T) {
	c := cbor.NewCodec()
	data, err := c.Encode(&randomness.SendSignaturesRequest{Epoch: 1, Round: 2, FullSig: []byte{9, 9}})
	require.NoError(t, err)
	assert.Equal(t, codec.CodeSendSignaturesRequest, data[0])

	v, err := c.Decode(data)
	require.NoError(t, err)
	req := v.(*randomness.SendSignaturesRequest)
	assert.Nil(t, req.PartialSigs)
	assert.Equal(t, []byte{9, 9}, req.FullSig)
}

func TestCodec_InvalidEnvelopes(t *testing.T) {
	c := cbor.NewCodec()

	_, err := c.Decode(nil)
	assert.ErrorIs(t, err, codec.ErrInvalidEncoding)

	_, err = c.Decode([]byte{codec.CodeMax})
	assert.True(t, codec.IsErrUnknownMsgCode(err))

	_, err = c.Decode([]byte{codec.CodeSendSignaturesRequest, 0xff, 0x00})
	assert.True(t, codec.IsErrMsgUnmarshal(err))

	_, err = c.Encode(struct{}{})
	assert.Error(t, err)
}
