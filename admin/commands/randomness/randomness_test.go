package randomness

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"

	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mysocial-network/beacon/admin"
	"github.com/mysocial-network/beacon/admin/commands/randomness/mock"
	"github.com/mysocial-network/beacon/model/randomness"
)

type RandomnessCommandsSuite struct {
	suite.Suite
	beacon *mock.Beacon
}

func TestRandomnessCommands(t *testing.T) {
	suite.Run(t, new(RandomnessCommandsSuite))
}

func (s *RandomnessCommandsSuite) SetupTest() {
	s.beacon = mock.NewBeacon(s.T())
}

func (s *RandomnessCommandsSuite) TestGetPartialSignatures() {
	cmd := NewGetPartialSignaturesCommand(s.beacon)
	sigs := [][]byte{{0x00, 0x01, 0xaa}, {0x00, 0x02, 0xbb}}
	s.beacon.On("AdminGetPartialSignatures", testifymock.Anything, randomness.Round(12)).Return(sigs, nil).Once()

	req := &admin.CommandRequest{Data: map[string]interface{}{"round": float64(12)}}
	s.Require().NoError(cmd.Validator(req))
	out, err := cmd.Handler(context.Background(), req)
	s.Require().NoError(err)
	s.Equal(map[string]interface{}{
		"round":              uint64(12),
		"partial_signatures": []string{"0001aa", "0002bb"},
	}, out)
}

func (s *RandomnessCommandsSuite) TestGetPartialSignatures_EngineError() {
	cmd := NewGetPartialSignaturesCommand(s.beacon)
	expected := errors.New("no DKG output")
	s.beacon.On("AdminGetPartialSignatures", testifymock.Anything, randomness.Round(1)).Return(nil, expected).Once()

	req := &admin.CommandRequest{Data: map[string]interface{}{"round": float64(1)}}
	s.Require().NoError(cmd.Validator(req))
	_, err := cmd.Handler(context.Background(), req)
	s.ErrorIs(err, expected)
}

func (s *RandomnessCommandsSuite) TestInvalidRound() {
	cmd := NewGetPartialSignaturesCommand(s.beacon)
	for _, data := range []interface{}{
		"12",
		map[string]interface{}{},
		map[string]interface{}{"round": "12"},
		map[string]interface{}{"round": float64(-1)},
		map[string]interface{}{"round": 1.5},
	} {
		err := cmd.Validator(&admin.CommandRequest{Data: data})
		s.True(admin.IsInvalidAdminParameterError(err), "data %v: %v", data, err)
	}
}

func (s *RandomnessCommandsSuite) TestInjectPartialSignatures() {
	cmd := NewInjectPartialSignaturesCommand(s.beacon)
	sig := []byte{0x00, 0x03, 0xcc}
	s.beacon.On("AdminInjectPartialSignatures", testifymock.Anything, randomness.AuthorityName("validator-3"), randomness.Round(7), [][]byte{sig}).
		Return(nil).Once()

	req := &admin.CommandRequest{Data: map[string]interface{}{
		"authority":  "validator-3",
		"round":      float64(7),
		"signatures": []interface{}{hex.EncodeToString(sig)},
	}}
	s.Require().NoError(cmd.Validator(req))
	out, err := cmd.Handler(context.Background(), req)
	s.Require().NoError(err)
	s.Equal("ok", out)
}

func (s *RandomnessCommandsSuite) TestInjectPartialSignatures_Invalid() {
	cmd := NewInjectPartialSignaturesCommand(s.beacon)
	for name, data := range map[string]interface{}{
		"missing authority": map[string]interface{}{"round": float64(1), "signatures": []interface{}{"aa"}},
		"missing sigs":      map[string]interface{}{"round": float64(1), "authority": "a"},
		"empty sigs":        map[string]interface{}{"round": float64(1), "authority": "a", "signatures": []interface{}{}},
		"bad hex":           map[string]interface{}{"round": float64(1), "authority": "a", "signatures": []interface{}{"zz"}},
		"not a string":      map[string]interface{}{"round": float64(1), "authority": "a", "signatures": []interface{}{float64(1)}},
	} {
		err := cmd.Validator(&admin.CommandRequest{Data: data})
		s.True(admin.IsInvalidAdminParameterError(err), "%s: %v", name, err)
	}
}

func (s *RandomnessCommandsSuite) TestInjectFullSignature() {
	cmd := NewInjectFullSignatureCommand(s.beacon)
	sig := []byte{0xde, 0xad, 0xbe, 0xef}
	expected := errors.New("invalid signatures")
	s.beacon.On("AdminInjectFullSignature", testifymock.Anything, randomness.Round(3), sig).Return(expected).Once()

	req := &admin.CommandRequest{Data: map[string]interface{}{"round": float64(3), "signature": "deadbeef"}}
	s.Require().NoError(cmd.Validator(req))
	_, err := cmd.Handler(context.Background(), req)
	s.ErrorIs(err, expected)

	err = cmd.Validator(&admin.CommandRequest{Data: map[string]interface{}{"round": float64(3)}})
	s.True(admin.IsInvalidAdminParameterError(err))
}

func TestParseHex(t *testing.T) {
	decoded, err := parseHex("sig", "0a0b")
	require.NoError(t, err)
	require.Equal(t, []byte{0x0a, 0x0b}, decoded)

	_, err = parseHex("sig", "")
	require.True(t, admin.IsInvalidAdminParameterError(err))
}
