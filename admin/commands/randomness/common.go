package randomness

import (
	"context"
	"encoding/hex"
	"math"

	"github.com/mysocial-network/beacon/admin"
	"github.com/mysocial-network/beacon/model/randomness"
)

// Names under which the randomness commands are registered.
const (
	GetPartialSignaturesCommandName    = "randomness-get-partial-signatures"
	InjectPartialSignaturesCommandName = "randomness-inject-partial-signatures"
	InjectFullSignatureCommandName     = "randomness-inject-full-signature"
)

// Beacon is the admin surface of the randomness engine.
type Beacon interface {
	AdminGetPartialSignatures(ctx context.Context, round randomness.Round) ([][]byte, error)
	AdminInjectPartialSignatures(ctx context.Context, authority randomness.AuthorityName, round randomness.Round, sigs [][]byte) error
	AdminInjectFullSignature(ctx context.Context, round randomness.Round, sig []byte) error
}

func requestData(req *admin.CommandRequest) (map[string]interface{}, error) {
	data, ok := req.Data.(map[string]interface{})
	if !ok {
		return nil, admin.NewInvalidAdminReqFormatError("expected a JSON object, got %T", req.Data)
	}
	return data, nil
}

// parseRound reads the round field. JSON numbers are decoded as float64.
func parseRound(data map[string]interface{}) (randomness.Round, error) {
	raw, ok := data["round"]
	if !ok {
		return 0, admin.NewInvalidAdminReqParameterError("round", "must be provided", nil)
	}
	value, ok := raw.(float64)
	if !ok || value < 0 || value != math.Trunc(value) || value > math.MaxUint64 {
		return 0, admin.NewInvalidAdminReqParameterError("round", "must be a non-negative integer", raw)
	}
	return randomness.Round(value), nil
}

func parseHex(field string, raw interface{}) ([]byte, error) {
	str, ok := raw.(string)
	if !ok || str == "" {
		return nil, admin.NewInvalidAdminReqParameterError(field, "must be a non-empty hex string", raw)
	}
	decoded, err := hex.DecodeString(str)
	if err != nil {
		return nil, admin.NewInvalidAdminReqParameterError(field, "must be a non-empty hex string", raw)
	}
	return decoded, nil
}

func encodeHex(sigs [][]byte) []string {
	encoded := make([]string, 0, len(sigs))
	for _, sig := range sigs {
		encoded = append(encoded, hex.EncodeToString(sig))
	}
	return encoded
}
