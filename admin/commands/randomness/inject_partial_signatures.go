package randomness

import (
	"context"
	"fmt"

	"github.com/mysocial-network/beacon/admin"
	"github.com/mysocial-network/beacon/admin/commands"
	"github.com/mysocial-network/beacon/model/randomness"
)

var _ commands.AdminCommand = (*InjectPartialSignaturesCommand)(nil)

// InjectPartialSignaturesCommand processes partial signatures of another authority as if they
// were received from it. Used to recover rounds when the authority is unreachable.
//
// Input: {"authority": "validator-3", "round": 12, "signatures": ["<hex>", ...]}
type InjectPartialSignaturesCommand struct {
	beacon Beacon
}

type injectPartialSignatures struct {
	authority randomness.AuthorityName
	round     randomness.Round
	sigs      [][]byte
}

func NewInjectPartialSignaturesCommand(beacon Beacon) *InjectPartialSignaturesCommand {
	return &InjectPartialSignaturesCommand{beacon: beacon}
}

func (c *InjectPartialSignaturesCommand) Handler(ctx context.Context, req *admin.CommandRequest) (interface{}, error) {
	in := req.ValidatorData.(*injectPartialSignatures)
	err := c.beacon.AdminInjectPartialSignatures(ctx, in.authority, in.round, in.sigs)
	if err != nil {
		return nil, fmt.Errorf("could not inject partial signatures of %s for round %d: %w", in.authority, in.round, err)
	}
	return "ok", nil
}

func (c *InjectPartialSignaturesCommand) Validator(req *admin.CommandRequest) error {
	data, err := requestData(req)
	if err != nil {
		return err
	}
	round, err := parseRound(data)
	if err != nil {
		return err
	}

	authority, ok := data["authority"].(string)
	if !ok || authority == "" {
		return admin.NewInvalidAdminReqParameterError("authority", "must be a non-empty string", data["authority"])
	}

	rawSigs, ok := data["signatures"].([]interface{})
	if !ok || len(rawSigs) == 0 {
		return admin.NewInvalidAdminReqParameterError("signatures", "must be a non-empty list of hex strings", data["signatures"])
	}
	sigs := make([][]byte, 0, len(rawSigs))
	for i, raw := range rawSigs {
		sig, err := parseHex(fmt.Sprintf("signatures[%d]", i), raw)
		if err != nil {
			return err
		}
		sigs = append(sigs, sig)
	}

	req.ValidatorData = &injectPartialSignatures{
		authority: randomness.AuthorityName(authority),
		round:     round,
		sigs:      sigs,
	}
	return nil
}
