package randomness

import (
	"context"
	"fmt"

	"github.com/mysocial-network/beacon/admin"
	"github.com/mysocial-network/beacon/admin/commands"
	"github.com/mysocial-network/beacon/model/randomness"
)

var _ commands.AdminCommand = (*GetPartialSignaturesCommand)(nil)

// GetPartialSignaturesCommand returns this node's partial signatures for a round of the current
// epoch, hex encoded.
//
// Input: {"round": 12}
type GetPartialSignaturesCommand struct {
	beacon Beacon
}

func NewGetPartialSignaturesCommand(beacon Beacon) *GetPartialSignaturesCommand {
	return &GetPartialSignaturesCommand{beacon: beacon}
}

func (c *GetPartialSignaturesCommand) Handler(ctx context.Context, req *admin.CommandRequest) (interface{}, error) {
	round := req.ValidatorData.(randomness.Round)
	sigs, err := c.beacon.AdminGetPartialSignatures(ctx, round)
	if err != nil {
		return nil, fmt.Errorf("could not get partial signatures of round %d: %w", round, err)
	}
	return map[string]interface{}{
		"round":              uint64(round),
		"partial_signatures": encodeHex(sigs),
	}, nil
}

func (c *GetPartialSignaturesCommand) Validator(req *admin.CommandRequest) error {
	data, err := requestData(req)
	if err != nil {
		return err
	}
	round, err := parseRound(data)
	if err != nil {
		return err
	}
	req.ValidatorData = round
	return nil
}
