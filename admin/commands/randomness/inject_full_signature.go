package randomness

import (
	"context"
	"fmt"

	"github.com/mysocial-network/beacon/admin"
	"github.com/mysocial-network/beacon/admin/commands"
	"github.com/mysocial-network/beacon/model/randomness"
)

var _ commands.AdminCommand = (*InjectFullSignatureCommand)(nil)

// InjectFullSignatureCommand completes a round of the current epoch with a full signature
// obtained out of band.
//
// Input: {"round": 12, "signature": "<hex>"}
type InjectFullSignatureCommand struct {
	beacon Beacon
}

type injectFullSignature struct {
	round randomness.Round
	sig   []byte
}

func NewInjectFullSignatureCommand(beacon Beacon) *InjectFullSignatureCommand {
	return &InjectFullSignatureCommand{beacon: beacon}
}

func (c *InjectFullSignatureCommand) Handler(ctx context.Context, req *admin.CommandRequest) (interface{}, error) {
	in := req.ValidatorData.(*injectFullSignature)
	if err := c.beacon.AdminInjectFullSignature(ctx, in.round, in.sig); err != nil {
		return nil, fmt.Errorf("could not inject full signature for round %d: %w", in.round, err)
	}
	return "ok", nil
}

func (c *InjectFullSignatureCommand) Validator(req *admin.CommandRequest) error {
	data, err := requestData(req)
	if err != nil {
		return err
	}
	round, err := parseRound(data)
	if err != nil {
		return err
	}
	sig, err := parseHex("signature", data["signature"])
	if err != nil {
		return err
	}
	req.ValidatorData = &injectFullSignature{round: round, sig: sig}
	return nil
}
