package codec

import (
	"fmt"

	"github.com/mysocial-network/beacon/model/randomness"
)

// Message codes prefix every encoded envelope and identify the payload type.
const (
	CodeMin uint8 = iota + 1

	// random beacon
	CodeSendSignaturesRequest
	CodeSendSignaturesResponse

	CodeMax
)

// MessageCodeFromInterface returns the code of the given message.
func MessageCodeFromInterface(v interface{}) (uint8, string, error) {
	switch v.(type) {
	case *randomness.SendSignaturesRequest:
		return CodeSendSignaturesRequest, "CodeSendSignaturesRequest", nil
	case *randomness.SendSignaturesResponse:
		return CodeSendSignaturesResponse, "CodeSendSignaturesResponse", nil
	default:
		return 0, "", fmt.Errorf("invalid encode type (%T)", v)
	}
}

// InterfaceFromMessageCode returns an empty message of the type identified by code.
func InterfaceFromMessageCode(code uint8) (interface{}, string, error) {
	switch code {
	case CodeSendSignaturesRequest:
		return &randomness.SendSignaturesRequest{}, "CodeSendSignaturesRequest", nil
	case CodeSendSignaturesResponse:
		return &randomness.SendSignaturesResponse{}, "CodeSendSignaturesResponse", nil
	default:
		return nil, "", NewUnknownMsgCodeErr(code)
	}
}
