package commands

import (
	"context"

	"github.com/mysocial-network/beacon/admin"
)

// AdminCommand is implemented by admin command handlers.
type AdminCommand interface {
	// Validator checks that the request data is well-formed. It may store parsed values in the
	// request's ValidatorData, which is passed on to Handler.
	// All errors indicate an invalid request.
	Validator(request *admin.CommandRequest) error
	// Handler executes the request and returns the value reported to the caller.
	// All errors indicate that the request could not be satisfied.
	Handler(ctx context.Context, request *admin.CommandRequest) (interface{}, error)
}

// Register adds the command to the bootstrapper under the given name.
// Returns false if the name is already taken.
func Register(bootstrapper *admin.CommandRunnerBootstrapper, name string, command AdminCommand) bool {
	if !bootstrapper.RegisterHandler(name, command.Handler) {
		return false
	}
	return bootstrapper.RegisterValidator(name, command.Validator)
}
