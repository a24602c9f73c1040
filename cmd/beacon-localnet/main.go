package main

import (
	"github.com/mysocial-network/beacon/cmd/beacon-localnet/cmd"
)

func main() {
	cmd.Execute()
}
