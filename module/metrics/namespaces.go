package metrics

// Prometheus metric namespaces
const (
	namespaceRandomness = "randomness"
	namespaceAdmin      = "admin"
)

// Prometheus metric subsystems
const (
	subsystemCommands = "commands"
)

const (
	LabelCommand = "command"
	LabelResult  = "result"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)
