package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/mysocial-network/beacon/module"
	"github.com/mysocial-network/beacon/module/component"
	"github.com/mysocial-network/beacon/module/irrecoverable"
	"github.com/mysocial-network/beacon/module/metrics"
)

const (
	// RunCommandPath is the HTTP endpoint admin commands are posted to.
	RunCommandPath = "/admin/run_command"

	defaultCommandTimeout  = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	maxRequestBodySize     = 1 << 20
)

// CommandRequest is an admin request passed to the validator and handler of a command.
type CommandRequest struct {
	// Data is the decoded JSON payload of the request.
	Data interface{}
	// ValidatorData may be set by the validator and is passed on to the handler.
	ValidatorData interface{}
}

// CommandHandler executes an admin command and returns the value reported to the caller.
type CommandHandler func(ctx context.Context, request *CommandRequest) (interface{}, error)

// CommandValidator checks an admin request before it is handled. All errors reject the request.
type CommandValidator func(request *CommandRequest) error

// CommandRunnerOption configures a CommandRunner.
type CommandRunnerOption func(*CommandRunner)

// WithMetrics sets the collector of executed commands.
func WithMetrics(collector module.AdminMetrics) CommandRunnerOption {
	return func(r *CommandRunner) {
		r.metrics = collector
	}
}

// WithCommandTimeout bounds the execution time of a single command.
func WithCommandTimeout(timeout time.Duration) CommandRunnerOption {
	return func(r *CommandRunner) {
		r.timeout = timeout
	}
}

// CommandRunnerBootstrapper collects the commands of a node before the runner is created.
type CommandRunnerBootstrapper struct {
	handlers   map[string]CommandHandler
	validators map[string]CommandValidator
}

func NewCommandRunnerBootstrapper() *CommandRunnerBootstrapper {
	return &CommandRunnerBootstrapper{
		handlers:   make(map[string]CommandHandler),
		validators: make(map[string]CommandValidator),
	}
}

// RegisterHandler registers the handler of a command. Returns false if the command already has one.
func (r *CommandRunnerBootstrapper) RegisterHandler(command string, handler CommandHandler) bool {
	if _, ok := r.handlers[command]; ok {
		return false
	}
	r.handlers[command] = handler
	return true
}

// RegisterValidator registers the validator of a command. Returns false if the command already has one.
func (r *CommandRunnerBootstrapper) RegisterValidator(command string, validator CommandValidator) bool {
	if _, ok := r.validators[command]; ok {
		return false
	}
	r.validators[command] = validator
	return true
}

// Bootstrap creates the runner serving the registered commands on the given address.
func (r *CommandRunnerBootstrapper) Bootstrap(log zerolog.Logger, address string, opts ...CommandRunnerOption) *CommandRunner {
	runner := &CommandRunner{
		log:        log.With().Str("admin", "command_runner").Logger(),
		address:    address,
		handlers:   r.handlers,
		validators: r.validators,
		metrics:    metrics.NewNoopCollector(),
		timeout:    defaultCommandTimeout,
	}
	for _, apply := range opts {
		apply(runner)
	}

	runner.ComponentManager = component.NewComponentManagerBuilder().
		AddWorker(runner.serve).
		Build()
	return runner
}

// CommandRunner serves admin commands over HTTP. A command is run by posting
// {"commandName": <name>, "data": <payload>} to RunCommandPath.
type CommandRunner struct {
	*component.ComponentManager
	log        zerolog.Logger
	address    string
	handlers   map[string]CommandHandler
	validators map[string]CommandValidator
	metrics    module.AdminMetrics
	timeout    time.Duration

	mu       sync.RWMutex
	listener net.Listener
}

type runCommandRequest struct {
	CommandName string      `json:"commandName"`
	Data        interface{} `json:"data"`
}

type runCommandResponse struct {
	Output interface{} `json:"output,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Addr returns the address the runner listens on, or nil before the runner is ready.
func (r *CommandRunner) Addr() net.Addr {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

func (r *CommandRunner) serve(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	listener, err := net.Listen("tcp", r.address)
	if err != nil {
		ctx.Throw(fmt.Errorf("could not listen on admin address %s: %w", r.address, err))
		return
	}
	r.mu.Lock()
	r.listener = listener
	r.mu.Unlock()

	router := mux.NewRouter()
	router.Use(loggingMiddleware(r.log))
	router.Methods(http.MethodPost).Path(RunCommandPath).HandlerFunc(r.handleRunCommand)

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()
	r.log.Info().Str("address", listener.Addr().String()).Msg("admin command runner started")
	ready()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			r.log.Warn().Err(err).Msg("admin server did not shut down cleanly")
		}
		<-serveErr
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			ctx.Throw(fmt.Errorf("admin server failed: %w", err))
		}
	}
}

func (r *CommandRunner) handleRunCommand(w http.ResponseWriter, req *http.Request) {
	var body runCommandRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxRequestBodySize))
	if err := decoder.Decode(&body); err != nil {
		writeResponse(w, http.StatusBadRequest, runCommandResponse{Error: fmt.Sprintf("could not decode request: %v", err)})
		return
	}

	output, err := r.runCommand(req.Context(), body.CommandName, body.Data)
	switch {
	case err == nil:
		writeResponse(w, http.StatusOK, runCommandResponse{Output: output})
	case errors.Is(err, ErrCommandNotFound):
		writeResponse(w, http.StatusNotFound, runCommandResponse{Error: err.Error()})
	case IsInvalidAdminParameterError(err):
		writeResponse(w, http.StatusBadRequest, runCommandResponse{Error: err.Error()})
	default:
		writeResponse(w, http.StatusInternalServerError, runCommandResponse{Error: err.Error()})
	}
}

// runCommand validates and executes a single command.
func (r *CommandRunner) runCommand(ctx context.Context, command string, data interface{}) (interface{}, error) {
	log := r.log.With().Str("command", command).Logger()

	handler, ok := r.handlers[command]
	if !ok {
		return nil, fmt.Errorf("%q: %w", command, ErrCommandNotFound)
	}

	request := &CommandRequest{Data: data}
	if validator, ok := r.validators[command]; ok {
		if err := validator(request); err != nil {
			log.Info().Err(err).Msg("admin request rejected")
			r.metrics.AdminCommandExecuted(command, false)
			if !IsInvalidAdminParameterError(err) {
				err = NewInvalidAdminReqErrorf("%w", err)
			}
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	output, err := handler(ctx, request)
	r.metrics.AdminCommandExecuted(command, err == nil)
	if err != nil {
		log.Warn().Err(err).Msg("admin command failed")
		return nil, err
	}
	log.Info().Msg("admin command executed")
	return output, nil
}

func writeResponse(w http.ResponseWriter, status int, resp runCommandResponse) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
