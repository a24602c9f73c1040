package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mysocial-network/beacon/module/irrecoverable"
	"github.com/mysocial-network/beacon/module/mock"
	"github.com/mysocial-network/beacon/utils/unittest"
)

type CommandRunnerSuite struct {
	suite.Suite
	bootstrapper *CommandRunnerBootstrapper
	metrics      *mock.AdminMetrics
	runner       *CommandRunner
	cancel       context.CancelFunc
}

func TestCommandRunner(t *testing.T) {
	suite.Run(t, new(CommandRunnerSuite))
}

func (s *CommandRunnerSuite) SetupTest() {
	s.bootstrapper = NewCommandRunnerBootstrapper()
	s.metrics = mock.NewAdminMetrics(s.T())
}

func (s *CommandRunnerSuite) TearDownTest() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	unittest.RequireCloseBefore(s.T(), s.runner.Done(), 5*time.Second, "runner did not stop")
	s.cancel = nil
}

func (s *CommandRunnerSuite) start() {
	s.runner = s.bootstrapper.Bootstrap(unittest.Logger(), "127.0.0.1:0", WithMetrics(s.metrics))
	ctx, cancel := irrecoverable.NewMockSignalerContextWithCancel(s.T(), context.Background())
	s.cancel = cancel
	s.runner.Start(ctx)
	unittest.RequireCloseBefore(s.T(), s.runner.Ready(), 5*time.Second, "runner did not start")
}

func (s *CommandRunnerSuite) post(command string, data interface{}) (int, runCommandResponse) {
	body, err := json.Marshal(runCommandRequest{CommandName: command, Data: data})
	s.Require().NoError(err)

	url := fmt.Sprintf("http://%s%s", s.runner.Addr(), RunCommandPath)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	var out runCommandResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (s *CommandRunnerSuite) TestHandler() {
	called := false
	s.Require().True(s.bootstrapper.RegisterHandler("echo", func(ctx context.Context, req *CommandRequest) (interface{}, error) {
		called = true
		return req.ValidatorData, nil
	}))
	s.Require().True(s.bootstrapper.RegisterValidator("echo", func(req *CommandRequest) error {
		req.ValidatorData = req.Data
		return nil
	}))
	s.metrics.On("AdminCommandExecuted", "echo", true).Once()
	s.start()

	status, out := s.post("echo", map[string]interface{}{"round": float64(3)})
	s.Equal(http.StatusOK, status)
	s.Equal(map[string]interface{}{"round": float64(3)}, out.Output)
	s.True(called)
}

func (s *CommandRunnerSuite) TestDuplicateRegistration() {
	handler := func(ctx context.Context, req *CommandRequest) (interface{}, error) { return nil, nil }
	s.True(s.bootstrapper.RegisterHandler("cmd", handler))
	s.False(s.bootstrapper.RegisterHandler("cmd", handler))
}

func (s *CommandRunnerSuite) TestUnknownCommand() {
	s.start()
	status, out := s.post("missing", nil)
	s.Equal(http.StatusNotFound, status)
	s.Contains(out.Error, "missing")
}

func (s *CommandRunnerSuite) TestValidatorRejects() {
	s.bootstrapper.RegisterHandler("cmd", func(ctx context.Context, req *CommandRequest) (interface{}, error) {
		s.Fail("handler must not be called")
		return nil, nil
	})
	s.bootstrapper.RegisterValidator("cmd", func(req *CommandRequest) error {
		return errors.New("bad input")
	})
	s.metrics.On("AdminCommandExecuted", "cmd", false).Once()
	s.start()

	status, out := s.post("cmd", "x")
	s.Equal(http.StatusBadRequest, status)
	s.Contains(out.Error, "bad input")
}

func (s *CommandRunnerSuite) TestHandlerFails() {
	s.bootstrapper.RegisterHandler("cmd", func(ctx context.Context, req *CommandRequest) (interface{}, error) {
		return nil, errors.New("boom")
	})
	s.metrics.On("AdminCommandExecuted", "cmd", false).Once()
	s.start()

	status, out := s.post("cmd", nil)
	s.Equal(http.StatusInternalServerError, status)
	s.Equal("boom", out.Error)
}

func (s *CommandRunnerSuite) TestMalformedBody() {
	s.start()
	url := fmt.Sprintf("http://%s%s", s.runner.Addr(), RunCommandPath)
	resp, err := http.Post(url, "application/json", bytes.NewReader([]byte("{")))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestInvalidAdminReqError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewInvalidAdminReqParameterError("round", "must be positive", -1))
	require.True(t, IsInvalidAdminParameterError(err))
	require.Contains(t, err.Error(), "'round'")
	require.False(t, IsInvalidAdminParameterError(errors.New("other")))
}
