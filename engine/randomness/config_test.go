package randomness

import (
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	config := DefaultConfig()
	config.MailboxCapacity = 0
	config.MaxIgnoredPeerWeightFactor = 2
	config.SendRetryMaxBackoff = config.SendRetryInitialBackoff / 2

	err := config.Validate()
	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 3)
}

func TestConfig_Options(t *testing.T) {
	config := DefaultConfig()
	for _, apply := range []OptionFunc{
		WithMailboxCapacity(10),
		WithMaxInflightRounds(3),
		WithSendRetryBackoff(time.Millisecond, time.Second),
		WithSendSignaturesRateLimit(0, 0),
	} {
		apply(config)
	}
	assert.Equal(t, 10, config.MailboxCapacity)
	assert.Equal(t, 3, config.MaxInflightRounds)
	assert.Equal(t, time.Millisecond, config.SendRetryInitialBackoff)
	assert.Equal(t, time.Second, config.SendRetryMaxBackoff)
	assert.Zero(t, config.SendSignaturesRateLimit)
	require.NoError(t, config.Validate())
}

func TestConfig_BindFlags(t *testing.T) {
	config := DefaultConfig()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.BindFlags(flags)

	err := flags.Parse([]string{
		"--randomness-max-inflight-rounds=7",
		"--randomness-send-timeout=3s",
		"--randomness-max-ignored-peer-weight=0.25",
	})
	require.NoError(t, err)
	assert.Equal(t, 7, config.MaxInflightRounds)
	assert.Equal(t, 3*time.Second, config.SendTimeout)
	assert.Equal(t, 0.25, config.MaxIgnoredPeerWeightFactor)
	assert.Equal(t, DefaultConfig().MailboxCapacity, config.MailboxCapacity)
}
