package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysocial-network/beacon/utils/unittest"
)

func TestInitConfig(t *testing.T) {
	unittest.RunWithTempDir(t, func(dir string) {
		path := filepath.Join(dir, "localnet.yaml")
		config := "threshold: 5\nseed: from-file\nround-interval: 3s\n"
		require.NoError(t, os.WriteFile(path, []byte(config), 0o600))
		t.Setenv("BEACON_ROUNDS", "7")

		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		threshold := flags.Int("threshold", 3, "")
		seed := flags.String("seed", "default", "")
		rounds := flags.Uint64("rounds", 0, "")
		interval := flags.Duration("round-interval", time.Second, "")
		validators := flags.Int("validators", 4, "")
		require.NoError(t, flags.Parse([]string{"--seed", "from-flag"}))

		previous := flagConfigFile
		flagConfigFile = path
		defer func() { flagConfigFile = previous }()

		require.NoError(t, initConfig(flags))
		assert.Equal(t, 5, *threshold)
		assert.Equal(t, "from-flag", *seed)
		assert.EqualValues(t, 7, *rounds)
		assert.Equal(t, 3*time.Second, *interval)
		assert.Equal(t, 4, *validators)
	})
}

func TestInitConfig_InvalidValue(t *testing.T) {
	t.Setenv("BEACON_VALIDATORS", "many")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("validators", 4, "")

	err := initConfig(flags)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validators")
}
