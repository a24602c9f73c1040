package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "BEACON"

var (
	flagConfigFile string
	flagLogLevel   string
	log            zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "beacon-localnet",
	Short: "Run a local network of random beacon validators",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(cmd.Flags()); err != nil {
			return err
		}
		return initLogger()
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "path to a YAML config file, flags take precedence over its values")
	rootCmd.PersistentFlags().StringVarP(&flagLogLevel, "loglevel", "l", "info", "level for logging output")

	log = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
}

// initConfig reads the config file and environment and applies their values to every flag not
// set on the command line.
func initConfig(flags *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flagConfigFile != "" {
		v.SetConfigFile(flagConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("could not read config file %s: %w", flagConfigFile, err)
		}
	}

	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("could not bind flags: %w", err)
	}

	var applyErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if applyErr != nil || f.Changed || !v.IsSet(f.Name) {
			return
		}
		if err := flags.Set(f.Name, v.GetString(f.Name)); err != nil {
			applyErr = fmt.Errorf("invalid value for %s: %w", f.Name, err)
		}
	})
	return applyErr
}

func initLogger() error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(flagLogLevel))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", flagLogLevel, err)
	}
	log = log.Level(lvl)
	return nil
}
