package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	beacon "github.com/mysocial-network/beacon/engine/randomness"
)

var (
	flagValidators    int
	flagWeights       []int
	flagThreshold     int
	flagSeed          string
	flagDataDir       string
	flagBasePort      int
	flagAdminAddr     string
	flagMetricsAddr   string
	flagRounds        uint64
	flagEpochRounds   uint64
	flagRoundInterval time.Duration

	engineConfig = beacon.DefaultConfig()
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the validators and produce randomness until interrupted or the round limit is reached",
	RunE:  runE,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunCmdFlags()
}

func addRunCmdFlags() {
	flags := runCmd.Flags()
	flags.IntVar(&flagValidators, "validators", 4, "number of validators")
	flags.IntSliceVar(&flagWeights, "weights", nil, "number of key shares of every validator, defaults to one share each")
	flags.IntVar(&flagThreshold, "threshold", 3, "number of key shares required to produce a round")
	flags.StringVar(&flagSeed, "seed", "beacon-localnet", "seed of the validator identities and key sharings, a restarted network must use the same seed")
	flags.StringVar(&flagDataDir, "datadir", "localnet-data", "directory of the validators' completed round databases")
	flags.IntVar(&flagBasePort, "base-port", 0, "TCP port of the first validator, consecutive ports are used for the others. 0 picks random ports")
	flags.StringVar(&flagAdminAddr, "admin-addr", "localhost:9002", "address of the admin server of the first validator, empty to disable")
	flags.StringVar(&flagMetricsAddr, "metrics-addr", "localhost:8080", "address of the prometheus metrics endpoint, empty to disable")
	flags.Uint64Var(&flagRounds, "rounds", 0, "number of rounds to produce before exiting, 0 runs until interrupted")
	flags.Uint64Var(&flagEpochRounds, "epoch-rounds", 0, "number of rounds per epoch, 0 keeps a single epoch")
	flags.DurationVar(&flagRoundInterval, "round-interval", time.Second, "delay between round requests")

	engineConfig.BindFlags(flags)
}

func runE(cmd *cobra.Command, _ []string) error {
	params, err := localnetParams()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return runLocalnet(ctx, params)
}

// localnetParams collects and validates the command line parameters.
func localnetParams() (LocalnetParams, error) {
	params := LocalnetParams{
		Weights:       flagWeights,
		Threshold:     flagThreshold,
		Seed:          flagSeed,
		DataDir:       flagDataDir,
		BasePort:      flagBasePort,
		AdminAddr:     flagAdminAddr,
		MetricsAddr:   flagMetricsAddr,
		Rounds:        flagRounds,
		EpochRounds:   flagEpochRounds,
		RoundInterval: flagRoundInterval,
		Engine:        engineConfig,
	}
	if len(params.Weights) == 0 {
		params.Weights = make([]int, flagValidators)
		for i := range params.Weights {
			params.Weights[i] = 1
		}
	}
	return params, params.Validate()
}

// LocalnetParams configures a local network.
type LocalnetParams struct {
	// Weights is the number of key shares of every validator.
	Weights   []int
	Threshold int
	Seed      string
	DataDir   string
	// BasePort is the port of the first validator; 0 picks random ports.
	BasePort    int
	AdminAddr   string
	MetricsAddr string
	// Rounds is the number of rounds to produce; 0 runs until the context is cancelled.
	Rounds uint64
	// EpochRounds is the number of rounds per epoch; 0 keeps a single epoch.
	EpochRounds   uint64
	RoundInterval time.Duration
	Engine        *beacon.Config
}

func (p LocalnetParams) Validate() error {
	var errs *multierror.Error
	if len(p.Weights) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("at least one validator is required"))
	}
	total := 0
	for i, w := range p.Weights {
		if w <= 0 {
			errs = multierror.Append(errs, fmt.Errorf("validator %d has non-positive weight %d", i, w))
		}
		total += w
	}
	if p.Threshold <= 0 || p.Threshold > total {
		errs = multierror.Append(errs, fmt.Errorf("threshold %d out of range for %d shares", p.Threshold, total))
	}
	if p.Seed == "" {
		errs = multierror.Append(errs, fmt.Errorf("seed must not be empty"))
	}
	if p.DataDir == "" {
		errs = multierror.Append(errs, fmt.Errorf("data directory must not be empty"))
	}
	if p.RoundInterval <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("round interval must be positive"))
	}
	if p.Engine == nil {
		errs = multierror.Append(errs, fmt.Errorf("missing engine config"))
	} else if err := p.Engine.Validate(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}
