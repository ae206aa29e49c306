package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/amp-labs/liminal/cli"
	"github.com/amp-labs/liminal/examples/assay"
	"github.com/amp-labs/liminal/logger"
	"github.com/amp-labs/liminal/redisstate"
	"github.com/amp-labs/liminal/shutdown"
	"github.com/amp-labs/liminal/statemachine"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrAborted is returned when the user declines a confirmation prompt.
	ErrAborted = errors.New("aborted")
	// ErrSamplesFailed is returned by batch when any sample did not settle.
	ErrSamplesFailed = errors.New("sample(s) failed")
)

type assayOptions struct {
	id       string
	sequence string
	redis    bool
	yes      bool
	parallel int
}

var assayOpts = assayOptions{parallel: 8} //nolint:gochecknoglobals

var assayCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "assay",
	Short: "Run the SARS-CoV-2 assay machine",
}

var assayRunCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "run",
	Short: "Submit one sample and print its verdict",
	Long: `run submits a single sequence sample. When --sequence is omitted the
sequence is read interactively. With --redis the sample's state is stored in
Redis (see REDIS_URL), so a second run for the same id reports the stored
verdict instead of re-testing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runAssay(cmd, cli.Stdio(), assayOpts)
	},
}

var assayBatchCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "batch SEQUENCE...",
	Short: "Submit several samples concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, args, assayOpts.parallel)
	},
}

var assayResetCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "reset",
	Short: "Delete a sample's stored state from Redis",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runReset(cmd, cli.Stdio(), assayOpts)
	},
}

func init() { //nolint:gochecknoinits
	run := assayRunCmd.Flags()
	run.StringVar(&assayOpts.id, "id", "", "sample id (default: random)")
	run.StringVarP(&assayOpts.sequence, "sequence", "s", "", "sequence data")
	run.BoolVar(&assayOpts.redis, "redis", false, "store the sample state in Redis")

	assayBatchCmd.Flags().IntVarP(&assayOpts.parallel, "parallel", "p", assayOpts.parallel, "samples in flight at once")

	reset := assayResetCmd.Flags()
	reset.StringVar(&assayOpts.id, "id", "", "sample id")
	reset.BoolVarP(&assayOpts.yes, "yes", "y", false, "do not ask for confirmation")
	_ = assayResetCmd.MarkFlagRequired("id")

	assayCmd.AddCommand(assayRunCmd, assayBatchCmd, assayResetCmd)
	rootCmd.AddCommand(assayCmd)
}

func runAssay(cmd *cobra.Command, term cli.Terminal, opts assayOptions) error {
	ctx := logger.WithSubsystem(cmd.Context(), "assay")

	if opts.id == "" {
		opts.id = uuid.NewString()
	}

	if opts.sequence == "" {
		seq, err := term.PromptSequence("Sequence")
		if err != nil {
			return err
		}

		opts.sequence = seq
	} else if err := cli.ValidateSequence(opts.sequence); err != nil {
		return err
	}

	table, err := assay.LoadTable()
	if err != nil {
		return err
	}

	engine := newEngine(table)

	var sample *assay.Assay

	if opts.redis {
		store, err := openStore(cmd, table)
		if err != nil {
			return err
		}

		sample = assay.NewWithInstance(engine, opts.id, store.Instance(opts.id))

		current, err := sample.State(ctx)
		if err != nil {
			return err
		}

		if assay.IsVerdict(current) {
			logger.Get(ctx).Info("sample already has a verdict", "id", opts.id, "state", current.Name())

			return printVerdict(cmd.OutOrStdout(), opts.id, current)
		}
	} else {
		sample = assay.New(engine, opts.id)
	}

	state, err := sample.Submit(ctx, cli.NormalizeSequence(opts.sequence))
	if err != nil {
		return fmt.Errorf("sample %s: %w", opts.id, err)
	}

	return printVerdict(cmd.OutOrStdout(), opts.id, state)
}

func runBatch(cmd *cobra.Command, sequences []string, parallel int) error {
	table, err := assay.LoadTable()
	if err != nil {
		return err
	}

	engine := newEngine(table)
	states := make([]statemachine.State, len(sequences))
	failures := make([]error, len(sequences))

	g, ctx := errgroup.WithContext(logger.WithSubsystem(cmd.Context(), "assay"))
	g.SetLimit(max(parallel, 1))

	for i, seq := range sequences {
		g.Go(func() error {
			id := fmt.Sprintf("sample-%d", i+1)

			if err := cli.ValidateSequence(seq); err != nil {
				failures[i] = err

				return nil
			}

			states[i], failures[i] = assay.New(engine, id).Submit(ctx, cli.NormalizeSequence(seq))

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0

	for i := range sequences {
		id := fmt.Sprintf("sample-%d", i+1)

		if failures[i] != nil {
			failed++

			_, _ = fmt.Fprintf(out, "%s\tfailed\t%v\n", id, failures[i])

			continue
		}

		_, _ = fmt.Fprintf(out, "%s\t%s\n", id, states[i].Name())
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrSamplesFailed, failed, len(sequences))
	}

	return nil
}

func runReset(cmd *cobra.Command, term cli.Terminal, opts assayOptions) error {
	if !opts.yes {
		ok, err := term.PromptConfirm(fmt.Sprintf("Delete stored state of sample %s", opts.id))
		if err != nil {
			return err
		}

		if !ok {
			return ErrAborted
		}
	}

	table, err := assay.LoadTable()
	if err != nil {
		return err
	}

	store, err := openStore(cmd, table)
	if err != nil {
		return err
	}

	if err := store.Delete(cmd.Context(), opts.id); err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "sample %s reset\n", opts.id)

	return err
}

// openStore connects to Redis and closes the client when the process
// shuts down.
func openStore(cmd *cobra.Command, table *statemachine.Table) (*redisstate.Store, error) {
	client, err := redisstate.Connect(cmd.Context(), appConfig.Redis)
	if err != nil {
		return nil, err
	}

	shutdown.BeforeShutdown("redis", func(context.Context) error {
		return client.Close()
	})

	return redisstate.NewStore(client, table, appConfig.Redis.KeyPrefix), nil
}

func printVerdict(out io.Writer, id string, state statemachine.State) error {
	_, err := fmt.Fprintln(out, cli.VerdictBanner(id, state.Name(), assay.IsVerdict(state), cli.TerminalWidth()))

	return err
}
