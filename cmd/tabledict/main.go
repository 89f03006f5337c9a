package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/config"
	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/dictionary"
	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/dictstore"
	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/logging"
	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/rowsource"
	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/sampler"
	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/storage"
)

var (
	configPath string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tabledict",
	Short: "Build and sample per-column value dictionaries",
	Long: `tabledict profiles table columns into value/count dictionaries, caches them
and draws random values that follow the observed frequencies.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "tabledict.yaml", "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(generateCmd, showCmd, sampleCmd, serveCmd)
}

// env bundles the open connections a command works with.
type env struct {
	store   *dictstore.Store
	closers []io.Closer
}

func (e *env) Close() {
	for _, c := range e.closers {
		_ = c.Close()
	}
}

// openEnv connects the blob store and, when withSource is set, the row
// source. seed > 0 makes sampling reproducible.
func openEnv(ctx context.Context, withSource bool, seed uint64) (*env, error) {
	e := &env{}
	blobs, closer, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, closer)

	opts := []dictionary.Option{dictionary.WithLogger(logger)}
	if seed > 0 {
		opts = append(opts, dictionary.WithRandomSource(sampler.NewSeeded(seed)))
	}
	if withSource {
		src, closer, err := rowsource.Open(cfg.Source)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.closers = append(e.closers, closer)
		opts = append(opts, dictionary.WithRowSource(src))
	}

	e.store = dictstore.New(blobs,
		dictstore.WithNamespace(cfg.Storage.Namespace),
		dictstore.WithSuffix(cfg.Storage.Suffix),
		dictstore.WithCompression(cfg.Storage.Compress),
		dictstore.WithDictionaryOptions(opts...),
		dictstore.WithLogger(logger),
	)
	return e, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
