package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/api"
	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/dictionary"
	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/report"
)

var (
	whereFlags []string
	sampleN    int
	sampleSeed uint64
	showLimit  int
)

var generateCmd = &cobra.Command{
	Use:   "generate <table> <attribute>...",
	Short: "Generate dictionary entries and cache them",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := parseWhere(whereFlags)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		e, err := openEnv(ctx, true, 0)
		if err != nil {
			return err
		}
		defer e.Close()

		table, attrs := args[0], args[1:]
		return e.store.Update(ctx, table, func(d *dictionary.Dictionary) error {
			if err := d.BulkGenerate(ctx, attrs, filters); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.Summary(d))
			return nil
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show <table> [attribute]",
	Short: "Print a cached dictionary or one of its entries",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context(), false, 0)
		if err != nil {
			return err
		}
		defer e.Close()

		d, err := e.store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(args) == 1 {
			fmt.Fprintln(cmd.OutOrStdout(), report.Summary(d))
			return nil
		}
		entry, ok := d.Entry(args[1])
		if !ok {
			return fmt.Errorf("%w: %s.%s", dictionary.ErrUnknownAttribute, args[0], args[1])
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.Entry(entry, showLimit))
		return nil
	},
}

var sampleCmd = &cobra.Command{
	Use:   "sample <table> <attribute>",
	Short: "Draw values that follow a cached distribution",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context(), false, sampleSeed)
		if err != nil {
			return err
		}
		defer e.Close()

		d, err := e.store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		values, err := d.Sample(args[1], sampleN)
		if err != nil {
			return err
		}
		for _, v := range values {
			if v == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "NULL")
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve dictionaries over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx, true, 0)
		if err != nil {
			return err
		}
		defer e.Close()

		r := mux.NewRouter()
		api.RegisterRoutes(r, e.store, logger)

		srv := &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      r,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 150 * time.Second,
			IdleTimeout:  120 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdown)
		}()

		logger.Info("tabledict server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logger.Info("server stopped")
		return nil
	},
}

func init() {
	generateCmd.Flags().StringArrayVarP(&whereFlags, "where", "w", nil, "equality filter col=value (repeatable)")
	sampleCmd.Flags().IntVarP(&sampleN, "num", "n", 1, "number of values to draw")
	sampleCmd.Flags().Uint64Var(&sampleSeed, "seed", 0, "seed for reproducible draws (0 = random)")
	showCmd.Flags().IntVar(&showLimit, "limit", 50, "maximum value rows to print (0 = all)")
}

// parseWhere turns col=value pairs into filters. Values that parse as
// integers or floats are bound as numbers; wrap a value in single quotes to
// force a string.
func parseWhere(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filters := make(map[string]any, len(pairs))
	for _, p := range pairs {
		col, raw, ok := strings.Cut(p, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("%w: filter %q is not col=value", dictionary.ErrInvalidInput, p)
		}
		filters[strings.TrimSpace(col)] = parseScalar(strings.TrimSpace(raw))
	}
	return filters, nil
}

func parseScalar(raw string) any {
	if len(raw) >= 2 && strings.HasPrefix(raw, "'") && strings.HasSuffix(raw, "'") {
		return raw[1 : len(raw)-1]
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
