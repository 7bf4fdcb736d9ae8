// Regionstats serves per-region latency and uptime statistics computed from
// a fixed dataset of monitoring observations.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/kcz17/regionstats/config"
	"github.com/kcz17/regionstats/serving"
	"github.com/kcz17/regionstats/stats"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "regionstats",
		Short: "Per-region latency and uptime statistics",
		Long: `Regionstats answers queries for the average latency, p95 latency, average
uptime and threshold breach count of each requested region, computed over a
dataset of monitoring observations.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(
		&configPath,
		"config",
		"c",
		"",
		"Path to a YAML config file (default: config.yaml in . or /app)",
	)

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newAggregateCmd(&configPath),
		newValidateConfigCmd(&configPath),
	)
	return rootCmd
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the statistics API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ReadConfig(*configPath)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	svc, err := newService(cfg)
	if err != nil {
		return fmt.Errorf("could not start service: err = %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(*cfg.Server.Host, strconv.Itoa(*cfg.Server.Port))
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := svc.server.ListenAndServe(addr); err != nil {
			return fmt.Errorf("server stopped unexpectedly: err = %w", err)
		}
		return nil
	})
	// Shutdown runs on a signal or when the server fails, and makes
	// ListenAndServe return.
	g.Go(func() error {
		<-ctx.Done()
		log.Println("shutting down")
		return svc.Shutdown()
	})
	log.Printf("serving region statistics on %s\n", addr)

	return g.Wait()
}

func newAggregateCmd(configPath *string) *cobra.Command {
	var (
		regions   []string
		threshold float64
	)

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Print statistics for regions without starting the server",
		Example: `  regionstats aggregate --regions apac,emea --threshold 150
  regionstats aggregate -c config.yaml -r us-east -t 99.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ReadConfig(*configPath)
			if err != nil {
				return err
			}
			return aggregate(cmd.Context(), cfg, cmd.OutOrStdout(), regions, threshold)
		},
	}
	cmd.Flags().StringSliceVarP(&regions, "regions", "r", nil, "Comma-separated regions to aggregate")
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "Latency threshold in milliseconds")
	_ = cmd.MarkFlagRequired("regions")
	_ = cmd.MarkFlagRequired("threshold")
	return cmd
}

func aggregate(ctx context.Context, cfg *config.Config, out io.Writer, regions []string, threshold float64) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if regions == nil {
		regions = []string{}
	}

	loader, closer, err := newLoader(cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx, cancel := context.WithTimeout(ctx, *cfg.Dataset.LoadTimeout)
	defer cancel()
	records, err := loader.Load(ctx)
	if err != nil {
		return err
	}

	result, err := stats.Run(records, &stats.Query{Regions: regions, ThresholdMs: &threshold})
	if err != nil {
		return err
	}

	shape, err := serving.ParseResponseShape(*cfg.Server.ResponseShape)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(shape.Render(result, regions), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}

func newValidateConfigCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "Check the configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.ReadConfig(*configPath); err != nil {
				var ve *config.ValidationError
				if errors.As(err, &ve) {
					for _, msg := range ve.Errors {
						fmt.Fprintln(cmd.ErrOrStderr(), msg)
					}
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
