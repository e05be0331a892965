package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/oralvis/oralvis/internal/config"
	"github.com/oralvis/oralvis/internal/domain/scans"
	"github.com/oralvis/oralvis/internal/platform/sandbox"
)

func seedCmd() *cobra.Command {
	cfg := sandbox.DefaultSeedConfig()

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the configured stores with synthetic demo scans",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := config.Load()
			if err != nil {
				return err
			}
			if appCfg.IsProduction() {
				return fmt.Errorf("refusing to seed demo data in production")
			}
			ctx := cmd.Context()
			logger := newLogger(os.Stderr, appCfg.Env)

			repo, _, closeRepo, err := openRecordStore(ctx, appCfg, logger)
			if err != nil {
				return err
			}
			if closeRepo != nil {
				defer closeRepo()
			}
			objects, closeObjects, err := openObjectStore(ctx, appCfg)
			if err != nil {
				return err
			}
			if closeObjects != nil {
				defer closeObjects()
			}

			svc := scans.NewService(repo, objects, logger)
			result, err := sandbox.NewSeeder(cfg, svc, logger).Run(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Seeded %d scan(s) in %s.\n", result.Scans, result.Duration.Round(time.Millisecond))
			for _, status := range scans.Statuses {
				fmt.Fprintf(out, "  %-10s %d\n", status, result.ByStatus[status])
			}
			types := make([]string, 0, len(result.ByType))
			for t := range result.ByType {
				types = append(types, t)
			}
			sort.Strings(types)
			for _, t := range types {
				fmt.Fprintf(out, "  %-10s %d\n", scans.ScanTypeLabel(t), result.ByType[t])
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&cfg.ScanCount, "count", cfg.ScanCount, "Number of scans to create")
	f.StringSliceVar(&cfg.Technicians, "technicians", cfg.Technicians, "Uploader user ids, used round-robin")
	f.StringVar(&cfg.Reviewer, "reviewer", cfg.Reviewer, "Dentist user id that reviews seeded scans")
	f.Float64Var(&cfg.ReviewedShare, "reviewed-share", cfg.ReviewedShare, "Fraction of scans moved past pending (0-1)")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed (0 picks a time-based seed)")
	return cmd
}
