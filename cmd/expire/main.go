package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"foodshare_backend/internal/app/di"
	"foodshare_backend/internal/platform/config"
	"foodshare_backend/internal/platform/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "expire",
		Short: "Mark available food-waste listings older than a cutoff as expired",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, olderThan, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			logging.Setup("foodshare-expire", cfg.IsDevelopment())

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			uc, closeAll, err := di.NewListingUsecase(ctx, cfg)
			if err != nil {
				slog.Error("failed to open store", "error", err)
				return err
			}
			defer closeAll()

			n, err := uc.ExpireStale(ctx, olderThan)
			if err != nil {
				slog.Error("expire failed", "error", err)
				return err
			}
			slog.Info("expire ok", "expired", n, "older_than", olderThan.String())
			return nil
		},
	}

	cmd.Flags().Duration("older-than", 0, "age after which available listings expire (default LISTING_TTL, 72h)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall time limit for the run")
	return cmd
}

// loadSettings reads .env and the environment, then resolves --older-than.
// Without the flag the age comes from LISTING_TTL.
func loadSettings(cmd *cobra.Command) (*config.Config, time.Duration, error) {
	_ = godotenv.Load(".env")
	cfg := config.Load()

	olderThan := cfg.ListingTTL
	if cmd.Flags().Changed("older-than") {
		v, err := cmd.Flags().GetDuration("older-than")
		if err != nil {
			return nil, 0, err
		}
		olderThan = v
	}
	if olderThan <= 0 {
		return nil, 0, fmt.Errorf("--older-than must be positive, got %s", olderThan)
	}
	return cfg, olderThan, nil
}
