package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brandloom/brandloom/internal/app"
	"github.com/brandloom/brandloom/internal/config"
)

var (
	cleanupUser     string
	cleanupKeepDays int
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete aged, low-performing vectors",
	Long: `Cleanup removes vectors that are both older than the retention window
and below the performance threshold. Without --user it processes every
user with stored vectors.

Retention and threshold come from the vectorCleanup system configuration;
--keep-days overrides the retention window for single-user runs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCleanup()
	},
}

func init() {
	cleanupCmd.Flags().StringVar(&cleanupUser, "user", "", "clean a single user's vectors")
	cleanupCmd.Flags().IntVar(&cleanupKeepDays, "keep-days", 0, "retention override in days (requires --user, 0 = configured value)")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup() error {
	if cleanupKeepDays < 0 {
		return fmt.Errorf("--keep-days must not be negative, got %d", cleanupKeepDays)
	}
	if cleanupKeepDays > 0 && cleanupUser == "" {
		return fmt.Errorf("--keep-days requires --user")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	if cleanupUser != "" {
		deleted, err := a.Engine.CleanupOldVectors(ctx, cleanupUser, cleanupKeepDays)
		if err != nil {
			return fmt.Errorf("cleaning up vectors for %s: %w", cleanupUser, err)
		}
		fmt.Printf("Deleted %d vectors for user %s\n", deleted, cleanupUser)
		return nil
	}

	stats, err := a.Engine.CleanupAllUsersVectors(ctx)
	if err != nil {
		return fmt.Errorf("cleaning up vectors: %w", err)
	}
	fmt.Printf("Deleted %d vectors across %d users\n", stats.TotalCleaned, stats.UsersProcessed)
	return nil
}
