package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/primeslot/primeslot/pkg/log"
	"github.com/primeslot/primeslot/pkg/reconciler"
	"github.com/primeslot/primeslot/pkg/storage"
)

const dbFile = "primeslot.db"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "primeslot-migrate",
	Short: "Upgrade a primeslot database to the current record format",
	Long: `Rewrite legacy meeting records in place: status spellings such as
"scheduled" or "Canceled" become canonical lowercase values, missing
durations get the default length, and endTime is recomputed. Member
meeting mirrors and event/member reverse entries are then rebuilt.

The server must be stopped. A backup is written before any change.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runMigrate,
}

func init() {
	rootCmd.Flags().String("data-dir", "./data", "Primeslot data directory")
	rootCmd.Flags().Bool("dry-run", false, "Show what would be migrated without making changes")
	rootCmd.Flags().String("backup", "", "Backup path (default: <data-dir>/primeslot.db.<timestamp>.backup)")
	rootCmd.Flags().Int("default-duration", 30, "Duration in minutes for meetings without one")
	rootCmd.Flags().Bool("json", false, "Log as JSON")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	backupPath, _ := cmd.Flags().GetString("backup")
	defaultDur, _ := cmd.Flags().GetInt("default-duration")
	jsonOut, _ := cmd.Flags().GetBool("json")

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: jsonOut, Output: os.Stderr})
	logger := log.WithComponent("migrate")

	if defaultDur <= 0 {
		return fmt.Errorf("--default-duration must be positive")
	}
	dbPath := filepath.Join(dataDir, dbFile)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("database not found at %s", dbPath)
	}

	logger.Info().Str("database", dbPath).Bool("dry_run", dryRun).Msg("Starting migration")

	store, err := storage.Open(dbPath, storage.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	if !dryRun {
		if backupPath == "" {
			backupPath = fmt.Sprintf("%s.%s.backup", dbPath, time.Now().UTC().Format("20060102T150405Z"))
		}
		if err := backup(ctx, store, backupPath); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
		logger.Info().Str("path", backupPath).Msg("Backup created")
	}

	result, err := migrateMeetings(ctx, store, defaultDur, dryRun, logger)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info().
		Int("scanned", result.Scanned).
		Int("rewritten", result.Rewritten).
		Int("status_normalized", result.StatusNormalized).
		Int("duration_defaults", result.DurationDefaults).
		Int("end_time_fixed", result.EndTimeFixed).
		Int("unknown_status", result.Unknown).
		Msg("Meeting records")

	recon := reconciler.NewReconciler(store, nil, 0)
	var report *reconciler.Report
	if dryRun {
		// Mirrors are checked against the records as stored, so counts
		// for meetings that would be rewritten above are approximate.
		report, err = recon.Check(ctx)
	} else {
		report, err = recon.Reconcile(ctx)
	}
	if err != nil {
		return err
	}
	logger.Info().
		Int("mirrors_rewritten", report.MirrorsRewritten).
		Int("mirrors_removed", report.MirrorsRemoved).
		Int("reverse_restored", report.ReverseRestored).
		Int("reverse_removed", report.ReverseRemoved).
		Msg("Mirrors")

	if dryRun {
		logger.Info().Msg("Dry run completed. No changes made.")
	} else {
		logger.Info().Msg("Migration completed")
	}
	return nil
}

func backup(ctx context.Context, store *storage.BoltStore, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := store.Backup(ctx, f); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}
