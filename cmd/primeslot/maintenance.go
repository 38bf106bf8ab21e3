package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/primeslot/primeslot/pkg/reconciler"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Repair member mirrors and reverse indexes in the local store",
	Long: `Run one reconciliation pass against the data directory. Every member
meeting mirror and event/member reverse entry is compared with the record
it is derived from and rewritten or removed when they disagree.

The server must not be running. Use --dry-run to only report.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		recon := reconciler.NewReconciler(store, nil, 0)
		var report *reconciler.Report
		if dryRun {
			report, err = recon.Check(cmd.Context())
		} else {
			report, err = recon.Reconcile(cmd.Context())
		}
		if err != nil {
			return err
		}

		printReport(report)
		return nil
	},
}

func printReport(r *reconciler.Report) {
	if r.DryRun {
		fmt.Println("Dry run, nothing was written")
	}
	fmt.Printf("Meetings scanned:  %d\n", r.MeetingsScanned)
	fmt.Printf("Mirrors rewritten: %d\n", r.MirrorsRewritten)
	fmt.Printf("Mirrors removed:   %d\n", r.MirrorsRemoved)
	fmt.Printf("Reverse restored:  %d\n", r.ReverseRestored)
	fmt.Printf("Reverse removed:   %d\n", r.ReverseRemoved)
	if r.Total() == 0 {
		fmt.Println("✓ Store is consistent")
	}
}

var exportCmd = &cobra.Command{
	Use:   "export -o FILE",
	Short: "Write a consistent copy of the database",
	Long: `Write a point-in-time copy of the whole database file. The copy can
be used as a backup or opened in place of the original data directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		f, err := os.OpenFile(out, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		n, err := store.Backup(cmd.Context(), f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(out)
			return fmt.Errorf("backup failed: %w", err)
		}

		fmt.Printf("✓ Wrote %d bytes to %s\n", n, out)
		return nil
	},
}

func init() {
	reconcileCmd.Flags().Bool("dry-run", false, "Report repairs without writing")

	exportCmd.Flags().StringP("output", "o", "", "Destination file (required, must not exist)")
	_ = exportCmd.MarkFlagRequired("output")
}
