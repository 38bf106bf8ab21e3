package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/primeslot/primeslot/pkg/availability"
	"github.com/primeslot/primeslot/pkg/client"
	"github.com/primeslot/primeslot/pkg/interval"
	"github.com/primeslot/primeslot/pkg/types"
)

const remoteTimeout = 30 * time.Second

// addRemoteFlags registers the flags every command that talks to a
// running server shares
func addRemoteFlags(cmd *cobra.Command) {
	cmd.Flags().String("server", "http://localhost:8080", "Primeslot server URL")
	cmd.Flags().String("token", "", "Member bearer token (env PRIMESLOT_TOKEN)")
	cmd.Flags().String("email", "", "Admin email (env PRIMESLOT_ADMIN_EMAIL)")
	cmd.Flags().String("password", "", "Admin password (env PRIMESLOT_ADMIN_PASSWORD)")
}

// connect builds a client and opens an admin session when admin
// credentials are given
func connect(ctx context.Context, cmd *cobra.Command) (*client.Client, error) {
	server, _ := cmd.Flags().GetString("server")
	token := flagOrEnv(cmd, "token", "PRIMESLOT_TOKEN")
	email := flagOrEnv(cmd, "email", "PRIMESLOT_ADMIN_EMAIL")
	password := flagOrEnv(cmd, "password", "PRIMESLOT_ADMIN_PASSWORD")

	var opts []client.Option
	if token != "" {
		opts = append(opts, client.WithToken(token))
	}
	c, err := client.New(server, opts...)
	if err != nil {
		return nil, err
	}
	if email != "" {
		if err := c.AdminLogin(ctx, email, password); err != nil {
			return nil, fmt.Errorf("admin login failed: %w", err)
		}
	}
	return c, nil
}

func flagOrEnv(cmd *cobra.Command, flag, env string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	return os.Getenv(env)
}

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "Manage event members",
}

var membersImportCmd = &cobra.Command{
	Use:   "import EVENT_ID -f FILE",
	Short: "Import a member roster into an event",
	Long: `Upload an xlsx or CSV roster to a running server and link every row
to the event. Only the first worksheet of a workbook is read. Columns: fullName, email, phone, chapterName, memberStatus,
businessCategory. Header spelling and case are normalized.

Examples:
  # Check a roster without writing anything
  primeslot members import evt-2026 -f roster.csv --dry-run --email admin@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eventID := args[0]
		filename, _ := cmd.Flags().GetString("file")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		f, err := os.Open(filename)
		if err != nil {
			return fmt.Errorf("failed to read file: %v", err)
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), remoteTimeout)
		defer cancel()
		c, err := connect(ctx, cmd)
		if err != nil {
			return err
		}

		summary, err := c.ImportMembers(ctx, eventID, filename, f, dryRun)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		if dryRun {
			fmt.Println("Dry run, nothing was written")
		}
		fmt.Printf("Rows:           %d\n", summary.TotalRows)
		fmt.Printf("Created:        %d\n", summary.CreatedMembers)
		fmt.Printf("Updated:        %d\n", summary.UpdatedMembers)
		fmt.Printf("Linked:         %d\n", summary.LinkedToEvent)
		fmt.Printf("Already linked: %d\n", summary.AlreadyLinked)
		if len(summary.Errors) > 0 {
			fmt.Printf("\nErrors (%d):\n", len(summary.Errors))
			for _, e := range summary.Errors {
				fmt.Printf("  row %d: %s\n", e.Index, e.Message)
			}
		}
		return nil
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect events",
}

var eventsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Count upcoming and past events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), remoteTimeout)
		defer cancel()
		c, err := connect(ctx, cmd)
		if err != nil {
			return err
		}

		summary, err := c.EventSummary(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Events:   %d\n", summary.Total)
		fmt.Printf("Upcoming: %d\n", summary.Upcoming)
		fmt.Printf("Past:     %d\n", summary.Past)
		return nil
	},
}

var meetingsCmd = &cobra.Command{
	Use:   "meetings",
	Short: "Inspect meetings",
}

var meetingsSummaryCmd = &cobra.Command{
	Use:   "summary EVENT_ID",
	Short: "Show meeting counts and business totals for an event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), remoteTimeout)
		defer cancel()
		c, err := connect(ctx, cmd)
		if err != nil {
			return err
		}

		summary, err := c.MeetingSummary(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Meetings: %d\n", summary.Total)
		statuses := make([]string, 0, len(summary.ByStatus))
		for s := range summary.ByStatus {
			statuses = append(statuses, s)
		}
		sort.Strings(statuses)
		for _, s := range statuses {
			fmt.Printf("  %-10s %d\n", s, summary.ByStatus[s])
		}
		fmt.Printf("Referrals: %d\n", summary.ReferralsTotal)
		fmt.Printf("Business:  %.2f\n", summary.BusinessTotal)
		return nil
	},
}

var availabilityCmd = &cobra.Command{
	Use:   "availability --a MEMBER_ID [--b MEMBER_ID]",
	Short: "Show busy and free time for one member or a pair",
	Long: `Show the busy slots and free gaps of one member, or the common free
time of two members when --b is given. Times accept epoch milliseconds
or RFC 3339. The window defaults to the last 7 and next 30 days.

Examples:
  # Common free slots of at least 30 minutes
  primeslot availability --a m1 --b m2 --min 30 --token $TOKEN`,
	RunE: runAvailability,
}

func runAvailability(cmd *cobra.Command, args []string) error {
	a, _ := cmd.Flags().GetString("a")
	b, _ := cmd.Flags().GetString("b")
	minDur, _ := cmd.Flags().GetInt("min")
	eventID, _ := cmd.Flags().GetString("event")

	from, to := availability.DefaultWindow(time.Now())
	if s, _ := cmd.Flags().GetString("from"); s != "" {
		v, err := types.ParseMillis(s)
		if err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
		from = v
	}
	if s, _ := cmd.Flags().GetString("to"); s != "" {
		v, err := types.ParseMillis(s)
		if err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
		to = v
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), remoteTimeout)
	defer cancel()
	c, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	if b == "" {
		cal, err := c.Calendar(ctx, a, from, to, eventID)
		if err != nil {
			return err
		}
		fmt.Printf("Busy (%d):\n", len(cal.Busy))
		for _, iv := range cal.Busy {
			fmt.Printf("  %s\n", formatSlot(iv))
		}
		fmt.Printf("Meetings (%d):\n", len(cal.Meetings))
		for _, s := range cal.Meetings {
			fmt.Printf("  %s  %-9s with %s\n", formatSlot(s.Interval), s.Status, s.OtherPartyID)
		}
		printFree(cal.Free)
		return nil
	}

	pair, err := c.Availability(ctx, availability.PairInput{
		AID:            a,
		BID:            b,
		From:           from,
		To:             to,
		MinDurationMin: minDur,
		EventID:        eventID,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Busy (%d):\n", len(pair.Busy))
	for _, iv := range pair.Busy {
		fmt.Printf("  %s\n", formatSlot(iv))
	}
	printFree(pair.Free)
	return nil
}

func printFree(free []interval.Interval) {
	fmt.Printf("Free (%d):\n", len(free))
	for _, iv := range free {
		fmt.Printf("  %s\n", formatSlot(iv))
	}
}

func formatSlot(iv interval.Interval) string {
	start := time.UnixMilli(iv.Start).UTC().Format(time.RFC3339)
	end := time.UnixMilli(iv.End).UTC().Format(time.RFC3339)
	return fmt.Sprintf("%s - %s (%dm)", start, end, iv.Len()/60000)
}

func init() {
	membersCmd.AddCommand(membersImportCmd)
	membersImportCmd.Flags().StringP("file", "f", "", "xlsx or CSV roster file (required)")
	membersImportCmd.Flags().Bool("dry-run", false, "Validate and report without writing")
	_ = membersImportCmd.MarkFlagRequired("file")
	addRemoteFlags(membersImportCmd)

	eventsCmd.AddCommand(eventsSummaryCmd)
	addRemoteFlags(eventsSummaryCmd)

	meetingsCmd.AddCommand(meetingsSummaryCmd)
	addRemoteFlags(meetingsSummaryCmd)

	availabilityCmd.Flags().String("a", "", "Member ID (required)")
	availabilityCmd.Flags().String("b", "", "Second member ID for pair availability")
	availabilityCmd.Flags().String("from", "", "Window start")
	availabilityCmd.Flags().String("to", "", "Window end")
	availabilityCmd.Flags().Int("min", 0, "Minimum free slot length in minutes")
	availabilityCmd.Flags().String("event", "", "Restrict busy time to one event")
	_ = availabilityCmd.MarkFlagRequired("a")
	addRemoteFlags(availabilityCmd)
}
