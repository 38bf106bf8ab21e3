package reconciler

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/primeslot/primeslot/pkg/events"
	"github.com/primeslot/primeslot/pkg/log"
	"github.com/primeslot/primeslot/pkg/meeting"
	"github.com/primeslot/primeslot/pkg/metrics"
	"github.com/primeslot/primeslot/pkg/storage"
	"github.com/primeslot/primeslot/pkg/types"
)

// Repair kinds, also used as metric labels
const (
	KindMirrorRewritten = "mirror_rewritten"
	KindMirrorRemoved   = "mirror_removed"
	KindReverseRestored = "reverse_restored"
	KindReverseRemoved  = "reverse_removed"
)

// Report counts the repairs of one pass
type Report struct {
	MeetingsScanned  int           `json:"meetingsScanned"`
	MirrorsRewritten int           `json:"mirrorsRewritten"`
	MirrorsRemoved   int           `json:"mirrorsRemoved"`
	ReverseRestored  int           `json:"reverseRestored"`
	ReverseRemoved   int           `json:"reverseRemoved"`
	DryRun           bool          `json:"dryRun"`
	Duration         time.Duration `json:"duration"`
}

// Total is the number of repairs in the report
func (r *Report) Total() int {
	return r.MirrorsRewritten + r.MirrorsRemoved + r.ReverseRestored + r.ReverseRemoved
}

// fix is one write that brings a denormalized path back in line. A nil
// value removes the path.
type fix struct {
	kind  string
	path  string
	value any
}

// Reconciler keeps the memberMeetings mirrors and memberEvents reverse
// entries consistent with the primary meeting and link records
type Reconciler struct {
	store     storage.Store
	publisher events.Publisher
	interval  time.Duration
	logger    zerolog.Logger
	mu        sync.Mutex
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewReconciler creates a reconciler that runs every interval once
// started. publisher may be nil.
func NewReconciler(store storage.Store, publisher events.Publisher, interval time.Duration) *Reconciler {
	return &Reconciler{
		store:     store,
		publisher: publisher,
		interval:  interval,
		logger:    log.WithComponent("reconciler"),
		stopCh:    make(chan struct{}),
	}
}

// Start begins the reconciliation loop
func (r *Reconciler) Start() {
	go r.run()
}

// Stop stops the reconciler. Safe to call more than once.
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

func (r *Reconciler) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.interval)
			if _, err := r.Reconcile(ctx); err != nil {
				r.logger.Error().Err(err).Msg("Reconciliation failed")
			}
			cancel()
		case <-r.stopCh:
			return
		}
	}
}

// Reconcile performs one repair pass in a single transaction
func (r *Reconciler) Reconcile(ctx context.Context) (*Report, error) {
	return r.pass(ctx, false)
}

// Check reports what Reconcile would repair without writing anything
func (r *Reconciler) Check(ctx context.Context) (*Report, error) {
	return r.pass(ctx, true)
}

func (r *Reconciler) pass(ctx context.Context, dryRun bool) (*Report, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ReconciliationDuration)

	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		report *Report
		fixes  []fix
	)
	plan := func(rd storage.Reader) error {
		var err error
		report, fixes, err = planRepairs(rd)
		return err
	}

	var err error
	if dryRun {
		err = r.store.View(ctx, plan)
	} else {
		err = r.store.Transact(ctx, func(tx storage.Tx) error {
			if err := plan(tx); err != nil {
				return err
			}
			for _, f := range fixes {
				if err := tx.Set(f.path, f.value); err != nil {
					return fmt.Errorf("failed to repair %s: %w", f.path, err)
				}
			}
			return nil
		})
	}
	if err != nil {
		return nil, fmt.Errorf("reconciliation failed: %w", err)
	}

	report.DryRun = dryRun
	report.Duration = timer.Duration()
	if dryRun || report.Total() == 0 {
		return report, nil
	}

	for _, f := range fixes {
		metrics.MirrorRepairs.WithLabelValues(f.kind).Inc()
	}
	r.logger.Info().
		Int("mirrors_rewritten", report.MirrorsRewritten).
		Int("mirrors_removed", report.MirrorsRemoved).
		Int("reverse_restored", report.ReverseRestored).
		Int("reverse_removed", report.ReverseRemoved).
		Msg("Repaired denormalized records")
	events.Emit(r.publisher, events.EventMirrorsRepaired, "denormalized records repaired", map[string]string{
		"repairs": strconv.Itoa(report.Total()),
	})
	return report, nil
}

// planRepairs compares every mirror and reverse entry with the records
// it is derived from
func planRepairs(rd storage.Reader) (*Report, []fix, error) {
	report := &Report{}
	var fixes []fix

	var meetings map[string]map[string]types.Meeting
	if _, err := rd.Get(storage.Join(storage.RootMeetings), &meetings); err != nil {
		return nil, nil, fmt.Errorf("failed to read meetings: %w", err)
	}
	var mirrors map[string]map[string]map[string]types.MeetingIndex
	if _, err := rd.Get(storage.Join(storage.RootMemberMeetings), &mirrors); err != nil {
		return nil, nil, fmt.Errorf("failed to read meeting mirrors: %w", err)
	}

	for _, eventID := range sortedKeys(meetings) {
		for _, meetingID := range sortedKeys(meetings[eventID]) {
			m := meetings[eventID][meetingID]
			m.ID = meetingID
			m.EventID = eventID
			if status, ok := types.ParseMeetingStatus(string(m.Status)); ok {
				m.Status = status
			}
			report.MeetingsScanned++

			for _, member := range []string{m.AID, m.BID} {
				if !storage.ValidKey(member) {
					continue
				}
				want := meeting.Mirror(&m, member)
				have, ok := mirrors[member][eventID][meetingID]
				if ok && reflect.DeepEqual(have, want) {
					continue
				}
				fixes = append(fixes, fix{
					kind:  KindMirrorRewritten,
					path:  storage.MemberMeetingPath(member, eventID, meetingID),
					value: want,
				})
				report.MirrorsRewritten++
			}
		}
	}

	for _, member := range sortedKeys(mirrors) {
		for _, eventID := range sortedKeys(mirrors[member]) {
			for _, meetingID := range sortedKeys(mirrors[member][eventID]) {
				m, ok := meetings[eventID][meetingID]
				if ok && (m.AID == member || m.BID == member) {
					continue
				}
				fixes = append(fixes, fix{
					kind: KindMirrorRemoved,
					path: storage.MemberMeetingPath(member, eventID, meetingID),
				})
				report.MirrorsRemoved++
			}
		}
	}

	var links map[string]map[string]types.EventMember
	if _, err := rd.Get(storage.Join(storage.RootEventMembers), &links); err != nil {
		return nil, nil, fmt.Errorf("failed to read event members: %w", err)
	}
	var reverse map[string]map[string]bool
	if _, err := rd.Get(storage.Join(storage.RootMemberEvents), &reverse); err != nil {
		return nil, nil, fmt.Errorf("failed to read member events: %w", err)
	}

	for _, eventID := range sortedKeys(links) {
		for _, member := range sortedKeys(links[eventID]) {
			if reverse[member][eventID] {
				continue
			}
			fixes = append(fixes, fix{
				kind:  KindReverseRestored,
				path:  storage.MemberEventPath(member, eventID),
				value: true,
			})
			report.ReverseRestored++
		}
	}
	for _, member := range sortedKeys(reverse) {
		for _, eventID := range sortedKeys(reverse[member]) {
			if _, ok := links[eventID][member]; ok {
				continue
			}
			fixes = append(fixes, fix{
				kind: KindReverseRemoved,
				path: storage.MemberEventPath(member, eventID),
			})
			report.ReverseRemoved++
		}
	}

	return report, fixes, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
