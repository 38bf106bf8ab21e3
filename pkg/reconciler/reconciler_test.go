package reconciler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primeslot/primeslot/pkg/events"
	"github.com/primeslot/primeslot/pkg/storage"
	"github.com/primeslot/primeslot/pkg/types"
)

const t0 = int64(1_760_000_000_000)

type recordingPublisher struct {
	events []*events.Event
}

func (p *recordingPublisher) Publish(e *events.Event) {
	p.events = append(p.events, e)
}

func newTestStore(t *testing.T) *storage.BoltStore {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir(), storage.Options{Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// seedDrift writes one meeting with a stale, a missing and an orphaned
// mirror, plus a link without its reverse entry and a dangling reverse
// entry
func seedDrift(t *testing.T, store storage.Store) {
	t.Helper()
	err := store.MultiUpdate(context.Background(), map[string]any{
		storage.MeetingPath("e1", "m1"): types.Meeting{
			AID: "ana", BID: "bo", ScheduledAt: t0, DurationMin: 30, Status: "Scheduled", Topic: "intro",
		},
		storage.MemberMeetingPath("ana", "e1", "m1"): types.MeetingIndex{
			EventID: "e1", MeetingID: "m1", ScheduledAt: t0, DurationMin: 30, Status: "pending", OtherPartyID: "bo",
		},
		storage.MemberMeetingPath("carla", "e1", "gone"): types.MeetingIndex{
			EventID: "e1", MeetingID: "gone", ScheduledAt: t0, DurationMin: 30, Status: "pending", OtherPartyID: "ana",
		},
		storage.EventMemberPath("e1", "ana"): types.EventMember{Status: "Active", Source: types.LinkSourceAdmin, Tags: []string{}},
		storage.MemberEventPath("bo", "e2"):  true,
	})
	require.NoError(t, err)
}

func TestReconcileRepairsDrift(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedDrift(t, store)
	pub := &recordingPublisher{}
	r := NewReconciler(store, pub, time.Minute)

	report, err := r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.MeetingsScanned)
	assert.Equal(t, 2, report.MirrorsRewritten, "stale topic on ana, missing on bo")
	assert.Equal(t, 1, report.MirrorsRemoved)
	assert.Equal(t, 1, report.ReverseRestored)
	assert.Equal(t, 1, report.ReverseRemoved)
	assert.False(t, report.DryRun)

	var mirror types.MeetingIndex
	ok, err := store.Get(ctx, storage.MemberMeetingPath("bo", "e1", "m1"), &mirror)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ana", mirror.OtherPartyID)
	assert.Equal(t, types.MeetingPending, mirror.Status)
	assert.Equal(t, t0+30*60_000, mirror.EndTime)

	ok, err = store.Exists(ctx, storage.MemberMeetingsPath("carla"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Exists(ctx, storage.MemberEventPath("ana", "e1"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(ctx, storage.MemberEventPath("bo", "e2"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.EventMirrorsRepaired, pub.events[0].Type)

	// a second pass finds nothing
	report, err = r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Total())
	assert.Len(t, pub.events, 1)
}

func TestCheckDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedDrift(t, store)
	r := NewReconciler(store, nil, time.Minute)

	report, err := r.Check(ctx)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 5, report.Total())

	ok, err := store.Exists(ctx, storage.MemberMeetingPath("bo", "e1", "m1"))
	require.NoError(t, err)
	assert.False(t, ok)

	report, err = r.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Total())
}

func TestReconcileEmptyStore(t *testing.T) {
	r := NewReconciler(newTestStore(t), nil, time.Minute)
	report, err := r.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Total())
	assert.Zero(t, report.MeetingsScanned)
}

func TestStartStop(t *testing.T) {
	store := newTestStore(t)
	seedDrift(t, store)
	r := NewReconciler(store, nil, 10*time.Millisecond)
	r.Start()
	defer r.Stop()

	assert.Eventually(t, func() bool {
		ok, err := store.Exists(context.Background(), storage.MemberEventPath("ana", "e1"))
		return err == nil && ok
	}, 2*time.Second, 10*time.Millisecond)

	r.Stop()
	r.Stop()
}
