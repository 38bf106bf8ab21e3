package meeting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primeslot/primeslot/pkg/apperr"
	"github.com/primeslot/primeslot/pkg/events"
	"github.com/primeslot/primeslot/pkg/roster"
	"github.com/primeslot/primeslot/pkg/storage"
	"github.com/primeslot/primeslot/pkg/types"
)

const (
	hour = int64(3_600_000)
	t0   = int64(1_760_000_000_000)
)

var (
	admin = types.Identity{Kind: types.IdentityAdmin, ID: "admin-1"}
	asA   = types.Identity{Kind: types.IdentityMember, ID: "ana"}
	asB   = types.Identity{Kind: types.IdentityMember, ID: "bo"}
	asC   = types.Identity{Kind: types.IdentityMember, ID: "carla"}
)

type recordingPublisher struct {
	events []*events.Event
}

func (p *recordingPublisher) Publish(e *events.Event) {
	p.events = append(p.events, e)
}

type fixture struct {
	svc   *Service
	store *storage.BoltStore
	pub   *recordingPublisher
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir(), storage.Options{Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	pub := &recordingPublisher{}
	svc := NewService(store, pub, cfg)
	clock := time.UnixMilli(t0 - 24*hour)
	svc.now = func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	}

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, storage.EventPath("e1"), types.Event{Title: "Mixer", Date: t0}))
	require.NoError(t, store.Set(ctx, storage.EventPath("e2"), types.Event{Title: "Gala", Date: t0}))
	for _, id := range []string{"ana", "bo", "carla"} {
		require.NoError(t, store.Set(ctx, storage.MemberPath(id), types.Member{FullName: id}))
	}
	return &fixture{svc: svc, store: store, pub: pub}
}

func (f *fixture) link(t *testing.T, eventID string, members ...string) {
	t.Helper()
	err := f.store.Transact(context.Background(), func(tx storage.Tx) error {
		for _, m := range members {
			if err := roster.WriteLink(tx, eventID, m, types.EventMember{Status: "Active", Source: types.LinkSourceAdmin}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func at(ms int64) *types.FlexMillis {
	f := types.FlexMillis(ms)
	return &f
}

func (f *fixture) request(t *testing.T, a, b string, start int64) *types.Meeting {
	t.Helper()
	m, err := f.svc.Request(context.Background(), types.Identity{Kind: types.IdentityMember, ID: a}, RequestInput{
		EventID:     "e1",
		AID:         a,
		BID:         b,
		ScheduledAt: at(start),
		DurationMin: 30,
		Topic:       "intro",
	})
	require.NoError(t, err)
	return m
}

func (f *fixture) mirror(t *testing.T, member string, m *types.Meeting) (types.MeetingIndex, bool) {
	t.Helper()
	var idx types.MeetingIndex
	found, err := f.store.Get(context.Background(), storage.MemberMeetingPath(member, m.EventID, m.ID), &idx)
	require.NoError(t, err)
	return idx, found
}

func (f *fixture) notifications(t *testing.T, member string) []*types.Notification {
	t.Helper()
	ns, err := f.svc.Notifications(context.Background(), admin, member)
	require.NoError(t, err)
	return ns
}

func TestRequestEndToEnd(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.link(t, "e1", "ana", "bo")
	ctx := context.Background()

	m := f.request(t, "ana", "bo", t0)
	assert.Equal(t, types.MeetingPending, m.Status)
	assert.Equal(t, "e1", m.EventID)
	assert.Equal(t, t0+30*60_000, m.EndTime)
	assert.Equal(t, types.ModeInPerson, m.Mode)
	assert.Equal(t, "ana", m.CreatedBy)

	ids, err := f.store.Keys(ctx, storage.EventMeetingsPath("e1"))
	require.NoError(t, err)
	assert.Equal(t, []string{m.ID}, ids)

	got, err := f.svc.Get(ctx, "e1", m.ID)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	for member, other := range map[string]string{"ana": "bo", "bo": "ana"} {
		idx, found := f.mirror(t, member, m)
		require.True(t, found, member)
		assert.Equal(t, types.MeetingIndex{
			EventID:      "e1",
			MeetingID:    m.ID,
			ScheduledAt:  t0,
			DurationMin:  30,
			EndTime:      t0 + 30*60_000,
			Status:       types.MeetingPending,
			OtherPartyID: other,
			Topic:        "intro",
		}, idx)
	}

	ns := f.notifications(t, "bo")
	require.Len(t, ns, 1)
	assert.Equal(t, types.NotifyMeetingRequest, ns[0].Type)
	assert.Equal(t, "ana", ns[0].From)
	assert.Equal(t, "bo", ns[0].To)
	assert.Equal(t, m.ID, ns[0].MeetingID)
	assert.False(t, ns[0].Read)
	assert.Empty(t, f.notifications(t, "ana"))

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, events.EventMeetingRequested, f.pub.events[0].Type)
}

func TestRequestValidation(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	tests := []struct {
		name string
		in   RequestInput
	}{
		{"missing aId", RequestInput{BID: "bo", ScheduledAt: at(t0)}},
		{"undefined bId", RequestInput{AID: "ana", BID: "undefined", ScheduledAt: at(t0)}},
		{"same member", RequestInput{AID: "ana", BID: "ana", ScheduledAt: at(t0)}},
		{"missing time", RequestInput{AID: "ana", BID: "bo"}},
		{"negative duration", RequestInput{AID: "ana", BID: "bo", ScheduledAt: at(t0), DurationMin: -5}},
		{"bad mode", RequestInput{AID: "ana", BID: "bo", ScheduledAt: at(t0), Mode: "phone"}},
		{"bad event id", RequestInput{EventID: "e.1", AID: "ana", BID: "bo", ScheduledAt: at(t0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Request(ctx, admin, tt.in)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}
}

func TestRequestAsAnotherMemberForbidden(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	_, err := f.svc.Request(context.Background(), asC, RequestInput{
		EventID: "e1", AID: "ana", BID: "bo", ScheduledAt: at(t0),
	})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestRequestAutoProvisionsMembership(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	m := f.request(t, "ana", "bo", t0)

	for _, member := range []string{"ana", "bo"} {
		var link types.EventMember
		found, err := f.store.Get(ctx, storage.EventMemberPath("e1", member), &link)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "Active", link.Status)
		assert.Equal(t, types.LinkSourceAutoRequest, link.Source)

		linked, err := f.store.Exists(ctx, storage.MemberEventPath(member, "e1"))
		require.NoError(t, err)
		assert.True(t, linked)
	}
	assert.Equal(t, types.MeetingPending, m.Status)
}

func TestRequestRequiresMembership(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequireExistingMembership = true
	f := newFixture(t, cfg)
	ctx := context.Background()
	f.link(t, "e1", "ana")

	_, err := f.svc.Request(ctx, asA, RequestInput{EventID: "e1", AID: "ana", BID: "bo", ScheduledAt: at(t0)})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	found, err := f.store.Exists(ctx, storage.Join(storage.RootMeetings))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRequestMissingReferences(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	_, err := f.svc.Request(ctx, asA, RequestInput{EventID: "nope", AID: "ana", BID: "bo", ScheduledAt: at(t0)})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.Request(ctx, asA, RequestInput{EventID: "e1", AID: "ana", BID: "ghost", ScheduledAt: at(t0)})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	// bo is linked to no event
	_, err = f.svc.Request(ctx, asA, RequestInput{AID: "ana", BID: "bo", ScheduledAt: at(t0)})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRequestResolvesEventFromRecipient(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.link(t, "e2", "bo")

	m, err := f.svc.Request(context.Background(), asA, RequestInput{AID: "ana", BID: "bo", ScheduledAt: at(t0)})
	require.NoError(t, err)
	assert.Equal(t, "e2", m.EventID)
	assert.Equal(t, 30, m.DurationMin)
}

func TestRequestRejectsOverlap(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()
	f.link(t, "e1", "ana", "bo", "carla")

	first := f.request(t, "ana", "bo", t0)

	_, err := f.svc.Request(ctx, asC, RequestInput{EventID: "e1", AID: "carla", BID: "bo", ScheduledAt: at(t0 + 15*60_000)})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	// back-to-back is fine
	f.request(t, "carla", "bo", t0+30*60_000)

	// once declined, the slot frees up
	_, err = f.svc.Respond(ctx, asB, RespondInput{MemberID: "bo", MeetingID: first.ID, EventID: "e1", Action: ActionDecline})
	require.NoError(t, err)
	f.request(t, "carla", "ana", t0)
}

func TestRequestOverlapsMirrorWithoutDuration(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.link(t, "e1", "ana", "bo", "carla")
	require.NoError(t, f.store.Set(context.Background(), storage.MemberMeetingPath("bo", "e2", "old"), types.MeetingIndex{
		EventID:      "e2",
		MeetingID:    "old",
		ScheduledAt:  t0,
		Status:       types.MeetingApproved,
		OtherPartyID: "dan",
	}))

	_, err := f.svc.Request(context.Background(), asC, RequestInput{EventID: "e1", AID: "carla", BID: "bo", ScheduledAt: at(t0 + 10*60_000)})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	f.request(t, "carla", "bo", t0+30*60_000)
}

func TestRequestOverlapAllowedWhenDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RejectOverlaps = false
	f := newFixture(t, cfg)

	f.request(t, "ana", "bo", t0)
	f.request(t, "carla", "bo", t0)
}
