package meeting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primeslot/primeslot/pkg/apperr"
	"github.com/primeslot/primeslot/pkg/storage"
	"github.com/primeslot/primeslot/pkg/types"
)

func ptr[T any](v T) *T {
	return &v
}

func TestAdminPatchSyncsMirrors(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()
	m := f.request(t, "ana", "bo", t0)

	got, err := f.svc.AdminPatch(ctx, "e1", m.ID, Patch{
		Status:      ptr("Approved"),
		ScheduledAt: at(t0 + 2*hour),
		DurationMin: ptr(45),
		Topic:       ptr("partnership"),
	})
	require.NoError(t, err)
	assert.Equal(t, types.MeetingApproved, got.Status)
	assert.Equal(t, t0+2*hour+45*60_000, got.EndTime)

	for _, member := range []string{"ana", "bo"} {
		idx, found := f.mirror(t, member, m)
		require.True(t, found)
		assert.Equal(t, types.MeetingApproved, idx.Status)
		assert.Equal(t, t0+2*hour, idx.ScheduledAt)
		assert.Equal(t, 45, idx.DurationMin)
		assert.Equal(t, "partnership", idx.Topic)

		ns := f.notifications(t, member)
		require.NotEmpty(t, ns)
		assert.Equal(t, types.NotifyMeetingUpdated, ns[0].Type)
		assert.Equal(t, types.MeetingApproved, ns[0].Status)
	}
}

func TestAdminPatchOutcome(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()
	m := f.request(t, "ana", "bo", t0)

	_, err := f.svc.AdminPatch(ctx, "e1", m.ID, Patch{Status: ptr("approved")})
	require.NoError(t, err)

	got, err := f.svc.AdminPatch(ctx, "e1", m.ID, Patch{
		Status:            ptr("completed"),
		Outcome:           ptr("signed"),
		ReferralsGivenByA: ptr(2),
		BusinessGivenByB:  ptr(1500.5),
	})
	require.NoError(t, err)
	assert.Equal(t, types.MeetingCompleted, got.Status)
	assert.Equal(t, "signed", got.Outcome)
	assert.Equal(t, 2, got.ReferralsGivenByA)
	assert.Equal(t, 1500.5, got.BusinessGivenByB)

	// a notes-only edit keeps the status and sends nothing
	before := len(f.notifications(t, "ana"))
	got, err = f.svc.AdminPatch(ctx, "e1", m.ID, Patch{Notes: ptr("follow up")})
	require.NoError(t, err)
	assert.Equal(t, types.MeetingCompleted, got.Status)
	assert.Len(t, f.notifications(t, "ana"), before)
}

func TestAdminPatchIllegalTransition(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()
	m := f.request(t, "ana", "bo", t0)

	_, err := f.svc.AdminPatch(ctx, "e1", m.ID, Patch{Status: ptr("completed")})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.svc.AdminPatch(ctx, "e1", m.ID, Patch{Status: ptr("canceled")})
	require.NoError(t, err)
	_, err = f.svc.AdminPatch(ctx, "e1", m.ID, Patch{Status: ptr("approved")})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.svc.AdminPatch(ctx, "e1", m.ID, Patch{Status: ptr("rejected")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.svc.AdminPatch(ctx, "e1", m.ID, Patch{ReferralsGivenByB: ptr(-1)})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.svc.AdminPatch(ctx, "e1", "missing", Patch{Notes: ptr("x")})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestAdminPatchRescheduleOverlap(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()
	first := f.request(t, "ana", "bo", t0)
	second := f.request(t, "carla", "bo", t0+hour)

	_, err := f.svc.AdminPatch(ctx, "e1", second.ID, Patch{ScheduledAt: at(t0 + 10*60_000)})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	// moving a meeting within its own slot does not clash with itself
	_, err = f.svc.AdminPatch(ctx, "e1", first.ID, Patch{ScheduledAt: at(t0 + 5*60_000)})
	require.NoError(t, err)
}

func TestDeleteCascadesMirrors(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()
	m := f.request(t, "ana", "bo", t0)

	require.NoError(t, f.svc.Delete(ctx, "e1", m.ID))

	for _, p := range []string{
		storage.MeetingPath("e1", m.ID),
		storage.MemberMeetingsPath("ana"),
		storage.MemberMeetingsPath("bo"),
	} {
		found, err := f.store.Exists(ctx, p)
		require.NoError(t, err)
		assert.False(t, found, p)
	}

	err := f.svc.Delete(ctx, "e1", m.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
