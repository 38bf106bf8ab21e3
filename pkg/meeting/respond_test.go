package meeting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primeslot/primeslot/pkg/apperr"
	"github.com/primeslot/primeslot/pkg/types"
)

func TestRespond(t *testing.T) {
	tests := []struct {
		action     Action
		wantStatus types.MeetingStatus
		wantNotice types.NotificationType
	}{
		{ActionAccept, types.MeetingApproved, types.NotifyMeetingAccepted},
		{ActionDecline, types.MeetingCanceled, types.NotifyMeetingDeclined},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			f := newFixture(t, DefaultConfig())
			ctx := context.Background()
			m := f.request(t, "ana", "bo", t0)

			got, err := f.svc.Respond(ctx, asB, RespondInput{
				MemberID:  "bo",
				MeetingID: m.ID,
				EventID:   "e1",
				Action:    tt.action,
				Message:   "see you",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Greater(t, got.UpdatedAt, m.UpdatedAt)

			stored, err := f.svc.Get(ctx, "e1", m.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, stored.Status)
			for _, member := range []string{"ana", "bo"} {
				idx, found := f.mirror(t, member, m)
				require.True(t, found)
				assert.Equal(t, tt.wantStatus, idx.Status)
			}

			ns := f.notifications(t, "ana")
			require.Len(t, ns, 1)
			assert.Equal(t, tt.wantNotice, ns[0].Type)
			assert.Equal(t, "bo", ns[0].By)
			assert.Equal(t, "see you", ns[0].Message)
			assert.Equal(t, m.ID, ns[0].MeetingID)
		})
	}
}

func TestRespondTwiceConflicts(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()
	m := f.request(t, "ana", "bo", t0)

	in := RespondInput{MemberID: "bo", MeetingID: m.ID, EventID: "e1", Action: ActionAccept}
	_, err := f.svc.Respond(ctx, asB, in)
	require.NoError(t, err)

	in.Action = ActionDecline
	_, err = f.svc.Respond(ctx, asB, in)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	stored, err := f.svc.Get(ctx, "e1", m.ID)
	require.NoError(t, err)
	assert.Equal(t, types.MeetingApproved, stored.Status)
	assert.Len(t, f.notifications(t, "ana"), 1)
}

func TestRespondOwnership(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()
	m := f.request(t, "ana", "bo", t0)

	// carla is not a participant
	_, err := f.svc.Respond(ctx, asC, RespondInput{MemberID: "carla", MeetingID: m.ID, EventID: "e1", Action: ActionAccept})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	// carla cannot answer on bo's behalf
	_, err = f.svc.Respond(ctx, asC, RespondInput{MemberID: "bo", MeetingID: m.ID, EventID: "e1", Action: ActionAccept})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	// admins can answer for anyone
	got, err := f.svc.Respond(ctx, admin, RespondInput{MemberID: "bo", MeetingID: m.ID, EventID: "e1", Action: ActionAccept})
	require.NoError(t, err)
	assert.Equal(t, types.MeetingApproved, got.Status)
}

func TestRespondErrors(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()
	m := f.request(t, "ana", "bo", t0)

	_, err := f.svc.Respond(ctx, asB, RespondInput{MemberID: "bo", MeetingID: m.ID, EventID: "e1", Action: "maybe"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Respond(ctx, asB, RespondInput{MemberID: "bo", MeetingID: m.ID, Action: ActionAccept})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Respond(ctx, asB, RespondInput{MemberID: "bo", MeetingID: "missing", EventID: "e1", Action: ActionAccept})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.Respond(ctx, asB, RespondInput{MemberID: "bo", MeetingID: m.ID, EventID: "e2", Action: ActionAccept})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRespondNormalisesLegacyStatus(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()
	m := f.request(t, "ana", "bo", t0)

	// Older admin-created meetings were stored as "scheduled".
	require.NoError(t, f.store.Update(ctx, "/meetings/e1/"+m.ID, map[string]any{"status": "scheduled"}))

	got, err := f.svc.Respond(ctx, asB, RespondInput{MemberID: "bo", MeetingID: m.ID, EventID: "e1", Action: ActionAccept})
	require.NoError(t, err)
	assert.Equal(t, types.MeetingApproved, got.Status)
}
