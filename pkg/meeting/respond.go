package meeting

import (
	"context"

	"github.com/primeslot/primeslot/pkg/apperr"
	"github.com/primeslot/primeslot/pkg/events"
	"github.com/primeslot/primeslot/pkg/metrics"
	"github.com/primeslot/primeslot/pkg/storage"
	"github.com/primeslot/primeslot/pkg/types"
)

// Action is a participant's answer to a pending meeting
type Action string

const (
	ActionAccept  Action = "accept"
	ActionDecline Action = "decline"
)

// RespondInput is MemberID's answer to a meeting
type RespondInput struct {
	MemberID  string `json:"-"`
	MeetingID string `json:"-"`
	EventID   string `json:"eventId"`
	Action    Action `json:"action"`
	Message   string `json:"message"`
}

// Respond accepts or declines a pending meeting on behalf of a
// participant and notifies the requester. Answering a meeting that is no
// longer pending is a conflict.
func (s *Service) Respond(ctx context.Context, actor types.Identity, in RespondInput) (*types.Meeting, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OperationDuration, "meeting.respond")

	var to types.MeetingStatus
	var notice types.NotificationType
	switch in.Action {
	case ActionAccept:
		to, notice = types.MeetingApproved, types.NotifyMeetingAccepted
	case ActionDecline:
		to, notice = types.MeetingCanceled, types.NotifyMeetingDeclined
	default:
		return nil, apperr.Validation("action must be accept or decline")
	}
	if err := validateID("memberId", in.MemberID); err != nil {
		return nil, err
	}
	if err := validateID("meetingId", in.MeetingID); err != nil {
		return nil, err
	}
	if err := validateID("eventId", in.EventID); err != nil {
		return nil, err
	}
	if !actor.CanActAs(in.MemberID) {
		return nil, apperr.Forbidden("not allowed: user mismatch")
	}

	var m *types.Meeting
	var from types.MeetingStatus
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		var err error
		m, err = load(tx, in.EventID, in.MeetingID)
		if err != nil {
			return err
		}
		if !m.Involves(in.MemberID) && !actor.IsAdmin() {
			return apperr.Forbidden("not allowed: %s is not a participant", in.MemberID)
		}
		if m.Status != types.MeetingPending {
			return apperr.Conflict("meeting is %s, not pending", m.Status)
		}

		from = m.Status
		now := s.nowMillis()
		if err := transition(tx, m, to, now); err != nil {
			return err
		}
		return notify(tx, m.AID, types.Notification{
			Type:      notice,
			MeetingID: m.ID,
			EventID:   m.EventID,
			By:        in.MemberID,
			Message:   in.Message,
			Status:    to,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.MeetingTransitions.WithLabelValues(string(from), string(to)).Inc()
	s.logger.Info().
		Str("meeting_id", m.ID).
		Str("member_id", in.MemberID).
		Str("action", string(in.Action)).
		Msg("meeting response recorded")

	typ := events.EventMeetingAccepted
	if in.Action == ActionDecline {
		typ = events.EventMeetingDeclined
	}
	events.Emit(s.publisher, typ, "meeting "+string(to), map[string]string{
		"event_id":   m.EventID,
		"meeting_id": m.ID,
		"member_id":  in.MemberID,
	})
	return m, nil
}
