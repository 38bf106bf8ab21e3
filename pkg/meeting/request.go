package meeting

import (
	"context"

	"github.com/primeslot/primeslot/pkg/apperr"
	"github.com/primeslot/primeslot/pkg/events"
	"github.com/primeslot/primeslot/pkg/interval"
	"github.com/primeslot/primeslot/pkg/metrics"
	"github.com/primeslot/primeslot/pkg/roster"
	"github.com/primeslot/primeslot/pkg/storage"
	"github.com/primeslot/primeslot/pkg/types"
)

// RequestInput describes a meeting requested by AID with BID.
// An empty EventID is resolved from BID's event links.
type RequestInput struct {
	EventID     string            `json:"eventId"`
	AID         string            `json:"aId"`
	BID         string            `json:"bId"`
	ScheduledAt *types.FlexMillis `json:"scheduledAt"`
	DurationMin int               `json:"durationMin"`
	Mode        types.MeetingMode `json:"mode"`
	Place       string            `json:"place"`
	Topic       string            `json:"topic"`
	Notes       string            `json:"notes"`
}

func (s *Service) validateRequest(in *RequestInput) error {
	if in.AID == "" || in.BID == "" || in.AID == "undefined" || in.BID == "undefined" {
		return apperr.Validation("missing valid aId or bId")
	}
	if err := validateID("aId", in.AID); err != nil {
		return err
	}
	if err := validateID("bId", in.BID); err != nil {
		return err
	}
	if in.AID == in.BID {
		return apperr.Validation("cannot request a meeting with yourself")
	}
	if in.EventID != "" {
		if err := validateID("eventId", in.EventID); err != nil {
			return err
		}
	}
	if in.ScheduledAt == nil || *in.ScheduledAt <= 0 {
		return apperr.Validation("scheduledAt required")
	}
	if in.DurationMin == 0 {
		in.DurationMin = s.config.DefaultDurationMin
	}
	if in.DurationMin < 0 || in.DurationMin > maxDurationMin {
		return apperr.Validation("durationMin must be between 1 and %d", maxDurationMin)
	}
	if in.Mode == "" {
		in.Mode = types.ModeInPerson
	}
	if !in.Mode.Valid() {
		return apperr.Validation("invalid mode %q", in.Mode)
	}
	return nil
}

// resolveEvent returns eventID after checking it exists, or the first
// event bID is linked to when eventID is empty.
func resolveEvent(r storage.Reader, eventID, bID string) (string, error) {
	if eventID == "" {
		ids, err := r.Keys(storage.MemberEventsPath(bID))
		if err != nil {
			return "", err
		}
		if len(ids) == 0 {
			return "", apperr.NotFound("event for member %s", bID)
		}
		eventID = ids[0]
	}
	found, err := r.Exists(storage.EventPath(eventID))
	if err != nil {
		return "", err
	}
	if !found {
		return "", apperr.NotFound("event %s", eventID)
	}
	return eventID, nil
}

// ensureMembership checks, or with auto-provisioning creates, the event
// link of memberID.
func (s *Service) ensureMembership(tx storage.Tx, eventID, memberID string, now int64) error {
	found, err := tx.Exists(storage.MemberPath(memberID))
	if err != nil {
		return err
	}
	if !found {
		return apperr.NotFound("member %s", memberID)
	}

	linked, err := roster.IsLinked(tx, eventID, memberID)
	if err != nil || linked {
		return err
	}
	if s.config.RequireExistingMembership {
		return apperr.Conflict("member %s not in event %s", memberID, eventID)
	}
	s.logger.Debug().Str("event_id", eventID).Str("member_id", memberID).Msg("auto-linking member to event")
	return roster.WriteLink(tx, eventID, memberID, types.EventMember{
		Status:  "Active",
		Tags:    []string{},
		AddedAt: now,
		Source:  types.LinkSourceAutoRequest,
	})
}

// Request creates a pending meeting, both mirrors, and a notification
// to the recipient in one transaction. Members may only request as
// themselves.
func (s *Service) Request(ctx context.Context, actor types.Identity, in RequestInput) (*types.Meeting, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OperationDuration, "meeting.request")

	if err := s.validateRequest(&in); err != nil {
		return nil, err
	}
	if !actor.CanActAs(in.AID) {
		return nil, apperr.Forbidden("not allowed to request meetings for %s", in.AID)
	}

	now := s.nowMillis()
	m := &types.Meeting{
		ID:          storage.NewKey(),
		AID:         in.AID,
		BID:         in.BID,
		ScheduledAt: types.Millis(*in.ScheduledAt),
		DurationMin: in.DurationMin,
		Mode:        in.Mode,
		Place:       in.Place,
		Topic:       in.Topic,
		Notes:       in.Notes,
		Status:      types.MeetingPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		CreatedBy:   actor.ID,
	}

	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		eventID, err := resolveEvent(tx, in.EventID, in.BID)
		if err != nil {
			return err
		}
		m.EventID = eventID

		for _, member := range []string{m.AID, m.BID} {
			if err := s.ensureMembership(tx, eventID, member, now); err != nil {
				return err
			}
		}

		if s.config.RejectOverlaps {
			iv := interval.FromMeeting(m.ScheduledAt, m.DurationMin)
			clash, err := findOverlap(tx, []string{m.AID, m.BID}, iv, "")
			if err != nil {
				return err
			}
			if clash != "" {
				return apperr.Conflict("time overlaps meeting %s", clash)
			}
		}

		if err := commit(tx, m); err != nil {
			return err
		}
		return notify(tx, m.BID, types.Notification{
			Type:      types.NotifyMeetingRequest,
			MeetingID: m.ID,
			EventID:   eventID,
			From:      m.AID,
			To:        m.BID,
			Status:    m.Status,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.MeetingTransitions.WithLabelValues("none", string(types.MeetingPending)).Inc()
	s.logger.Info().
		Str("event_id", m.EventID).
		Str("meeting_id", m.ID).
		Str("a_id", m.AID).
		Str("b_id", m.BID).
		Msg("meeting requested")
	events.Emit(s.publisher, events.EventMeetingRequested, "meeting requested", map[string]string{
		"event_id":   m.EventID,
		"meeting_id": m.ID,
		"a_id":       m.AID,
		"b_id":       m.BID,
	})
	return m, nil
}
