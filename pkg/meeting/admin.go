package meeting

import (
	"context"

	"github.com/primeslot/primeslot/pkg/apperr"
	"github.com/primeslot/primeslot/pkg/events"
	"github.com/primeslot/primeslot/pkg/interval"
	"github.com/primeslot/primeslot/pkg/metrics"
	"github.com/primeslot/primeslot/pkg/storage"
	"github.com/primeslot/primeslot/pkg/types"
)

// Patch is an administrative edit. Nil fields are left unchanged.
type Patch struct {
	Status            *string            `json:"status"`
	Notes             *string            `json:"notes"`
	Outcome           *string            `json:"outcome"`
	ReferralsGivenByA *int               `json:"referralsGivenByA"`
	ReferralsGivenByB *int               `json:"referralsGivenByB"`
	BusinessGivenByA  *float64           `json:"businessGivenByA"`
	BusinessGivenByB  *float64           `json:"businessGivenByB"`
	ScheduledAt       *types.FlexMillis  `json:"scheduledAt"`
	DurationMin       *int               `json:"durationMin"`
	Place             *string            `json:"place"`
	Topic             *string            `json:"topic"`
	Mode              *types.MeetingMode `json:"mode"`
}

func (p Patch) validate() (types.MeetingStatus, error) {
	var status types.MeetingStatus
	if p.Status != nil {
		s, ok := types.ParseMeetingStatus(*p.Status)
		if !ok {
			return "", apperr.Validation("invalid status %q", *p.Status)
		}
		status = s
	}
	for name, v := range map[string]*int{"referralsGivenByA": p.ReferralsGivenByA, "referralsGivenByB": p.ReferralsGivenByB} {
		if v != nil && *v < 0 {
			return "", apperr.Validation("%s must not be negative", name)
		}
	}
	for name, v := range map[string]*float64{"businessGivenByA": p.BusinessGivenByA, "businessGivenByB": p.BusinessGivenByB} {
		if v != nil && *v < 0 {
			return "", apperr.Validation("%s must not be negative", name)
		}
	}
	if p.ScheduledAt != nil && *p.ScheduledAt <= 0 {
		return "", apperr.Validation("invalid scheduledAt")
	}
	if p.DurationMin != nil && (*p.DurationMin <= 0 || *p.DurationMin > maxDurationMin) {
		return "", apperr.Validation("durationMin must be between 1 and %d", maxDurationMin)
	}
	if p.Mode != nil && !p.Mode.Valid() {
		return "", apperr.Validation("invalid mode %q", *p.Mode)
	}
	return status, nil
}

func (p Patch) apply(m *types.Meeting) {
	if p.Notes != nil {
		m.Notes = *p.Notes
	}
	if p.Outcome != nil {
		m.Outcome = *p.Outcome
	}
	if p.ReferralsGivenByA != nil {
		m.ReferralsGivenByA = *p.ReferralsGivenByA
	}
	if p.ReferralsGivenByB != nil {
		m.ReferralsGivenByB = *p.ReferralsGivenByB
	}
	if p.BusinessGivenByA != nil {
		m.BusinessGivenByA = *p.BusinessGivenByA
	}
	if p.BusinessGivenByB != nil {
		m.BusinessGivenByB = *p.BusinessGivenByB
	}
	if p.ScheduledAt != nil {
		m.ScheduledAt = types.Millis(*p.ScheduledAt)
	}
	if p.DurationMin != nil {
		m.DurationMin = *p.DurationMin
	}
	if p.Place != nil {
		m.Place = *p.Place
	}
	if p.Topic != nil {
		m.Topic = *p.Topic
	}
	if p.Mode != nil {
		m.Mode = *p.Mode
	}
}

// AdminPatch edits a meeting. Status changes follow the lifecycle and
// notify both participants; the mirrors are rewritten in the same
// transaction.
func (s *Service) AdminPatch(ctx context.Context, eventID, meetingID string, patch Patch) (*types.Meeting, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OperationDuration, "meeting.patch")

	if err := validateID("eventId", eventID); err != nil {
		return nil, err
	}
	if err := validateID("meetingId", meetingID); err != nil {
		return nil, err
	}
	to, err := patch.validate()
	if err != nil {
		return nil, err
	}

	var m *types.Meeting
	var from types.MeetingStatus
	err = s.store.Transact(ctx, func(tx storage.Tx) error {
		var err error
		m, err = load(tx, eventID, meetingID)
		if err != nil {
			return err
		}
		from = m.Status
		if to == "" {
			to = from
		}
		before := interval.FromMeeting(m.ScheduledAt, m.DurationMin)
		patch.apply(m)

		after := interval.FromMeeting(m.ScheduledAt, m.DurationMin)
		if s.config.RejectOverlaps && to.Blocking() && (after != before || !from.Blocking()) {
			clash, err := findOverlap(tx, []string{m.AID, m.BID}, after, m.ID)
			if err != nil {
				return err
			}
			if clash != "" {
				return apperr.Conflict("time overlaps meeting %s", clash)
			}
		}

		now := s.nowMillis()
		if err := transition(tx, m, to, now); err != nil {
			return err
		}
		if from == to {
			return nil
		}
		for _, member := range []string{m.AID, m.BID} {
			err := notify(tx, member, types.Notification{
				Type:      types.NotifyMeetingUpdated,
				MeetingID: m.ID,
				EventID:   m.EventID,
				Status:    to,
				CreatedAt: now,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if from != to {
		metrics.MeetingTransitions.WithLabelValues(string(from), string(to)).Inc()
	}
	events.Emit(s.publisher, events.EventMeetingUpdated, "meeting updated", map[string]string{
		"event_id":   eventID,
		"meeting_id": meetingID,
		"status":     string(m.Status),
	})
	return m, nil
}

// Delete removes a meeting and both participant mirrors
func (s *Service) Delete(ctx context.Context, eventID, meetingID string) error {
	if err := validateID("eventId", eventID); err != nil {
		return err
	}
	if err := validateID("meetingId", meetingID); err != nil {
		return err
	}

	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		m, err := load(tx, eventID, meetingID)
		if err != nil {
			return err
		}
		return erase(tx, m)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("event_id", eventID).Str("meeting_id", meetingID).Msg("meeting deleted")
	events.Emit(s.publisher, events.EventMeetingDeleted, "meeting deleted", map[string]string{
		"event_id":   eventID,
		"meeting_id": meetingID,
	})
	return nil
}
