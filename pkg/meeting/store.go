package meeting

import (
	"github.com/primeslot/primeslot/pkg/apperr"
	"github.com/primeslot/primeslot/pkg/interval"
	"github.com/primeslot/primeslot/pkg/storage"
	"github.com/primeslot/primeslot/pkg/types"
)

// maxDurationMin bounds a single meeting to one day
const maxDurationMin = 24 * 60

func validateID(name, id string) error {
	if id == "" || id == "undefined" {
		return apperr.Validation("missing valid %s", name)
	}
	if !storage.ValidKey(id) {
		return apperr.Validation("invalid %s %q", name, id)
	}
	return nil
}

// load reads a meeting and normalises legacy status spellings
func load(r storage.Reader, eventID, meetingID string) (*types.Meeting, error) {
	var m types.Meeting
	found, err := r.Get(storage.MeetingPath(eventID, meetingID), &m)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound("meeting %s", meetingID)
	}
	m.ID = meetingID
	m.EventID = eventID
	if status, ok := types.ParseMeetingStatus(string(m.Status)); ok {
		m.Status = status
	}
	return &m, nil
}

// Mirror projects m onto the index record stored for memberID
func Mirror(m *types.Meeting, memberID string) types.MeetingIndex {
	return types.MeetingIndex{
		EventID:      m.EventID,
		MeetingID:    m.ID,
		ScheduledAt:  m.ScheduledAt,
		DurationMin:  m.DurationMin,
		EndTime:      m.ScheduledAt + interval.MinutesToMillis(m.DurationMin),
		Status:       m.Status,
		OtherPartyID: m.OtherParty(memberID),
		Topic:        m.Topic,
	}
}

// commit stores m together with both participant mirrors. Every write of
// meeting state goes through here.
func commit(tx storage.Tx, m *types.Meeting) error {
	m.EndTime = m.ScheduledAt + interval.MinutesToMillis(m.DurationMin)

	record := *m
	record.ID = ""
	record.EventID = ""
	if err := tx.Set(storage.MeetingPath(m.EventID, m.ID), record); err != nil {
		return err
	}
	for _, member := range []string{m.AID, m.BID} {
		if err := tx.Set(storage.MemberMeetingPath(member, m.EventID, m.ID), Mirror(m, member)); err != nil {
			return err
		}
	}
	return nil
}

// erase removes m and both mirrors
func erase(tx storage.Tx, m *types.Meeting) error {
	paths := []string{
		storage.MeetingPath(m.EventID, m.ID),
		storage.MemberMeetingPath(m.AID, m.EventID, m.ID),
		storage.MemberMeetingPath(m.BID, m.EventID, m.ID),
	}
	for _, p := range paths {
		if err := tx.Remove(p); err != nil {
			return err
		}
	}
	return nil
}

// transition moves m to status to and commits it. Moving to the current
// status is a plain commit.
func transition(tx storage.Tx, m *types.Meeting, to types.MeetingStatus, now int64) error {
	if m.Status != to {
		if !types.CanTransition(m.Status, to) {
			return apperr.Conflict("cannot move meeting from %s to %s", m.Status, to)
		}
		m.Status = to
	}
	m.UpdatedAt = now
	return commit(tx, m)
}

func notify(tx storage.Tx, recipient string, n types.Notification) error {
	_, err := tx.Push(storage.NotificationsPath(recipient), n)
	return err
}

// findOverlap returns the id of an open meeting of any member that
// overlaps iv, ignoring the meeting named exclude.
func findOverlap(r storage.Reader, members []string, iv interval.Interval, exclude string) (string, error) {
	for _, member := range members {
		var byEvent map[string]map[string]types.MeetingIndex
		if _, err := r.Get(storage.MemberMeetingsPath(member), &byEvent); err != nil {
			return "", err
		}
		for _, byMeeting := range byEvent {
			for meetingID, mirror := range byMeeting {
				if meetingID == exclude || !mirror.Status.Blocking() {
					continue
				}
				if interval.FromMeeting(mirror.ScheduledAt, mirror.DurationMin).Overlaps(iv) {
					return meetingID, nil
				}
			}
		}
	}
	return "", nil
}
