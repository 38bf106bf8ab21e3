package meeting

import (
	"context"
	"sort"

	"github.com/primeslot/primeslot/pkg/apperr"
	"github.com/primeslot/primeslot/pkg/paging"
	"github.com/primeslot/primeslot/pkg/storage"
	"github.com/primeslot/primeslot/pkg/types"
)

// Query filters List. Empty fields match everything.
type Query struct {
	EventID  string
	MemberID string
	Status   string
	Page     int
	PageSize int
}

// Page is one page of meetings
type Page struct {
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
	Total    int              `json:"total"`
	Records  []*types.Meeting `json:"records"`
}

// Summary aggregates the meetings of one event
type Summary struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"byStatus"`
	ReferralsTotal int            `json:"referralsTotal"`
	BusinessTotal  float64        `json:"businessTotal"`
}

// Get returns one meeting
func (s *Service) Get(ctx context.Context, eventID, meetingID string) (*types.Meeting, error) {
	if err := validateID("eventId", eventID); err != nil {
		return nil, err
	}
	if err := validateID("meetingId", meetingID); err != nil {
		return nil, err
	}
	var m *types.Meeting
	err := s.store.View(ctx, func(r storage.Reader) error {
		var err error
		m, err = load(r, eventID, meetingID)
		return err
	})
	return m, err
}

// eventMeetings loads every meeting of eventID
func eventMeetings(r storage.Reader, eventID string) ([]*types.Meeting, error) {
	ids, err := r.Keys(storage.EventMeetingsPath(eventID))
	if err != nil {
		return nil, err
	}
	out := make([]*types.Meeting, 0, len(ids))
	for _, id := range ids {
		m, err := load(r, eventID, id)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// List pages through meetings, latest scheduledAt first
func (s *Service) List(ctx context.Context, q Query) (*Page, error) {
	page, pageSize := paging.Normalize(q.Page, q.PageSize, 20, 100)

	var status types.MeetingStatus
	if q.Status != "" {
		st, ok := types.ParseMeetingStatus(q.Status)
		if !ok {
			return nil, apperr.Validation("invalid status %q", q.Status)
		}
		status = st
	}
	if q.EventID != "" {
		if err := validateID("eventId", q.EventID); err != nil {
			return nil, err
		}
	}

	records := []*types.Meeting{}
	err := s.store.View(ctx, func(r storage.Reader) error {
		eventIDs := []string{q.EventID}
		if q.EventID == "" {
			var err error
			if eventIDs, err = r.Keys(storage.Join(storage.RootMeetings)); err != nil {
				return err
			}
		}
		for _, eventID := range eventIDs {
			ms, err := eventMeetings(r, eventID)
			if err != nil {
				return err
			}
			for _, m := range ms {
				if status != "" && m.Status != status {
					continue
				}
				if q.MemberID != "" && !m.Involves(q.MemberID) {
					continue
				}
				records = append(records, m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].ScheduledAt != records[j].ScheduledAt {
			return records[i].ScheduledAt > records[j].ScheduledAt
		}
		return records[i].ID < records[j].ID
	})
	return &Page{
		Page:     page,
		PageSize: pageSize,
		Total:    len(records),
		Records:  paging.Slice(records, page, pageSize),
	}, nil
}

// ListPending returns the full records of memberID's pending meetings,
// soonest first
func (s *Service) ListPending(ctx context.Context, actor types.Identity, memberID string) ([]*types.Meeting, error) {
	if err := validateID("memberId", memberID); err != nil {
		return nil, err
	}
	if !actor.CanActAs(memberID) {
		return nil, apperr.Forbidden("not allowed")
	}

	pending := []*types.Meeting{}
	err := s.store.View(ctx, func(r storage.Reader) error {
		var byEvent map[string]map[string]types.MeetingIndex
		if _, err := r.Get(storage.MemberMeetingsPath(memberID), &byEvent); err != nil {
			return err
		}
		for eventID, byMeeting := range byEvent {
			for meetingID, mirror := range byMeeting {
				if st, _ := types.ParseMeetingStatus(string(mirror.Status)); st != types.MeetingPending {
					continue
				}
				m, err := load(r, eventID, meetingID)
				if apperr.Is(err, apperr.KindNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				pending = append(pending, m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(pending, func(i, j int) bool {
		if pending[i].ScheduledAt != pending[j].ScheduledAt {
			return pending[i].ScheduledAt < pending[j].ScheduledAt
		}
		return pending[i].ID < pending[j].ID
	})
	return pending, nil
}

// Summary counts an event's meetings by status and totals the referral
// and business counters
func (s *Service) Summary(ctx context.Context, eventID string) (*Summary, error) {
	if err := validateID("eventId", eventID); err != nil {
		return nil, err
	}

	sum := &Summary{ByStatus: map[string]int{}}
	err := s.store.View(ctx, func(r storage.Reader) error {
		found, err := r.Exists(storage.EventPath(eventID))
		if err != nil {
			return err
		}
		if !found {
			return apperr.NotFound("event %s", eventID)
		}
		ms, err := eventMeetings(r, eventID)
		if err != nil {
			return err
		}
		for _, m := range ms {
			sum.Total++
			sum.ByStatus[string(m.Status)]++
			sum.ReferralsTotal += m.ReferralsGivenByA + m.ReferralsGivenByB
			sum.BusinessTotal += m.BusinessGivenByA + m.BusinessGivenByB
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sum, nil
}

// Notifications lists memberID's notifications, newest first
func (s *Service) Notifications(ctx context.Context, actor types.Identity, memberID string) ([]*types.Notification, error) {
	if err := validateID("memberId", memberID); err != nil {
		return nil, err
	}
	if !actor.CanActAs(memberID) {
		return nil, apperr.Forbidden("not allowed")
	}

	var byID map[string]*types.Notification
	if _, err := s.store.Get(ctx, storage.NotificationsPath(memberID), &byID); err != nil {
		return nil, err
	}
	out := make([]*types.Notification, 0, len(byID))
	for id, n := range byID {
		n.ID = id
		out = append(out, n)
	}
	// Push keys are time-ordered, so key order breaks createdAt ties.
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}
