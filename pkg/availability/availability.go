// Package availability computes busy and free time for members from their
// meeting mirrors.
package availability

import (
	"context"
	"sort"
	"time"

	"github.com/primeslot/primeslot/pkg/apperr"
	"github.com/primeslot/primeslot/pkg/interval"
	"github.com/primeslot/primeslot/pkg/metrics"
	"github.com/primeslot/primeslot/pkg/storage"
	"github.com/primeslot/primeslot/pkg/types"
)

const (
	// DefaultMinDurationMin is the shortest free slot Pair reports by default
	DefaultMinDurationMin = 30

	// Calendar window used when the caller gives none
	DefaultLookBack  = 7 * 24 * time.Hour
	DefaultLookAhead = 30 * 24 * time.Hour
)

// BusySlot is a clipped busy interval with the meeting behind it
type BusySlot struct {
	interval.Interval
	ID           string              `json:"id"`
	EventID      string              `json:"eventId"`
	Status       types.MeetingStatus `json:"status"`
	OtherPartyID string              `json:"otherPartyId"`
	Topic        string              `json:"topic"`
}

// Calendar is one member's busy/free split of a window. Busy and Free
// tile the window; Meetings lists the blocking meetings behind Busy.
type Calendar struct {
	MemberID string              `json:"memberId"`
	From     int64               `json:"from"`
	To       int64               `json:"to"`
	Busy     []interval.Interval `json:"busy"`
	Free     []interval.Interval `json:"free"`
	Meetings []BusySlot          `json:"meetings"`
}

// PairInput asks for common free time of two members
type PairInput struct {
	AID            string `json:"aId"`
	BID            string `json:"bId"`
	From           int64  `json:"from"`
	To             int64  `json:"to"`
	MinDurationMin int    `json:"minDurationMin"`
	EventID        string `json:"eventId"`
}

// Pair is the merged busy time and sufficiently long free gaps of two
// members
type Pair struct {
	AID  string              `json:"aId"`
	BID  string              `json:"bId"`
	From int64               `json:"from"`
	To   int64               `json:"to"`
	Busy []interval.Interval `json:"busy"`
	Free []interval.Interval `json:"free"`
}

// Engine answers availability queries
type Engine struct {
	store storage.Store
}

// NewEngine creates an availability engine over store
func NewEngine(store storage.Store) *Engine {
	return &Engine{store: store}
}

// DefaultWindow returns the calendar window around now
func DefaultWindow(now time.Time) (int64, int64) {
	return now.Add(-DefaultLookBack).UnixMilli(), now.Add(DefaultLookAhead).UnixMilli()
}

func validateWindow(from, to int64) error {
	if from < 0 || to <= from {
		return apperr.Validation("invalid from/to")
	}
	return nil
}

func validateMember(name, id string) error {
	if id == "" || id == "undefined" {
		return apperr.Validation("%s required", name)
	}
	if !storage.ValidKey(id) {
		return apperr.Validation("invalid %s %q", name, id)
	}
	return nil
}

// busySlots reads memberID's blocking mirrors, optionally scoped to one
// event, clipped to [from, to) and sorted by start
func busySlots(r storage.Reader, memberID, eventID string, from, to int64) ([]BusySlot, error) {
	byEvent := map[string]map[string]types.MeetingIndex{}
	if eventID != "" {
		var byMeeting map[string]types.MeetingIndex
		if _, err := r.Get(storage.Join(storage.RootMemberMeetings, memberID, eventID), &byMeeting); err != nil {
			return nil, err
		}
		byEvent[eventID] = byMeeting
	} else if _, err := r.Get(storage.MemberMeetingsPath(memberID), &byEvent); err != nil {
		return nil, err
	}

	slots := []BusySlot{}
	for evID, byMeeting := range byEvent {
		for meetingID, mirror := range byMeeting {
			if !mirror.Status.Blocking() {
				continue
			}
			iv, ok := interval.Clip(interval.FromMeeting(mirror.ScheduledAt, mirror.DurationMin), from, to)
			if !ok {
				continue
			}
			status, _ := types.ParseMeetingStatus(string(mirror.Status))
			slots = append(slots, BusySlot{
				Interval:     iv,
				ID:           meetingID,
				EventID:      evID,
				Status:       status,
				OtherPartyID: mirror.OtherPartyID,
				Topic:        mirror.Topic,
			})
		}
	}
	sortSlots(slots)
	return slots, nil
}

func sortSlots(slots []BusySlot) {
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Start != slots[j].Start {
			return slots[i].Start < slots[j].Start
		}
		if slots[i].End != slots[j].End {
			return slots[i].End < slots[j].End
		}
		return slots[i].ID < slots[j].ID
	})
}

// BusyFree splits [from, to) into memberID's merged busy time and the free
// gaps between it. Pending and approved meetings count as busy.
func (e *Engine) BusyFree(ctx context.Context, actor types.Identity, memberID string, from, to int64, eventID string) (*Calendar, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OperationDuration, "availability.calendar")

	if err := validateMember("memberId", memberID); err != nil {
		return nil, err
	}
	if err := validateWindow(from, to); err != nil {
		return nil, err
	}
	if eventID != "" && !storage.ValidKey(eventID) {
		return nil, apperr.Validation("invalid eventId %q", eventID)
	}
	if !actor.CanActAs(memberID) {
		return nil, apperr.Forbidden("not allowed")
	}

	var slots []BusySlot
	err := e.store.View(ctx, func(r storage.Reader) error {
		var err error
		slots, err = busySlots(r, memberID, eventID, from, to)
		return err
	})
	if err != nil {
		return nil, err
	}

	ivs := make([]interval.Interval, len(slots))
	for i, s := range slots {
		ivs[i] = s.Interval
	}
	busy := interval.Merge(ivs)
	return &Calendar{
		MemberID: memberID,
		From:     from,
		To:       to,
		Busy:     busy,
		Free:     interval.Gaps(busy, from, to, 0),
		Meetings: slots,
	}, nil
}

// Pair returns the merged busy time of two members and the free gaps of
// at least MinDurationMin minutes. Members may only ask about pairs they
// belong to.
func (e *Engine) Pair(ctx context.Context, actor types.Identity, in PairInput) (*Pair, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OperationDuration, "availability.pair")

	if in.AID == "" || in.BID == "" {
		return nil, apperr.Validation("aId & bId required")
	}
	if err := validateMember("aId", in.AID); err != nil {
		return nil, err
	}
	if err := validateMember("bId", in.BID); err != nil {
		return nil, err
	}
	if err := validateWindow(in.From, in.To); err != nil {
		return nil, err
	}
	if in.EventID != "" && !storage.ValidKey(in.EventID) {
		return nil, apperr.Validation("invalid eventId %q", in.EventID)
	}
	if in.MinDurationMin <= 0 {
		in.MinDurationMin = DefaultMinDurationMin
	}
	if !actor.CanActAs(in.AID) && !actor.CanActAs(in.BID) {
		return nil, apperr.Forbidden("not allowed")
	}

	var ivs []interval.Interval
	err := e.store.View(ctx, func(r storage.Reader) error {
		for _, member := range []string{in.AID, in.BID} {
			slots, err := busySlots(r, member, in.EventID, in.From, in.To)
			if err != nil {
				return err
			}
			for _, s := range slots {
				ivs = append(ivs, s.Interval)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	busy := interval.Merge(ivs)
	return &Pair{
		AID:  in.AID,
		BID:  in.BID,
		From: in.From,
		To:   in.To,
		Busy: busy,
		Free: interval.Gaps(busy, in.From, in.To, interval.MinutesToMillis(in.MinDurationMin)),
	}, nil
}
