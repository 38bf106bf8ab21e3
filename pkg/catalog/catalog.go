// Package catalog stores events and their by-day index.
package catalog

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/primeslot/primeslot/pkg/apperr"
	"github.com/primeslot/primeslot/pkg/events"
	"github.com/primeslot/primeslot/pkg/log"
	"github.com/primeslot/primeslot/pkg/paging"
	"github.com/primeslot/primeslot/pkg/storage"
	"github.com/primeslot/primeslot/pkg/types"
)

const (
	defaultPageSize = 12
	maxPageSize     = 50
)

// EventInput describes a new event
type EventInput struct {
	Title       string            `json:"title"`
	Date        *types.FlexMillis `json:"date"`
	Location    string            `json:"location"`
	Description string            `json:"description"`
	Status      types.EventStatus `json:"status"`
}

// EventPatch changes the non-nil fields of an event
type EventPatch struct {
	Title       *string            `json:"title"`
	Date        *types.FlexMillis  `json:"date"`
	Location    *string            `json:"location"`
	Description *string            `json:"description"`
	Status      *types.EventStatus `json:"status"`
}

// EventQuery filters List. Day (yyyymmdd) takes precedence over the
// From/To range.
type EventQuery struct {
	Page     int
	PageSize int
	Day      string
	From     *types.Millis
	To       *types.Millis
	Q        string
	Status   types.EventStatus
}

// EventPage is one page of events
type EventPage struct {
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
	Total    int            `json:"total"`
	Records  []*types.Event `json:"records"`
}

// EventSummary counts events on either side of the current time
type EventSummary struct {
	Total    int `json:"total"`
	Upcoming int `json:"upcoming"`
	Past     int `json:"past"`
}

// Service manages the event catalog
type Service struct {
	store     storage.Store
	publisher events.Publisher
	now       func() time.Time
	logger    zerolog.Logger
}

// NewService creates a catalog service. publisher may be nil.
func NewService(store storage.Store, publisher events.Publisher) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		now:       time.Now,
		logger:    log.WithComponent("catalog"),
	}
}

// DayKey formats ms as the UTC yyyymmdd index key
func DayKey(ms types.Millis) string {
	return time.UnixMilli(ms).UTC().Format("20060102")
}

// Create stores a new event and indexes it by day
func (s *Service) Create(ctx context.Context, actor string, in EventInput) (*types.Event, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.Validation("title required")
	}
	if strings.TrimSpace(in.Location) == "" {
		return nil, apperr.Validation("location required")
	}
	if in.Date == nil || *in.Date <= 0 {
		return nil, apperr.Validation("date required")
	}
	if in.Status == "" {
		in.Status = types.EventStatusDraft
	}
	if !in.Status.Valid() {
		return nil, apperr.Validation("invalid status %q", in.Status)
	}

	now := s.now().UnixMilli()
	e := &types.Event{
		ID:          storage.NewKey(),
		Title:       strings.TrimSpace(in.Title),
		Date:        types.Millis(*in.Date),
		Location:    strings.TrimSpace(in.Location),
		Description: in.Description,
		Status:      in.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
		CreatedBy:   actor,
	}

	record := *e
	record.ID = ""
	err := s.store.MultiUpdate(ctx, map[string]any{
		storage.EventPath(e.ID):                        record,
		storage.EventsByDatePath(DayKey(e.Date), e.ID): true,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("event_id", e.ID).Str("title", e.Title).Msg("event created")
	events.Emit(s.publisher, events.EventEventCreated, "event created", map[string]string{"event_id": e.ID})
	return e, nil
}

func validateEventID(id string) error {
	if id == "" || id == "undefined" {
		return apperr.Validation("missing valid event id")
	}
	if !storage.ValidKey(id) {
		return apperr.Validation("invalid event id %q", id)
	}
	return nil
}

func getEvent(r storage.Reader, id string) (*types.Event, error) {
	var e types.Event
	found, err := r.Get(storage.EventPath(id), &e)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound("event %s", id)
	}
	e.ID = id
	return &e, nil
}

// Get returns an event by id
func (s *Service) Get(ctx context.Context, id string) (*types.Event, error) {
	if err := validateEventID(id); err != nil {
		return nil, err
	}
	var e *types.Event
	err := s.store.View(ctx, func(r storage.Reader) error {
		var err error
		e, err = getEvent(r, id)
		return err
	})
	return e, err
}

// Update applies patch, moving the day index when the date changes
func (s *Service) Update(ctx context.Context, id string, patch EventPatch) (*types.Event, error) {
	if err := validateEventID(id); err != nil {
		return nil, err
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, apperr.Validation("title cannot be empty")
	}
	if patch.Location != nil && strings.TrimSpace(*patch.Location) == "" {
		return nil, apperr.Validation("location cannot be empty")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, apperr.Validation("invalid status %q", *patch.Status)
	}
	if patch.Date != nil && *patch.Date <= 0 {
		return nil, apperr.Validation("invalid date")
	}

	var updated *types.Event
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		e, err := getEvent(tx, id)
		if err != nil {
			return err
		}
		oldDay := DayKey(e.Date)

		if patch.Title != nil {
			e.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Date != nil {
			e.Date = types.Millis(*patch.Date)
		}
		if patch.Location != nil {
			e.Location = strings.TrimSpace(*patch.Location)
		}
		if patch.Description != nil {
			e.Description = *patch.Description
		}
		if patch.Status != nil {
			e.Status = *patch.Status
		}
		e.UpdatedAt = s.now().UnixMilli()

		if newDay := DayKey(e.Date); newDay != oldDay {
			if err := tx.Remove(storage.EventsByDatePath(oldDay, id)); err != nil {
				return err
			}
			if err := tx.Set(storage.EventsByDatePath(newDay, id), true); err != nil {
				return err
			}
		}

		record := *e
		record.ID = ""
		updated = e
		return tx.Set(storage.EventPath(id), record)
	})
	if err != nil {
		return nil, err
	}

	events.Emit(s.publisher, events.EventEventUpdated, "event updated", map[string]string{"event_id": id})
	return updated, nil
}

// List pages through events, newest date first
func (s *Service) List(ctx context.Context, q EventQuery) (*EventPage, error) {
	page, pageSize := paging.Normalize(q.Page, q.PageSize, defaultPageSize, maxPageSize)
	if q.Status != "" && !q.Status.Valid() {
		return nil, apperr.Validation("invalid status %q", q.Status)
	}
	if q.Day != "" {
		if _, err := time.Parse("20060102", q.Day); err != nil {
			return nil, apperr.Validation("day must be YYYYMMDD")
		}
	}

	records := []*types.Event{}
	err := s.store.View(ctx, func(r storage.Reader) error {
		var ids []string
		var err error
		if q.Day != "" {
			ids, err = r.Keys(storage.Join(storage.RootEventsByDate, q.Day))
		} else {
			ids, err = r.Keys(storage.Join(storage.RootEvents))
		}
		if err != nil {
			return err
		}
		for _, id := range ids {
			e, err := getEvent(r, id)
			if apperr.Is(err, apperr.KindNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			records = append(records, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(q.Q))
	filtered := records[:0]
	for _, e := range records {
		if q.Status != "" && e.Status != q.Status {
			continue
		}
		if q.From != nil && e.Date < *q.From {
			continue
		}
		if q.To != nil && e.Date > *q.To {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(e.Title), needle) &&
			!strings.Contains(strings.ToLower(e.Location), needle) {
			continue
		}
		filtered = append(filtered, e)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Date != filtered[j].Date {
			return filtered[i].Date > filtered[j].Date
		}
		return filtered[i].ID < filtered[j].ID
	})

	return &EventPage{
		Page:     page,
		PageSize: pageSize,
		Total:    len(filtered),
		Records:  paging.Slice(filtered, page, pageSize),
	}, nil
}

// Summary counts all events, splitting them at now. An event dated now
// or later is upcoming.
func (s *Service) Summary(ctx context.Context) (*EventSummary, error) {
	now := types.Millis(s.now().UnixMilli())
	sum := &EventSummary{}
	err := s.store.View(ctx, func(r storage.Reader) error {
		var all map[string]types.Event
		if _, err := r.Get(storage.Join(storage.RootEvents), &all); err != nil {
			return err
		}
		for _, e := range all {
			sum.Total++
			if e.Date >= now {
				sum.Upcoming++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sum.Past = sum.Total - sum.Upcoming
	return sum, nil
}
