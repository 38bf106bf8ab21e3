package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/primeslot/primeslot/pkg/interval"
	"github.com/primeslot/primeslot/pkg/storage"
	"github.com/primeslot/primeslot/pkg/types"
)

// Result counts what a migration pass changed or would change
type Result struct {
	Scanned          int
	Rewritten        int
	StatusNormalized int
	DurationDefaults int
	EndTimeFixed     int
	Unknown          int
}

type meetingFix struct {
	path   string
	fields map[string]any
}

// migrateMeetings rewrites legacy status spellings, fills missing
// durations and recomputes endTime for every meeting record
func migrateMeetings(ctx context.Context, store storage.Store, defaultDurationMin int, dryRun bool, logger zerolog.Logger) (*Result, error) {
	var (
		result *Result
		fixes  []meetingFix
	)
	plan := func(r storage.Reader) error {
		var err error
		result, fixes, err = planMeetingFixes(r, defaultDurationMin, logger)
		return err
	}

	if dryRun {
		if err := store.View(ctx, plan); err != nil {
			return nil, err
		}
		return result, nil
	}

	err := store.Transact(ctx, func(tx storage.Tx) error {
		if err := plan(tx); err != nil {
			return err
		}
		for _, f := range fixes {
			if err := tx.Update(f.path, f.fields); err != nil {
				return fmt.Errorf("failed to rewrite %s: %w", f.path, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func planMeetingFixes(r storage.Reader, defaultDurationMin int, logger zerolog.Logger) (*Result, []meetingFix, error) {
	result := &Result{}
	var fixes []meetingFix

	eventIDs, err := r.Keys(storage.Join(storage.RootMeetings))
	if err != nil {
		return nil, nil, err
	}
	for _, eventID := range eventIDs {
		meetingIDs, err := r.Keys(storage.EventMeetingsPath(eventID))
		if err != nil {
			return nil, nil, err
		}
		for _, meetingID := range meetingIDs {
			path := storage.MeetingPath(eventID, meetingID)
			var m types.Meeting
			found, err := r.Get(path, &m)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
			}
			if !found {
				continue
			}
			result.Scanned++

			fields := map[string]any{}
			if !m.Status.Canonical() {
				status, ok := types.ParseMeetingStatus(string(m.Status))
				if !ok {
					result.Unknown++
					logger.Warn().
						Str("event_id", eventID).
						Str("meeting_id", meetingID).
						Str("status", string(m.Status)).
						Msg("Unknown meeting status left unchanged")
				} else {
					fields["status"] = string(status)
					result.StatusNormalized++
				}
			}
			if m.DurationMin <= 0 {
				m.DurationMin = defaultDurationMin
				fields["durationMin"] = m.DurationMin
				result.DurationDefaults++
			}
			if end := m.ScheduledAt + interval.MinutesToMillis(m.DurationMin); end != m.EndTime {
				fields["endTime"] = end
				result.EndTimeFixed++
			}

			if len(fields) > 0 {
				fixes = append(fixes, meetingFix{path: path, fields: fields})
				result.Rewritten++
			}
		}
	}
	return result, fixes, nil
}
