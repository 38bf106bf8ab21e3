package roster

import (
	"context"
	"strconv"
	"strings"

	"github.com/primeslot/primeslot/pkg/apperr"
	"github.com/primeslot/primeslot/pkg/events"
	"github.com/primeslot/primeslot/pkg/metrics"
	"github.com/primeslot/primeslot/pkg/storage"
	"github.com/primeslot/primeslot/pkg/types"
)

// Canonical import field names
const (
	FieldFullName         = "fullName"
	FieldEmail            = "email"
	FieldPhone            = "phone"
	FieldChapterName      = "chapterName"
	FieldMemberStatus     = "memberStatus"
	FieldBusinessCategory = "businessCategory"
)

// Row is one parsed spreadsheet row. Line is its 1-based position in the
// source file, header included.
type Row struct {
	Line   int
	Fields map[string]string
}

// Blank reports whether every cell of the row is empty
func (r Row) Blank() bool {
	for _, v := range r.Fields {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (r Row) input() MemberInput {
	get := func(k string) string { return strings.TrimSpace(r.Fields[k]) }
	return MemberInput{
		FullName:         get(FieldFullName),
		Email:            get(FieldEmail),
		Phone:            get(FieldPhone),
		ChapterName:      get(FieldChapterName),
		MemberStatus:     get(FieldMemberStatus),
		BusinessCategory: get(FieldBusinessCategory),
	}
}

// RowError records a row that could not be imported
type RowError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// RowResult is the outcome of one non-blank row
type RowResult struct {
	Index    int    `json:"index"`
	OK       bool   `json:"ok"`
	Action   string `json:"action,omitempty"`
	MemberID string `json:"memberId,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ImportSummary aggregates an import run
type ImportSummary struct {
	TotalRows      int         `json:"totalRows"`
	CreatedMembers int         `json:"createdMembers"`
	UpdatedMembers int         `json:"updatedMembers"`
	LinkedToEvent  int         `json:"linkedToEvent"`
	AlreadyLinked  int         `json:"alreadyLinked"`
	Errors         []RowError  `json:"errors"`
	RowResults     []RowResult `json:"rowResults"`
}

const (
	actionCreated = "created"
	actionUpdated = "updated"
)

// Import upserts members from rows and links them to eventID. Rows are
// processed in order, each in its own transaction; a failing row is
// recorded and the batch continues. With dryRun nothing is written and
// no links are counted.
func (s *Service) Import(ctx context.Context, eventID string, rows []Row, dryRun bool) (*ImportSummary, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OperationDuration, "roster.import")

	err := s.store.View(ctx, func(r storage.Reader) error {
		return requireEvent(r, eventID)
	})
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{
		TotalRows:  len(rows),
		Errors:     []RowError{},
		RowResults: []RowResult{},
	}
	// Dry runs remember keys of hypothetical members so repeated rows
	// count the way a real run would.
	planned := make(map[string]bool)

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if row.Blank() {
			continue
		}
		index := row.Line
		if index == 0 {
			index = i + 1
		}

		var result RowResult
		var err error
		if dryRun {
			result, err = s.planRow(ctx, row, planned)
		} else {
			result, err = s.importRow(ctx, eventID, row, summary)
		}
		result.Index = index

		if err != nil {
			if apperr.KindOf(err) == apperr.KindUnavailable {
				return nil, err
			}
			msg := apperr.PublicMessage(err, false)
			summary.Errors = append(summary.Errors, RowError{Index: index, Message: msg})
			summary.RowResults = append(summary.RowResults, RowResult{Index: index, OK: false, Error: msg})
			if !dryRun {
				metrics.ImportRows.WithLabelValues("error").Inc()
			}
			continue
		}

		result.OK = true
		switch result.Action {
		case actionCreated:
			summary.CreatedMembers++
		case actionUpdated:
			summary.UpdatedMembers++
		}
		if !dryRun {
			metrics.ImportRows.WithLabelValues(result.Action).Inc()
		}
		summary.RowResults = append(summary.RowResults, result)
	}

	s.logger.Info().
		Str("event_id", eventID).
		Bool("dry_run", dryRun).
		Int("created", summary.CreatedMembers).
		Int("updated", summary.UpdatedMembers).
		Int("linked", summary.LinkedToEvent).
		Int("errors", len(summary.Errors)).
		Msg("member import finished")

	if !dryRun {
		events.Emit(s.publisher, events.EventImportCompleted, "member import finished", map[string]string{
			"event_id": eventID,
			"created":  strconv.Itoa(summary.CreatedMembers),
			"updated":  strconv.Itoa(summary.UpdatedMembers),
			"linked":   strconv.Itoa(summary.LinkedToEvent),
		})
	}
	return summary, nil
}

// planRow classifies a row without writing
func (s *Service) planRow(ctx context.Context, row Row, planned map[string]bool) (RowResult, error) {
	in := row.input()
	if err := in.validate(); err != nil {
		return RowResult{}, err
	}
	emailKey, phoneKey := EmailKey(in.Email), PhoneKey(in.Phone)

	var existing string
	err := s.store.View(ctx, func(r storage.Reader) error {
		var err error
		existing, err = findExisting(r, emailKey, phoneKey)
		if err != nil || existing == "" {
			return err
		}
		old, err := getMember(r, existing)
		if apperr.Is(err, apperr.KindNotFound) {
			existing = ""
			return nil
		} else if err != nil {
			return err
		}
		member := *old
		in.apply(&member)
		field, other, err := claimedByOther(r, &member, old)
		if err != nil {
			return err
		}
		if other != "" {
			return apperr.Conflict("%s already belongs to member %s", field, other)
		}
		return nil
	})
	if err != nil {
		return RowResult{}, err
	}

	seen := (emailKey != "" && planned["e:"+emailKey]) || (phoneKey != "" && planned["p:"+phoneKey])
	if existing != "" || seen {
		return RowResult{Action: actionUpdated, MemberID: existing}, nil
	}
	if emailKey != "" {
		planned["e:"+emailKey] = true
	}
	if phoneKey != "" {
		planned["p:"+phoneKey] = true
	}
	return RowResult{Action: actionCreated}, nil
}

// importRow upserts the row's member and links it, atomically
func (s *Service) importRow(ctx context.Context, eventID string, row Row, summary *ImportSummary) (RowResult, error) {
	in := row.input()
	if err := in.validate(); err != nil {
		return RowResult{}, err
	}

	var result RowResult
	var linked bool
	now := s.nowMillis()

	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		existingID, err := findExisting(tx, EmailKey(in.Email), PhoneKey(in.Phone))
		if err != nil {
			return err
		}

		var member *types.Member
		var old *types.Member
		if existingID != "" {
			old, err = getMember(tx, existingID)
			if apperr.Is(err, apperr.KindNotFound) {
				// Index points at a deleted member; treat as new.
				existingID, old = "", nil
			} else if err != nil {
				return err
			}
		}

		if old != nil {
			copied := *old
			member = &copied
			in.apply(member)
			member.UpdatedAt = now
			result = RowResult{Action: actionUpdated, MemberID: existingID}

			field, other, err := claimedByOther(tx, member, old)
			if err != nil {
				return err
			}
			if other != "" {
				return apperr.Conflict("%s already belongs to member %s", field, other)
			}
		} else {
			member = &types.Member{ID: storage.NewKey(), CreatedAt: now, UpdatedAt: now, UserProfile: &types.UserProfile{}}
			in.apply(member)
			result = RowResult{Action: actionCreated, MemberID: member.ID}
		}
		if err := writeMember(tx, member, old); err != nil {
			return err
		}

		already, err := IsLinked(tx, eventID, member.ID)
		if err != nil {
			return err
		}
		if already {
			linked = false
			return nil
		}
		status := member.MemberStatus
		if status == "" {
			status = "Pending"
		}
		linked = true
		return WriteLink(tx, eventID, member.ID, types.EventMember{
			Status:  status,
			Notes:   "",
			Tags:    []string{},
			AddedAt: now,
			Source:  types.LinkSourceImport,
		})
	})
	if err != nil {
		return RowResult{}, err
	}

	if linked {
		summary.LinkedToEvent++
	} else {
		summary.AlreadyLinked++
	}
	return result, nil
}
