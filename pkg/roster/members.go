package roster

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/primeslot/primeslot/pkg/apperr"
	"github.com/primeslot/primeslot/pkg/events"
	"github.com/primeslot/primeslot/pkg/paging"
	"github.com/primeslot/primeslot/pkg/storage"
	"github.com/primeslot/primeslot/pkg/types"
)

// MemberInput is the profile of a new member
type MemberInput struct {
	FullName         string `json:"fullName"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	ChapterName      string `json:"chapterName"`
	MemberStatus     string `json:"memberStatus"`
	BusinessCategory string `json:"businessCategory"`
}

// MemberPatch changes the non-nil fields of a member
type MemberPatch struct {
	FullName         *string `json:"fullName"`
	Email            *string `json:"email"`
	Phone            *string `json:"phone"`
	ChapterName      *string `json:"chapterName"`
	MemberStatus     *string `json:"memberStatus"`
	BusinessCategory *string `json:"businessCategory"`
}

// MemberQuery filters ListMembers
type MemberQuery struct {
	Page     int
	PageSize int
	Q        string
}

// MemberPage is one page of members
type MemberPage struct {
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
	Total    int             `json:"total"`
	Records  []*types.Member `json:"records"`
}

func validateMemberID(id string) error {
	if id == "" || id == "undefined" {
		return apperr.Validation("missing valid member id")
	}
	if !storage.ValidKey(id) {
		return apperr.Validation("invalid member id %q", id)
	}
	return nil
}

func (in MemberInput) validate() error {
	if strings.TrimSpace(in.FullName) == "" {
		return apperr.Validation("fullName required")
	}
	if in.Email != "" {
		if !ValidEmail(strings.TrimSpace(in.Email)) {
			return apperr.Validation("invalid email %q", in.Email)
		}
		if !storage.ValidKey(EmailKey(in.Email)) {
			return apperr.Validation("email %q cannot be indexed", in.Email)
		}
	}
	return nil
}

// apply copies the profile onto m. Empty optional fields leave m unchanged.
func (in MemberInput) apply(m *types.Member) {
	m.FullName = strings.TrimSpace(in.FullName)
	if e := strings.TrimSpace(in.Email); e != "" {
		m.Email = strings.ToLower(e)
	}
	if p := strings.TrimSpace(in.Phone); p != "" {
		m.PhoneRaw = p
		m.Phone = PhoneKey(p)
	}
	if in.ChapterName != "" {
		m.ChapterName = strings.TrimSpace(in.ChapterName)
	}
	if in.MemberStatus != "" {
		m.MemberStatus = strings.TrimSpace(in.MemberStatus)
	}
	if in.BusinessCategory != "" {
		m.BusinessCategory = strings.TrimSpace(in.BusinessCategory)
	}
}

// findExisting looks a member up by email key first, then phone key
func findExisting(r storage.Reader, emailKey, phoneKey string) (string, error) {
	if emailKey != "" {
		ids, err := r.Keys(storage.Join(storage.RootMemberIndex, "byEmail", emailKey))
		if err != nil {
			return "", err
		}
		if len(ids) > 0 {
			return ids[0], nil
		}
	}
	if phoneKey != "" {
		ids, err := r.Keys(storage.Join(storage.RootMemberIndex, "byPhone", phoneKey))
		if err != nil {
			return "", err
		}
		if len(ids) > 0 {
			return ids[0], nil
		}
	}
	return "", nil
}

// claimedByOther reports the first email or phone of m that differs from
// old and is already indexed under another member. old may be nil.
func claimedByOther(r storage.Reader, m, old *types.Member) (field, owner string, err error) {
	keys := []struct {
		field, index, key, prev string
	}{
		{field: "email", index: "byEmail", key: EmailKey(m.Email)},
		{field: "phone", index: "byPhone", key: PhoneKey(m.Phone)},
	}
	if old != nil {
		keys[0].prev = EmailKey(old.Email)
		keys[1].prev = PhoneKey(old.Phone)
	}

	for _, k := range keys {
		if k.key == "" || k.key == k.prev {
			continue
		}
		ids, err := r.Keys(storage.Join(storage.RootMemberIndex, k.index, k.key))
		if err != nil {
			return "", "", err
		}
		for _, id := range ids {
			if id != m.ID {
				return k.field, id, nil
			}
		}
	}
	return "", "", nil
}

// writeMember stores m and brings the email/phone indexes in line with
// it. old is the previous record, or nil for a new member.
func writeMember(tx storage.Tx, m *types.Member, old *types.Member) error {
	id := m.ID
	record := *m
	record.ID = ""
	if err := tx.Set(storage.MemberPath(id), record); err != nil {
		return err
	}

	if old != nil {
		if k := EmailKey(old.Email); k != "" && k != EmailKey(m.Email) {
			if err := tx.Remove(storage.EmailIndexPath(k, id)); err != nil {
				return err
			}
		}
		if k := PhoneKey(old.Phone); k != "" && k != PhoneKey(m.Phone) {
			if err := tx.Remove(storage.PhoneIndexPath(k, id)); err != nil {
				return err
			}
		}
	}
	if k := EmailKey(m.Email); k != "" {
		if err := tx.Set(storage.EmailIndexPath(k, id), true); err != nil {
			return err
		}
	}
	if k := PhoneKey(m.Phone); k != "" {
		if err := tx.Set(storage.PhoneIndexPath(k, id), true); err != nil {
			return err
		}
	}
	return nil
}

func getMember(r storage.Reader, id string) (*types.Member, error) {
	var m types.Member
	found, err := r.Get(storage.MemberPath(id), &m)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound("member %s", id)
	}
	m.ID = id
	return &m, nil
}

// CreateMember stores a new member. A member whose email or phone is
// already indexed is a conflict.
func (s *Service) CreateMember(ctx context.Context, in MemberInput) (*types.Member, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	m := &types.Member{ID: storage.NewKey()}
	in.apply(m)
	now := s.nowMillis()
	m.CreatedAt, m.UpdatedAt = now, now
	m.UserProfile = &types.UserProfile{}

	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		existing, err := findExisting(tx, EmailKey(m.Email), PhoneKey(m.Phone))
		if err != nil {
			return err
		}
		if existing != "" {
			return apperr.Conflict("member with this email or phone already exists: %s", existing)
		}
		return writeMember(tx, m, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("member_id", m.ID).Msg("member created")
	events.Emit(s.publisher, events.EventMemberCreated, "member created", map[string]string{"member_id": m.ID})
	return m, nil
}

// GetMember returns a member by id
func (s *Service) GetMember(ctx context.Context, id string) (*types.Member, error) {
	if err := validateMemberID(id); err != nil {
		return nil, err
	}
	var m *types.Member
	err := s.store.View(ctx, func(r storage.Reader) error {
		var err error
		m, err = getMember(r, id)
		return err
	})
	return m, err
}

// UpdateMember applies patch and re-indexes email and phone
func (s *Service) UpdateMember(ctx context.Context, id string, patch MemberPatch) (*types.Member, error) {
	if err := validateMemberID(id); err != nil {
		return nil, err
	}
	if patch.FullName != nil && strings.TrimSpace(*patch.FullName) == "" {
		return nil, apperr.Validation("fullName cannot be empty")
	}
	if patch.Email != nil && *patch.Email != "" {
		if !ValidEmail(strings.TrimSpace(*patch.Email)) || !storage.ValidKey(EmailKey(*patch.Email)) {
			return nil, apperr.Validation("invalid email %q", *patch.Email)
		}
	}

	var updated *types.Member
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		old, err := getMember(tx, id)
		if err != nil {
			return err
		}
		m := *old
		if patch.FullName != nil {
			m.FullName = strings.TrimSpace(*patch.FullName)
		}
		if patch.Email != nil {
			m.Email = strings.ToLower(strings.TrimSpace(*patch.Email))
		}
		if patch.Phone != nil {
			m.PhoneRaw = strings.TrimSpace(*patch.Phone)
			m.Phone = PhoneKey(*patch.Phone)
		}
		if patch.ChapterName != nil {
			m.ChapterName = *patch.ChapterName
		}
		if patch.MemberStatus != nil {
			m.MemberStatus = *patch.MemberStatus
		}
		if patch.BusinessCategory != nil {
			m.BusinessCategory = *patch.BusinessCategory
		}

		field, other, err := claimedByOther(tx, &m, old)
		if err != nil {
			return err
		}
		if other != "" {
			return apperr.Conflict("%s already belongs to member %s", field, other)
		}

		m.UpdatedAt = s.nowMillis()
		updated = &m
		return writeMember(tx, &m, old)
	})
	if err != nil {
		return nil, err
	}

	events.Emit(s.publisher, events.EventMemberUpdated, "member updated", map[string]string{"member_id": id})
	return updated, nil
}

// ApproveProfile toggles the approval flag of the member's profile
func (s *Service) ApproveProfile(ctx context.Context, id string, approved bool) (*types.Member, error) {
	if err := validateMemberID(id); err != nil {
		return nil, err
	}
	var updated *types.Member
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		m, err := getMember(tx, id)
		if err != nil {
			return err
		}
		if m.UserProfile == nil {
			m.UserProfile = &types.UserProfile{}
		}
		m.UserProfile.Approved = approved
		m.UpdatedAt = s.nowMillis()
		updated = m
		return tx.Update(storage.MemberPath(id), map[string]any{
			"userProfile/approved": approved,
			"updatedAt":            m.UpdatedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	events.Emit(s.publisher, events.EventMemberUpdated, "member approval changed", map[string]string{"member_id": id})
	return updated, nil
}

// DeleteMember removes a member together with its indexes, event links
// and own meeting mirrors. Members with open meetings cannot be deleted.
func (s *Service) DeleteMember(ctx context.Context, id string) error {
	if err := validateMemberID(id); err != nil {
		return err
	}
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		m, err := getMember(tx, id)
		if err != nil {
			return err
		}

		var mirrors map[string]map[string]types.MeetingIndex
		if _, err := tx.Get(storage.MemberMeetingsPath(id), &mirrors); err != nil {
			return err
		}
		for _, byMeeting := range mirrors {
			for meetingID, mirror := range byMeeting {
				if mirror.Status.Blocking() {
					return apperr.Conflict("member %s has open meeting %s", id, meetingID)
				}
			}
		}

		eventIDs, err := tx.Keys(storage.MemberEventsPath(id))
		if err != nil {
			return err
		}
		for _, eventID := range eventIDs {
			if err := tx.Remove(storage.EventMemberPath(eventID, id)); err != nil {
				return err
			}
		}
		if k := EmailKey(m.Email); k != "" {
			if err := tx.Remove(storage.EmailIndexPath(k, id)); err != nil {
				return err
			}
		}
		if k := PhoneKey(m.Phone); k != "" {
			if err := tx.Remove(storage.PhoneIndexPath(k, id)); err != nil {
				return err
			}
		}
		for _, p := range []string{storage.MemberEventsPath(id), storage.MemberMeetingsPath(id), storage.MemberPath(id)} {
			if err := tx.Remove(p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("member_id", id).Msg("member deleted")
	return nil
}

// ListMembers pages through members, newest first, optionally filtered by
// a case-insensitive match on name, email or phone.
func (s *Service) ListMembers(ctx context.Context, q MemberQuery) (*MemberPage, error) {
	page, pageSize := paging.Normalize(q.Page, q.PageSize, 20, 100)

	var all map[string]*types.Member
	if _, err := s.store.Get(ctx, storage.Join(storage.RootMembers), &all); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	needle := strings.ToLower(strings.TrimSpace(q.Q))
	records := make([]*types.Member, 0, len(all))
	for id, m := range all {
		m.ID = id
		if needle != "" && !matchesMember(m, needle) {
			continue
		}
		records = append(records, m)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt > records[j].CreatedAt
		}
		return records[i].ID < records[j].ID
	})

	return &MemberPage{
		Page:     page,
		PageSize: pageSize,
		Total:    len(records),
		Records:  paging.Slice(records, page, pageSize),
	}, nil
}

func matchesMember(m *types.Member, needle string) bool {
	for _, field := range []string{m.FullName, m.Email, m.Phone, m.ChapterName, m.BusinessCategory} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
