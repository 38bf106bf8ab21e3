package roster

import (
	"context"
	"sort"

	"github.com/primeslot/primeslot/pkg/apperr"
	"github.com/primeslot/primeslot/pkg/events"
	"github.com/primeslot/primeslot/pkg/storage"
	"github.com/primeslot/primeslot/pkg/types"
)

// LinkInput describes a new event membership
type LinkInput struct {
	Status string   `json:"status"`
	Role   string   `json:"role"`
	Notes  string   `json:"notes"`
	Seat   string   `json:"seat"`
	Tags   []string `json:"tags"`
}

// LinkPatch changes the non-nil fields of a link
type LinkPatch struct {
	Status *string   `json:"status"`
	Role   *string   `json:"role"`
	Notes  *string   `json:"notes"`
	Seat   *string   `json:"seat"`
	Tags   *[]string `json:"tags"`
}

// EventMemberView is a member together with its link to one event
type EventMemberView struct {
	*types.Member
	Link types.EventMember `json:"link"`
}

// IsLinked reports whether memberID has an EventMember link for eventID
func IsLinked(r storage.Reader, eventID, memberID string) (bool, error) {
	return r.Exists(storage.EventMemberPath(eventID, memberID))
}

// WriteLink stores a link and its memberEvents reverse entry
func WriteLink(tx storage.Tx, eventID, memberID string, link types.EventMember) error {
	if link.Tags == nil {
		link.Tags = []string{}
	}
	if err := tx.Set(storage.EventMemberPath(eventID, memberID), link); err != nil {
		return err
	}
	return tx.Set(storage.MemberEventPath(memberID, eventID), true)
}

// RemoveLink deletes a link and its reverse entry
func RemoveLink(tx storage.Tx, eventID, memberID string) error {
	if err := tx.Remove(storage.EventMemberPath(eventID, memberID)); err != nil {
		return err
	}
	return tx.Remove(storage.MemberEventPath(memberID, eventID))
}

func requireEvent(r storage.Reader, eventID string) error {
	if eventID == "" || eventID == "undefined" {
		return apperr.Validation("missing valid event id")
	}
	if !storage.ValidKey(eventID) {
		return apperr.Validation("invalid event id %q", eventID)
	}
	found, err := r.Exists(storage.EventPath(eventID))
	if err != nil {
		return err
	}
	if !found {
		return apperr.NotFound("event %s", eventID)
	}
	return nil
}

func getLink(r storage.Reader, eventID, memberID string) (*types.EventMember, error) {
	var link types.EventMember
	found, err := r.Get(storage.EventMemberPath(eventID, memberID), &link)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound("member %s in event %s", memberID, eventID)
	}
	return &link, nil
}

// Link adds an existing member to an event
func (s *Service) Link(ctx context.Context, eventID, memberID string, in LinkInput) (*types.EventMember, error) {
	if err := validateMemberID(memberID); err != nil {
		return nil, err
	}

	link := types.EventMember{
		Status:  in.Status,
		Role:    in.Role,
		Notes:   in.Notes,
		Seat:    in.Seat,
		Tags:    in.Tags,
		AddedAt: s.nowMillis(),
		Source:  types.LinkSourceAdmin,
	}
	if link.Status == "" {
		link.Status = "Active"
	}

	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		if err := requireEvent(tx, eventID); err != nil {
			return err
		}
		if _, err := getMember(tx, memberID); err != nil {
			return err
		}
		linked, err := IsLinked(tx, eventID, memberID)
		if err != nil {
			return err
		}
		if linked {
			return apperr.Conflict("member %s is already in event %s", memberID, eventID)
		}
		return WriteLink(tx, eventID, memberID, link)
	})
	if err != nil {
		return nil, err
	}

	events.Emit(s.publisher, events.EventMemberLinked, "member linked to event",
		map[string]string{"event_id": eventID, "member_id": memberID})
	if link.Tags == nil {
		link.Tags = []string{}
	}
	return &link, nil
}

// GetLink returns the link between an event and a member
func (s *Service) GetLink(ctx context.Context, eventID, memberID string) (*EventMemberView, error) {
	var view *EventMemberView
	err := s.store.View(ctx, func(r storage.Reader) error {
		if err := validateMemberID(memberID); err != nil {
			return err
		}
		link, err := getLink(r, eventID, memberID)
		if err != nil {
			return err
		}
		m, err := getMember(r, memberID)
		if apperr.Is(err, apperr.KindNotFound) {
			m = &types.Member{ID: memberID}
		} else if err != nil {
			return err
		}
		view = &EventMemberView{Member: m, Link: *link}
		return nil
	})
	return view, err
}

// PatchLink edits an existing link
func (s *Service) PatchLink(ctx context.Context, eventID, memberID string, patch LinkPatch) (*types.EventMember, error) {
	if err := validateMemberID(memberID); err != nil {
		return nil, err
	}

	var updated *types.EventMember
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		link, err := getLink(tx, eventID, memberID)
		if err != nil {
			return err
		}
		if patch.Status != nil {
			link.Status = *patch.Status
		}
		if patch.Role != nil {
			link.Role = *patch.Role
		}
		if patch.Notes != nil {
			link.Notes = *patch.Notes
		}
		if patch.Seat != nil {
			link.Seat = *patch.Seat
		}
		if patch.Tags != nil {
			link.Tags = *patch.Tags
		}
		updated = link
		return WriteLink(tx, eventID, memberID, *link)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Unlink removes a member from an event, including the reverse index
func (s *Service) Unlink(ctx context.Context, eventID, memberID string) error {
	if err := validateMemberID(memberID); err != nil {
		return err
	}
	err := s.store.Transact(ctx, func(tx storage.Tx) error {
		if _, err := getLink(tx, eventID, memberID); err != nil {
			return err
		}
		return RemoveLink(tx, eventID, memberID)
	})
	if err != nil {
		return err
	}
	events.Emit(s.publisher, events.EventMemberUnlinked, "member removed from event",
		map[string]string{"event_id": eventID, "member_id": memberID})
	return nil
}

// ListEventMembers returns every member linked to eventID, by name
func (s *Service) ListEventMembers(ctx context.Context, eventID string) ([]*EventMemberView, error) {
	records := []*EventMemberView{}
	err := s.store.View(ctx, func(r storage.Reader) error {
		if err := requireEvent(r, eventID); err != nil {
			return err
		}
		var links map[string]types.EventMember
		if _, err := r.Get(storage.EventMembersPath(eventID), &links); err != nil {
			return err
		}
		for memberID, link := range links {
			m, err := getMember(r, memberID)
			if apperr.Is(err, apperr.KindNotFound) {
				m = &types.Member{ID: memberID}
			} else if err != nil {
				return err
			}
			records = append(records, &EventMemberView{Member: m, Link: link})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].FullName != records[j].FullName {
			return records[i].FullName < records[j].FullName
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}
