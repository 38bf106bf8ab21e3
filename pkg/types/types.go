package types

import (
	"strings"
	"time"
)

// Millis is a point in time as integer milliseconds since the Unix epoch
type Millis = int64

// ToMillis converts t to epoch milliseconds
func ToMillis(t time.Time) Millis {
	return t.UnixMilli()
}

// EventStatus is the publication state of an event
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusArchived  EventStatus = "archived"
)

// Valid reports whether s is a known event status
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusDraft, EventStatusPublished, EventStatusArchived:
		return true
	}
	return false
}

// Event is a networking occasion with its own roster and meetings
type Event struct {
	ID          string      `json:"id,omitempty"`
	Title       string      `json:"title"`
	Date        Millis      `json:"date"`
	Location    string      `json:"location"`
	Description string      `json:"description"`
	Status      EventStatus `json:"status"`
	CreatedAt   Millis      `json:"createdAt"`
	UpdatedAt   Millis      `json:"updatedAt"`
	CreatedBy   string      `json:"createdBy,omitempty"`
}

// UserProfile is the member-facing part of a member record
type UserProfile struct {
	Approved bool   `json:"approved"`
	PhotoURL string `json:"photoURL,omitempty"`
	Type     string `json:"type,omitempty"`
}

// Member is a person who can join events and meetings
type Member struct {
	ID               string       `json:"id,omitempty"`
	FullName         string       `json:"fullName"`
	Email            string       `json:"email,omitempty"`
	Phone            string       `json:"phone,omitempty"`
	PhoneRaw         string       `json:"phoneRaw,omitempty"`
	ChapterName      string       `json:"chapterName,omitempty"`
	MemberStatus     string       `json:"memberStatus,omitempty"`
	BusinessCategory string       `json:"businessCategory,omitempty"`
	UserProfile      *UserProfile `json:"userProfile,omitempty"`
	CreatedAt        Millis       `json:"createdAt"`
	UpdatedAt        Millis       `json:"updatedAt"`
}

// Link sources
const (
	LinkSourceImport      = "import"
	LinkSourceAdmin       = "admin"
	LinkSourceAutoRequest = "auto-request"
)

// EventMember links a member to an event
type EventMember struct {
	Status  string   `json:"status"`
	Role    string   `json:"role,omitempty"`
	Notes   string   `json:"notes"`
	Seat    string   `json:"seat,omitempty"`
	Tags    []string `json:"tags"`
	AddedAt Millis   `json:"addedAt"`
	Source  string   `json:"source"`
}

// MeetingStatus is the lifecycle state of a meeting
type MeetingStatus string

const (
	MeetingPending   MeetingStatus = "pending"
	MeetingApproved  MeetingStatus = "approved"
	MeetingCompleted MeetingStatus = "completed"
	MeetingCanceled  MeetingStatus = "canceled"
)

// legacyScheduled was the entry state of admin-created meetings
const legacyScheduled = "scheduled"

// ParseMeetingStatus normalises stored or client-supplied status strings,
// including capitalised and legacy values. ok is false for unknown input.
func ParseMeetingStatus(s string) (MeetingStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", legacyScheduled:
		return MeetingPending, true
	case "approved":
		return MeetingApproved, true
	case "completed":
		return MeetingCompleted, true
	case "canceled", "cancelled":
		return MeetingCanceled, true
	}
	return "", false
}

// Canonical reports whether s is already in canonical form
func (s MeetingStatus) Canonical() bool {
	c, ok := ParseMeetingStatus(string(s))
	return ok && c == s
}

// Blocking reports whether a meeting in this status occupies time
func (s MeetingStatus) Blocking() bool {
	c, _ := ParseMeetingStatus(string(s))
	return c == MeetingPending || c == MeetingApproved
}

// Terminal reports whether no further transitions are allowed
func (s MeetingStatus) Terminal() bool {
	return s == MeetingCompleted || s == MeetingCanceled
}

var transitions = map[MeetingStatus][]MeetingStatus{
	MeetingPending:  {MeetingApproved, MeetingCanceled},
	MeetingApproved: {MeetingCompleted, MeetingCanceled},
}

// CanTransition reports whether from → to is a legal lifecycle step
func CanTransition(from, to MeetingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// MeetingStatuses lists every canonical status
func MeetingStatuses() []MeetingStatus {
	return []MeetingStatus{MeetingPending, MeetingApproved, MeetingCompleted, MeetingCanceled}
}

// MeetingMode is where a meeting happens
type MeetingMode string

const (
	ModeInPerson MeetingMode = "inperson"
	ModeOnline   MeetingMode = "online"
)

// Valid reports whether m is a known mode
func (m MeetingMode) Valid() bool {
	return m == ModeInPerson || m == ModeOnline
}

// Meeting is a one-to-one meeting between two members of an event
type Meeting struct {
	ID                string        `json:"id,omitempty"`
	EventID           string        `json:"eventId,omitempty"`
	AID               string        `json:"aId"`
	BID               string        `json:"bId"`
	ScheduledAt       Millis        `json:"scheduledAt"`
	DurationMin       int           `json:"durationMin"`
	EndTime           Millis        `json:"endTime"`
	Mode              MeetingMode   `json:"mode"`
	Place             string        `json:"place"`
	Topic             string        `json:"topic"`
	Notes             string        `json:"notes"`
	Status            MeetingStatus `json:"status"`
	Outcome           string        `json:"outcome,omitempty"`
	ReferralsGivenByA int           `json:"referralsGivenByA"`
	ReferralsGivenByB int           `json:"referralsGivenByB"`
	BusinessGivenByA  float64       `json:"businessGivenByA"`
	BusinessGivenByB  float64       `json:"businessGivenByB"`
	CreatedAt         Millis        `json:"createdAt"`
	UpdatedAt         Millis        `json:"updatedAt"`
	CreatedBy         string        `json:"createdBy,omitempty"`
}

// Involves reports whether memberID is a participant
func (m *Meeting) Involves(memberID string) bool {
	return m.AID == memberID || m.BID == memberID
}

// OtherParty returns the participant that is not memberID
func (m *Meeting) OtherParty(memberID string) string {
	if m.AID == memberID {
		return m.BID
	}
	return m.AID
}

// MeetingIndex is the per-member mirror of a meeting
type MeetingIndex struct {
	EventID      string        `json:"eventId"`
	MeetingID    string        `json:"meetingId"`
	ScheduledAt  Millis        `json:"scheduledAt"`
	DurationMin  int           `json:"durationMin"`
	EndTime      Millis        `json:"endTime"`
	Status       MeetingStatus `json:"status"`
	OtherPartyID string        `json:"otherPartyId"`
	Topic        string        `json:"topic"`
}

// NotificationType names a notification
type NotificationType string

const (
	NotifyMeetingRequest  NotificationType = "meeting_request"
	NotifyMeetingAccepted NotificationType = "meeting_accepted"
	NotifyMeetingDeclined NotificationType = "meeting_declined"
	NotifyMeetingUpdated  NotificationType = "meeting_updated"
)

// Notification is a side-effect record written for a member
type Notification struct {
	ID        string           `json:"id,omitempty"`
	Type      NotificationType `json:"type"`
	MeetingID string           `json:"meetingId"`
	EventID   string           `json:"eventId"`
	From      string           `json:"from,omitempty"`
	To        string           `json:"to,omitempty"`
	By        string           `json:"by,omitempty"`
	Message   string           `json:"message,omitempty"`
	Status    MeetingStatus    `json:"status,omitempty"`
	CreatedAt Millis           `json:"createdAt"`
	Read      bool             `json:"read"`
}

// IdentityKind distinguishes administrators from members
type IdentityKind string

const (
	IdentityAdmin  IdentityKind = "admin"
	IdentityMember IdentityKind = "member"
)

// Identity is the resolved caller of a request
type Identity struct {
	Kind IdentityKind `json:"kind"`
	ID   string       `json:"id"`
}

// IsAdmin reports whether the identity is an administrator
func (i Identity) IsAdmin() bool {
	return i.Kind == IdentityAdmin
}

// CanActAs reports whether the identity may act on behalf of memberID
func (i Identity) CanActAs(memberID string) bool {
	return i.IsAdmin() || (i.Kind == IdentityMember && i.ID == memberID)
}

// Admin is an administrator account
type Admin struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	CreatedAt    Millis `json:"createdAt"`
}

// AdminSession is a stored login session, keyed by the token hash
type AdminSession struct {
	AdminID   string `json:"adminId"`
	CreatedAt Millis `json:"createdAt"`
	ExpiresAt Millis `json:"expiresAt"`
}
