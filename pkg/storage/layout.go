package storage

// Tree layout. Every persisted entity lives under one of these roots.
const (
	RootEvents         = "events"
	RootEventsByDate   = "eventsByDate"
	RootMembers        = "members"
	RootMemberIndex    = "memberIndex"
	RootEventMembers   = "eventMembers"
	RootMemberEvents   = "memberEvents"
	RootMeetings       = "meetings"
	RootMemberMeetings = "memberMeetings"
	RootNotifications  = "notifications"
	RootAdmins         = "admins"
	RootAdminIndex     = "adminIndex"
	RootAdminSessions  = "adminSessions"
)

func EventPath(eventID string) string {
	return Join(RootEvents, eventID)
}

func EventsByDatePath(day, eventID string) string {
	return Join(RootEventsByDate, day, eventID)
}

func MemberPath(memberID string) string {
	return Join(RootMembers, memberID)
}

func EmailIndexPath(emailKey, memberID string) string {
	return Join(RootMemberIndex, "byEmail", emailKey, memberID)
}

func PhoneIndexPath(phoneKey, memberID string) string {
	return Join(RootMemberIndex, "byPhone", phoneKey, memberID)
}

func EventMembersPath(eventID string) string {
	return Join(RootEventMembers, eventID)
}

func EventMemberPath(eventID, memberID string) string {
	return Join(RootEventMembers, eventID, memberID)
}

func MemberEventsPath(memberID string) string {
	return Join(RootMemberEvents, memberID)
}

func MemberEventPath(memberID, eventID string) string {
	return Join(RootMemberEvents, memberID, eventID)
}

func EventMeetingsPath(eventID string) string {
	return Join(RootMeetings, eventID)
}

func MeetingPath(eventID, meetingID string) string {
	return Join(RootMeetings, eventID, meetingID)
}

func MemberMeetingsPath(memberID string) string {
	return Join(RootMemberMeetings, memberID)
}

func MemberMeetingPath(memberID, eventID, meetingID string) string {
	return Join(RootMemberMeetings, memberID, eventID, meetingID)
}

func NotificationsPath(recipientID string) string {
	return Join(RootNotifications, recipientID)
}

func NotificationPath(recipientID, notificationID string) string {
	return Join(RootNotifications, recipientID, notificationID)
}

func AdminPath(adminID string) string {
	return Join(RootAdmins, adminID)
}

func AdminEmailIndexPath(emailKey string) string {
	return Join(RootAdminIndex, "byEmail", emailKey)
}

func AdminSessionPath(tokenHash string) string {
	return Join(RootAdminSessions, tokenHash)
}
