/*
Package meeting implements the lifecycle of one-to-one meetings between
members of an event.

	pending ──accept──▶ approved ──▶ completed
	   │                   │
	   └──decline──▶ canceled ◀──┘

A meeting is stored once under /meetings/{eventId}/{meetingId} and
mirrored for each participant under
/memberMeetings/{memberId}/{eventId}/{meetingId}. Every write goes
through commit, inside a single store transaction together with the
notifications it produces, so a mirror never disagrees with its meeting.
Delete removes the mirrors with the meeting.
*/
package meeting
