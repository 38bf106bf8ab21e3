/*
Package types defines the domain model shared by every primeslot package.

	Event ──< EventMember >── Member
	  │                          │
	  └──< Meeting (aId, bId) >──┘
	            │
	            ├── MeetingIndex mirror under each participant
	            └── Notification for the other party

All timestamps are integer milliseconds since the Unix epoch (Millis).
Durations on meetings are whole minutes and are converted to milliseconds
only by the interval package.

# Meeting lifecycle

	pending ──accept──▶ approved ──▶ completed
	   │                   │
	   └──decline──▶ canceled ◀──┘

completed and canceled are terminal. ParseMeetingStatus accepts the
legacy spellings found in older data ("scheduled", "Canceled",
"Completed") and maps them onto this enum; "scheduled" becomes pending.
*/
package types
