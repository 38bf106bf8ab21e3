/*
Package reconciler repairs denormalized records.

Meetings are stored once under /meetings/{eventId}/{meetingId} and
mirrored for each participant under /memberMeetings. Event links are
stored under /eventMembers with a reverse entry under /memberEvents.
Every domain write keeps these in step inside one transaction, but data
written by older versions or by hand can drift. A reconciliation pass:

  - rewrites mirrors that are missing or differ from their meeting
  - removes mirrors whose meeting is gone or no longer involves the member
  - restores missing memberEvents entries for existing links
  - removes memberEvents entries without a link

The whole pass runs in one store transaction. Check computes the same
report without writing. Start runs Reconcile on a ticker until Stop.
*/
package reconciler
