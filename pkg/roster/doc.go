/*
Package roster manages members, their links to events, and bulk member
imports.

Members are deduplicated through two indexes kept in the same
transaction as the member record:

	/memberIndex/byEmail/{emailKey}/{memberId} = true
	/memberIndex/byPhone/{phoneKey}/{memberId} = true

An email key is the trimmed, lowercased address with '.' replaced by
','. A phone key keeps only the digits. Lookups try email first, then
phone.

Every EventMember link under /eventMembers/{eventId}/{memberId} has a
reverse entry under /memberEvents/{memberId}/{eventId}, written and
removed together with it.

Import upserts members row by row. A re-run of the same rows updates the
same members and reports them as already linked.
*/
package roster
