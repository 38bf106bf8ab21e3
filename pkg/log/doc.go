/*
Package log provides structured logging for primeslot using zerolog.

A single global Logger is configured once at process start by Init and is
then shared by every package. Output is either JSON (one object per line,
suitable for log shipping) or a human console format with RFC3339
timestamps.

# Child loggers

Domain code attaches identifiers with the With* helpers so that every line
about one entity can be filtered together:

	logger := log.WithComponent("meeting")
	logger.Info().
		Str("event_id", eventID).
		Str("meeting_id", meetingID).
		Msg("meeting requested")

	memberLog := log.WithMemberID("m-123")
	memberLog.Warn().Msg("profile missing email")

Available helpers: WithComponent, WithEventID, WithMemberID,
WithMeetingID, WithRequestID.

# Levels

	debug  store transactions, resolver decisions
	info   lifecycle transitions, imports, server start/stop
	warn   recoverable inconsistencies (stale mirrors, skipped rows)
	error  failed store writes, handler panics

The level is set globally with zerolog.SetGlobalLevel, so disabled levels
cost almost nothing at call sites.
*/
package log
