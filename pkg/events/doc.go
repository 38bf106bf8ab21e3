/*
Package events provides the in-process broker for primeslot domain events.

Services publish an Event after a store transaction commits: a meeting was
requested or answered, a member was linked to an event, an import finished.
Subscribers receive every event; the broker never blocks a publisher on a
slow subscriber.

# Architecture

	  meeting.Service ─┐
	  roster.Service ──┼─▶ Publish ─▶ eventCh (100) ─▶ broadcast loop
	  catalog.Service ─┘                                   │
	                                   ┌───────────────────┼──────────────┐
	                                   ▼                   ▼              ▼
	                            metrics watcher      audit logger    (others)
	                            (buffer 50 each; full buffers drop the event)

Events are notifications, not the source of truth. Everything a subscriber
needs to be correct is in the store; a dropped event only costs a missed
counter increment or log line.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	go func() {
		for ev := range sub {
			logger.Info().Str("type", string(ev.Type)).Msg(ev.Message)
		}
	}()

	events.Emit(broker, events.EventMeetingRequested, "meeting requested",
		map[string]string{"event_id": eventID, "meeting_id": meetingID})

Emit accepts a nil Publisher, so services can be constructed without a
broker in tests.
*/
package events
