package metrics

import (
	"github.com/primeslot/primeslot/pkg/events"
	"github.com/primeslot/primeslot/pkg/log"
)

// WatchEvents counts every event delivered on sub and writes it to the
// audit log until sub is closed
func WatchEvents(sub events.Subscriber) {
	audit := log.WithComponent("audit")
	for ev := range sub {
		DomainEvents.WithLabelValues(string(ev.Type)).Inc()

		entry := audit.Info().Str("type", string(ev.Type)).Str("audit_id", ev.ID)
		for k, v := range ev.Metadata {
			entry = entry.Str(k, v)
		}
		entry.Time("at", ev.Timestamp).Msg(ev.Message)
	}
}
