package roster

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/primeslot/primeslot/pkg/events"
	"github.com/primeslot/primeslot/pkg/storage"
	"github.com/primeslot/primeslot/pkg/types"
)

type recordingPublisher struct {
	events []*events.Event
}

func (p *recordingPublisher) Publish(e *events.Event) {
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []events.EventType {
	out := make([]events.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestService(t *testing.T) (*Service, *storage.BoltStore, *recordingPublisher) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir(), storage.Options{Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	pub := &recordingPublisher{}
	svc := NewService(store, pub)
	clock := time.UnixMilli(1760000000000)
	svc.now = func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	}
	return svc, store, pub
}

func seedEvent(t *testing.T, store storage.Store, id string) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), storage.EventPath(id), types.Event{
		Title:  "Networking " + id,
		Date:   1760000000000,
		Status: types.EventStatusPublished,
	}))
}
