package metrics

import (
	"context"
	"time"

	"github.com/primeslot/primeslot/pkg/log"
	"github.com/primeslot/primeslot/pkg/storage"
	"github.com/primeslot/primeslot/pkg/types"
)

// Collector refreshes inventory gauges from the store
type Collector struct {
	store    storage.Store
	interval time.Duration
	stopCh   chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(store storage.Store) *Collector {
	return &Collector{
		store:    store,
		interval: 15 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), c.interval)
	defer cancel()

	if err := c.Collect(ctx); err != nil {
		logger := log.WithComponent("metrics")
		logger.Warn().Err(err).Msg("metrics collection failed")
	}
}

// Collect performs one pass over the store
func (c *Collector) Collect(ctx context.Context) error {
	return c.store.View(ctx, func(r storage.Reader) error {
		if err := collectEventMetrics(r); err != nil {
			return err
		}
		if err := collectMemberMetrics(r); err != nil {
			return err
		}
		return collectMeetingMetrics(r)
	})
}

func collectEventMetrics(r storage.Reader) error {
	var all map[string]types.Event
	if _, err := r.Get(storage.Join(storage.RootEvents), &all); err != nil {
		return err
	}

	counts := make(map[types.EventStatus]int)
	for _, ev := range all {
		counts[ev.Status]++
	}
	for _, status := range []types.EventStatus{types.EventStatusDraft, types.EventStatusPublished, types.EventStatusArchived} {
		EventsTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
	return nil
}

func collectMemberMetrics(r storage.Reader) error {
	keys, err := r.Keys(storage.Join(storage.RootMembers))
	if err != nil {
		return err
	}
	MembersTotal.Set(float64(len(keys)))
	return nil
}

func collectMeetingMetrics(r storage.Reader) error {
	var byEvent map[string]map[string]struct {
		Status string `json:"status"`
	}
	if _, err := r.Get(storage.Join(storage.RootMeetings), &byEvent); err != nil {
		return err
	}

	counts := make(map[types.MeetingStatus]int)
	for _, meetings := range byEvent {
		for _, m := range meetings {
			if status, ok := types.ParseMeetingStatus(m.Status); ok {
				counts[status]++
			}
		}
	}
	for _, status := range types.MeetingStatuses() {
		MeetingsTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
	return nil
}
