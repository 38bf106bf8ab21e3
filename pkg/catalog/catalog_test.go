package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primeslot/primeslot/pkg/apperr"
	"github.com/primeslot/primeslot/pkg/storage"
	"github.com/primeslot/primeslot/pkg/types"
)

func newTestService(t *testing.T) (*Service, *storage.BoltStore) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir(), storage.Options{Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := NewService(store, nil)
	svc.now = func() time.Time { return time.UnixMilli(1760000000000) }
	return svc, store
}

func ms(v types.Millis) *types.FlexMillis {
	f := types.FlexMillis(v)
	return &f
}

const (
	oct26 types.Millis = 1729900800000 // 2024-10-26T00:00:00Z
	oct27 types.Millis = 1729987200000 // 2024-10-27T00:00:00Z
)

func TestDayKey(t *testing.T) {
	assert.Equal(t, "20241026", DayKey(oct26))
	assert.Equal(t, "20241026", DayKey(oct27-1))
	assert.Equal(t, "20241027", DayKey(oct27))
}

func TestCreate(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	e, err := svc.Create(ctx, "admin-1", EventInput{
		Title:    "Annual Conference",
		Date:     ms(oct26 + 3600000),
		Location: "Convention Center",
	})
	require.NoError(t, err)
	assert.Equal(t, types.EventStatusDraft, e.Status)
	assert.Equal(t, "admin-1", e.CreatedBy)
	assert.Equal(t, types.Millis(1760000000000), e.CreatedAt)

	found, err := store.Exists(ctx, storage.EventsByDatePath("20241026", e.ID))
	require.NoError(t, err)
	assert.True(t, found)

	got, err := svc.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   EventInput
	}{
		{"missing title", EventInput{Date: ms(oct26), Location: "x"}},
		{"missing location", EventInput{Title: "t", Date: ms(oct26)}},
		{"missing date", EventInput{Title: "t", Location: "x"}},
		{"bad status", EventInput{Title: "t", Date: ms(oct26), Location: "x", Status: "live"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "a", tt.in)
			assert.True(t, apperr.Is(err, apperr.KindValidation))
		})
	}
}

func TestGetErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "undefined")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = svc.Get(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUpdateMovesDayIndex(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	e, err := svc.Create(ctx, "a", EventInput{Title: "Meetup", Date: ms(oct26), Location: "Hall"})
	require.NoError(t, err)

	status := types.EventStatusPublished
	updated, err := svc.Update(ctx, e.ID, EventPatch{Date: ms(oct27), Status: &status})
	require.NoError(t, err)
	assert.Equal(t, oct27, updated.Date)
	assert.Equal(t, types.EventStatusPublished, updated.Status)
	assert.Equal(t, "Meetup", updated.Title)

	days, err := store.Keys(ctx, storage.Join(storage.RootEventsByDate))
	require.NoError(t, err)
	assert.Equal(t, []string{"20241027"}, days)

	empty := ""
	_, err = svc.Update(ctx, e.ID, EventPatch{Title: &empty})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = svc.Update(ctx, "missing", EventPatch{Status: &status})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestList(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	seed := []EventInput{
		{Title: "Breakfast", Date: ms(oct26), Location: "Cafe", Status: types.EventStatusPublished},
		{Title: "Dinner", Date: ms(oct27), Location: "Bistro"},
		{Title: "Lunch", Date: ms(oct26 + 43200000), Location: "Cafe"},
	}
	for _, in := range seed {
		_, err := svc.Create(ctx, "a", in)
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, EventQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 12, page.PageSize)
	require.Len(t, page.Records, 3)
	assert.Equal(t, "Dinner", page.Records[0].Title)
	assert.Equal(t, "Lunch", page.Records[1].Title)
	assert.Equal(t, "Breakfast", page.Records[2].Title)

	page, err = svc.List(ctx, EventQuery{Day: "20241026"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	from := oct26 + 1
	page, err = svc.List(ctx, EventQuery{From: &from, Q: "cafe"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "Lunch", page.Records[0].Title)

	page, err = svc.List(ctx, EventQuery{Status: types.EventStatusPublished, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 50, page.PageSize)

	_, err = svc.List(ctx, EventQuery{Day: "2024-10-26"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestSummary(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	sum, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, &EventSummary{}, sum)

	now := types.Millis(1760000000000)
	for id, date := range map[string]types.Millis{"past": oct26, "today": now, "later": now + 86_400_000} {
		require.NoError(t, store.Set(ctx, storage.EventPath(id), types.Event{Title: id, Date: date}))
	}

	sum, err = svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, &EventSummary{Total: 3, Upcoming: 2, Past: 1}, sum)
}
