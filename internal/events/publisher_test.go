package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/roomlist/internal/models"
)

func TestFilter_Matches(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		event  *models.Event
		want   bool
	}{
		{
			name:   "empty filter matches any event",
			filter: Filter{},
			event:  &models.Event{Type: models.EventTypeListsChanged},
			want:   true,
		},
		{
			name:   "nil event returns false",
			filter: Filter{},
			event:  nil,
			want:   false,
		},
		{
			name:   "event type filter matches",
			filter: Filter{EventTypes: []models.EventType{models.EventTypeListsChanged}},
			event:  &models.Event{Type: models.EventTypeListsChanged},
			want:   true,
		},
		{
			name:   "event type filter rejects non-matching",
			filter: Filter{EventTypes: []models.EventType{models.EventTypeListsChanged}},
			event:  &models.Event{Type: models.EventTypeTagFilterChanged, Tag: models.TagDM},
			want:   false,
		},
		{
			name:   "tag filter matches",
			filter: Filter{Tags: []models.Tag{models.TagDM, models.TagFavourite}},
			event:  &models.Event{Type: models.EventTypeTagFilterChanged, Tag: models.TagFavourite},
			want:   true,
		},
		{
			name:   "tag filter rejects other tags",
			filter: Filter{Tags: []models.Tag{models.TagDM}},
			event:  &models.Event{Type: models.EventTypeTagFilterChanged, Tag: models.TagFavourite},
			want:   false,
		},
		{
			name:   "untagged events pass the tag filter",
			filter: Filter{Tags: []models.Tag{models.TagDM}},
			event:  &models.Event{Type: models.EventTypeListsChanged},
			want:   true,
		},
		{
			name: "combined filters - all must match",
			filter: Filter{
				EventTypes: []models.EventType{models.EventTypeListsChanged},
				Tags:       []models.Tag{models.TagDM},
			},
			event: &models.Event{Type: models.EventTypeTagFilterChanged, Tag: models.TagDM},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.filter.Matches(tt.event))
		})
	}
}

func TestInMemoryPublisher_Subscribe(t *testing.T) {
	pub := NewInMemoryPublisher()
	handler := func(event *models.Event) {}

	require.NoError(t, pub.Subscribe("sub-1", Filter{}, handler))
	require.Equal(t, 1, pub.SubscriberCount())

	require.Equal(t, ErrSubscriptionExists, pub.Subscribe("sub-1", Filter{}, handler))
	require.Equal(t, ErrInvalidSubscriptionID, pub.Subscribe("", Filter{}, handler))
	require.Equal(t, ErrNilHandler, pub.Subscribe("sub-2", Filter{}, nil))
}

func TestInMemoryPublisher_Unsubscribe(t *testing.T) {
	pub := NewInMemoryPublisher()
	_ = pub.Subscribe("sub-1", Filter{}, func(event *models.Event) {})

	require.NoError(t, pub.Unsubscribe("sub-1"))
	require.Zero(t, pub.SubscriberCount())
	require.Equal(t, ErrSubscriptionNotFound, pub.Unsubscribe("sub-1"))
}

func TestInMemoryPublisher_PublishWithFilter(t *testing.T) {
	pub := NewInMemoryPublisher()
	ctx := context.Background()

	var lists, dm int
	var mu sync.Mutex

	_ = pub.Subscribe("lists", Filter{EventTypes: []models.EventType{models.EventTypeListsChanged}}, func(*models.Event) {
		mu.Lock()
		lists++
		mu.Unlock()
	})
	_ = pub.Subscribe("dm", Filter{
		EventTypes: []models.EventType{models.EventTypeTagFilterChanged},
		Tags:       []models.Tag{models.TagDM},
	}, func(*models.Event) {
		mu.Lock()
		dm++
		mu.Unlock()
	})

	pub.Publish(ctx, &models.Event{ID: "1", Type: models.EventTypeListsChanged})
	pub.Publish(ctx, &models.Event{ID: "2", Type: models.EventTypeTagFilterChanged, Tag: models.TagDM})
	pub.Publish(ctx, &models.Event{ID: "3", Type: models.EventTypeTagFilterChanged, Tag: models.TagFavourite})
	pub.Publish(ctx, nil)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, lists)
	require.Equal(t, 1, dm)
}

func TestInMemoryPublisher_PublishCancelledContext(t *testing.T) {
	pub := NewInMemoryPublisher()
	called := false
	_ = pub.Subscribe("sub-1", Filter{}, func(*models.Event) { called = true })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pub.Publish(ctx, &models.Event{Type: models.EventTypeListsChanged})
	require.False(t, called)
}

func TestInMemoryPublisher_HandlerCanUnsubscribe(t *testing.T) {
	pub := NewInMemoryPublisher()
	calls := 0
	_ = pub.Subscribe("once", Filter{}, func(*models.Event) {
		calls++
		_ = pub.Unsubscribe("once")
	})

	pub.Publish(context.Background(), &models.Event{Type: models.EventTypeListsChanged})
	pub.Publish(context.Background(), &models.Event{Type: models.EventTypeListsChanged})
	require.Equal(t, 1, calls)
}

func TestInMemoryPublisher_Watch(t *testing.T) {
	pub := NewInMemoryPublisher()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := pub.Watch(ctx, Filter{}, 2)
	require.NoError(t, err)
	require.Equal(t, 1, pub.SubscriberCount())

	// A slow reader misses events beyond the buffer instead of blocking.
	for i := 0; i < 5; i++ {
		pub.Publish(context.Background(), &models.Event{Type: models.EventTypeListsChanged, Version: uint64(i + 1)})
	}
	first := <-ch
	second := <-ch
	require.Equal(t, uint64(1), first.Version)
	require.Equal(t, uint64(2), second.Version)

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-ch
		return !open
	}, time.Second, 10*time.Millisecond)
	require.Zero(t, pub.SubscriberCount())
}

func TestInMemoryPublisher_Close(t *testing.T) {
	pub := NewInMemoryPublisher()
	_ = pub.Subscribe("a", Filter{}, func(*models.Event) {})
	_ = pub.Subscribe("b", Filter{}, func(*models.Event) {})
	pub.Close()
	require.Zero(t, pub.SubscriberCount())
}
