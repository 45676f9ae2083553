package algorithm

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/roomlist/internal/filters"
	"github.com/tOgg1/roomlist/internal/models"
	"github.com/tOgg1/roomlist/internal/tags"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func mkRoom(id, name string, ts int, roomTags ...models.Tag) *models.Room {
	r := &models.Room{
		ID:            id,
		Name:          name,
		Membership:    models.MembershipJoined,
		JoinedMembers: 5,
		LastActivity:  epoch.Add(time.Duration(ts) * time.Second),
	}
	if len(roomTags) > 0 {
		r.Tags = make(map[models.Tag]models.TagMeta, len(roomTags))
		for _, tag := range roomTags {
			r.Tags[tag] = models.TagMeta{}
		}
	}
	return r
}

func withOrder(r *models.Room, tag models.Tag, order float64) *models.Room {
	if r.Tags == nil {
		r.Tags = make(map[models.Tag]models.TagMeta)
	}
	r.Tags[tag] = models.TagMeta{Order: models.Float64(order)}
	return r
}

func touched(r *models.Room, ts int) *models.Room {
	cp := *r
	cp.LastActivity = epoch.Add(time.Duration(ts) * time.Second)
	return &cp
}

func ids(rooms []*models.Room) []string {
	out := make([]string, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.ID)
	}
	return out
}

func cfg(alg models.SortAlgorithm, ord models.ListOrdering) models.SortConfig {
	return models.SortConfig{Algorithm: alg, Ordering: ord}
}

func TestAlphabeticAndRecentDeriveIndependently(t *testing.T) {
	a := New()
	a.SetConfig(models.TagFavourite, cfg(models.SortAlphabetic, models.OrderingNatural))
	a.SetKnownRooms([]*models.Room{
		mkRoom("!A", "Bob", 100, models.TagFavourite),
		mkRoom("!B", "alice", 200, models.TagFavourite),
	})
	require.Equal(t, []string{"!B", "!A"}, ids(a.List(models.TagFavourite)))

	require.True(t, a.SetConfig(models.TagFavourite, cfg(models.SortRecent, models.OrderingNatural)))
	require.Equal(t, []string{"!B", "!A"}, ids(a.List(models.TagFavourite)))

	// A third room separates the two algorithms.
	a.HandleUpdate(mkRoom("!C", "aaron", 50, models.TagFavourite), models.CauseNewRoom)
	require.Equal(t, []string{"!B", "!A", "!C"}, ids(a.List(models.TagFavourite)))
	a.SetConfig(models.TagFavourite, cfg(models.SortAlphabetic, models.OrderingNatural))
	require.Equal(t, []string{"!C", "!B", "!A"}, ids(a.List(models.TagFavourite)))

	require.False(t, a.SetConfig(models.TagFavourite, cfg(models.SortAlphabetic, models.OrderingNatural)))
}

func TestTieBreakByID(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.SortConfig
	}{
		{name: "alphabetic", cfg: cfg(models.SortAlphabetic, models.OrderingNatural)},
		{name: "recent", cfg: cfg(models.SortRecent, models.OrderingNatural)},
		{name: "manual", cfg: cfg(models.SortManual, models.OrderingNatural)},
		{name: "importance", cfg: cfg(models.SortRecent, models.OrderingImportance)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rooms := []*models.Room{
				mkRoom("!d", "same", 100),
				mkRoom("!b", "Same", 100),
				mkRoom("!c", "SAME", 100),
				mkRoom("!a", "same", 100),
			}
			want := []string{"!a", "!b", "!c", "!d"}

			rng := rand.New(rand.NewSource(7))
			for i := 0; i < 5; i++ {
				rng.Shuffle(len(rooms), func(i, j int) { rooms[i], rooms[j] = rooms[j], rooms[i] })
				a := New()
				a.SetConfig(models.TagUntagged, tt.cfg)
				a.SetKnownRooms(rooms)
				require.Equal(t, want, ids(a.List(models.TagUntagged)))
			}
		})
	}
}

func TestManualOrdering(t *testing.T) {
	tag := models.TagFavourite
	a := New()
	a.SetConfig(tag, cfg(models.SortManual, models.OrderingNatural))
	a.SetKnownRooms([]*models.Room{
		withOrder(mkRoom("!two", "b", 0, tag), tag, 2),
		mkRoom("!none", "a", 0, tag),
		withOrder(mkRoom("!one", "c", 0, tag), tag, 1),
	})
	require.Equal(t, []string{"!one", "!two", "!none"}, ids(a.List(tag)))

	at, err := a.ManualOrderAt(tag, 1)
	require.NoError(t, err)
	require.Equal(t, 1.5, at)

	at, err = a.ManualOrderAt(tag, 0)
	require.NoError(t, err)
	require.Equal(t, 0.5, at)

	// Between the last ordered room and an unordered one.
	at, err = a.ManualOrderAt(tag, 2)
	require.NoError(t, err)
	require.Equal(t, 3.0, at)

	_, err = a.ManualOrderAt(tag, 4)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = a.ManualOrderAt("u.nothing", 0)
	require.ErrorIs(t, err, ErrUnknownTag)
}

func TestManualOrderBetween(t *testing.T) {
	f := models.Float64
	tests := []struct {
		name       string
		prev, next *float64
		want       float64
	}{
		{name: "between neighbours", prev: f(1), next: f(2), want: 1.5},
		{name: "again", prev: f(1), next: f(1.5), want: 1.25},
		{name: "empty bucket", want: 0.5},
		{name: "top", next: f(0.5), want: 0.25},
		{name: "bottom", prev: f(0.5), want: 0.75},
		{name: "bottom past one", prev: f(3), want: 4},
		{name: "top below zero", next: f(-1), want: -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ManualOrderBetween(tt.prev, tt.next))
		})
	}
}

func TestImportanceTiers(t *testing.T) {
	mk := func(id string, ts int, n models.Notifications) *models.Room {
		r := mkRoom(id, id, ts)
		r.Notifications = n
		return r
	}
	a := New()
	a.SetConfig(models.TagUntagged, cfg(models.SortRecent, models.OrderingImportance))
	a.SetKnownRooms([]*models.Room{
		mk("!idle", 900, models.Notifications{}),
		mk("!bold", 800, models.Notifications{Unread: 3}),
		mk("!grey", 100, models.Notifications{Notifying: 1, Unread: 1}),
		mk("!red", 50, models.Notifications{Highlights: 1}),
		mk("!red2", 60, models.Notifications{Highlights: 2}),
	})
	require.Equal(t, []string{"!red2", "!red", "!grey", "!bold", "!idle"}, ids(a.List(models.TagUntagged)))

	// Reading the highlight drops the room to the idle tier.
	read := mk("!red2", 60, models.Notifications{})
	require.True(t, a.HandleUpdate(read, models.CauseReadReceipt))
	require.Equal(t, []string{"!red", "!grey", "!bold", "!idle", "!red2"}, ids(a.List(models.TagUntagged)))
}

func TestWithImportance(t *testing.T) {
	vip := func(r *models.Room) Category {
		if r.ID == "!vip" {
			return CategoryRed
		}
		return CategoryIdle
	}
	a := New(WithImportance(vip))
	a.SetConfig(models.TagUntagged, cfg(models.SortAlphabetic, models.OrderingImportance))
	a.SetKnownRooms([]*models.Room{mkRoom("!a", "a", 0), mkRoom("!vip", "z", 0)})
	require.Equal(t, []string{"!vip", "!a"}, ids(a.List(models.TagUntagged)))
}

func TestReadReceiptNaturalIsQuiet(t *testing.T) {
	a := New()
	r := mkRoom("!a", "a", 0)
	a.SetKnownRooms([]*models.Room{r, mkRoom("!b", "b", 0)})
	require.False(t, a.HandleUpdate(r, models.CauseReadReceipt))
	require.False(t, a.HandleUpdate(mkRoom("!ghost", "g", 0), models.CauseReadReceipt))
}

func TestReadReceiptNaturalRefreshesRoom(t *testing.T) {
	a := New()
	unread := mkRoom("!a", "a", 0)
	unread.Notifications = models.Notifications{Unread: 5}
	a.SetKnownRooms([]*models.Room{unread, mkRoom("!b", "b", 0)})

	read := mkRoom("!a", "a", 0)
	require.True(t, a.HandleUpdate(read, models.CauseReadReceipt))

	list := a.List(models.TagUntagged)
	require.Equal(t, []string{"!a", "!b"}, ids(list))
	require.Same(t, read, list[0])
	require.Zero(t, list[0].Notifications.Unread)
}

func TestTimelineRepositionsRecent(t *testing.T) {
	a := New()
	a.SetConfig(models.TagUntagged, cfg(models.SortRecent, models.OrderingNatural))
	r1, r2, r3 := mkRoom("!1", "one", 300), mkRoom("!2", "two", 200), mkRoom("!3", "three", 100)
	fav := mkRoom("!f", "fav", 50, models.TagFavourite)
	a.SetKnownRooms([]*models.Room{r1, r2, r3, fav})
	require.Equal(t, []string{"!1", "!2", "!3"}, ids(a.List(models.TagUntagged)))

	favBefore := ids(a.List(models.TagFavourite))
	require.True(t, a.HandleUpdate(touched(r3, 400), models.CauseTimeline))
	require.Equal(t, []string{"!3", "!1", "!2"}, ids(a.List(models.TagUntagged)))
	require.Equal(t, favBefore, ids(a.List(models.TagFavourite)))

	require.False(t, a.HandleUpdate(mkRoom("!ghost", "g", 0), models.CauseTimeline))
}

func TestInviteBecomesFavourite(t *testing.T) {
	a := New()
	c := mkRoom("!c", "C", 10)
	c.Membership = models.MembershipInvited
	a.SetKnownRooms([]*models.Room{c})
	require.Equal(t, []string{"!c"}, ids(a.List(models.TagInvite)))
	require.Equal(t, []models.Tag{models.TagInvite}, a.RoomTags("!c"))

	joined := mkRoom("!c", "C", 10, models.TagFavourite)
	require.True(t, a.HandleUpdate(joined, models.CausePossibleTagChange))
	require.Empty(t, a.List(models.TagInvite))
	require.Equal(t, []string{"!c"}, ids(a.List(models.TagFavourite)))
	require.Equal(t, []models.Tag{models.TagFavourite}, a.RoomTags("!c"))
}

func TestEveryRoomHasABucket(t *testing.T) {
	a := New(WithClassifier(tags.Classifier{CustomTags: true}))
	dm := mkRoom("!dm", "dm", 0)
	dm.Direct, dm.JoinedMembers = true, 2
	left := mkRoom("!left", "left", 0)
	left.Membership = models.MembershipLeft
	rooms := []*models.Room{
		mkRoom("!plain", "plain", 0),
		mkRoom("!fav", "fav", 0, models.TagFavourite, "u.work"),
		mkRoom("!low", "low", 0, models.TagLowPriority),
		mkRoom("!work", "work", 0, "u.work"),
		dm, left,
	}
	a.SetKnownRooms(rooms)

	order, lists := a.Lists()
	require.Equal(t, []models.Tag{
		models.TagInvite, models.TagFavourite, models.TagDM, "u.work",
		models.TagUntagged, models.TagLowPriority, models.TagArchived,
	}, order)
	for _, r := range rooms {
		found := 0
		for _, tag := range a.RoomTags(r.ID) {
			require.Contains(t, ids(lists[tag]), r.ID)
			found++
		}
		require.NotZero(t, found, r.ID)
	}
	require.Equal(t, []string{"!fav", "!work"}, ids(lists["u.work"]))
}

func TestCustomTagBucketLifecycle(t *testing.T) {
	a := New(WithClassifier(tags.Classifier{CustomTags: true}))
	a.SetKnownRooms(nil)
	require.NotContains(t, a.Tags(), models.Tag("u.games"))

	a.HandleUpdate(mkRoom("!g", "games", 0, "u.games"), models.CauseNewRoom)
	require.Contains(t, a.Tags(), models.Tag("u.games"))

	a.HandleUpdate(mkRoom("!g", "games", 0), models.CausePossibleTagChange)
	require.NotContains(t, a.Tags(), models.Tag("u.games"))
	require.Equal(t, []string{"!g"}, ids(a.List(models.TagUntagged)))
}

func TestRemove(t *testing.T) {
	a := New()
	a.SetKnownRooms([]*models.Room{mkRoom("!a", "a", 0), mkRoom("!b", "b", 0)})
	require.True(t, a.HandleUpdate(&models.Room{ID: "!a"}, models.CauseRoomRemoved))
	require.False(t, a.HandleUpdate(&models.Room{ID: "!a"}, models.CauseRoomRemoved))
	require.False(t, a.Has("!a"))
	require.Equal(t, []string{"!b"}, ids(a.List(models.TagUntagged)))
}

func TestStickyRoomKeepsPosition(t *testing.T) {
	a := New()
	a.SetConfig(models.TagUntagged, cfg(models.SortRecent, models.OrderingNatural))
	r1, r2, r3 := mkRoom("!1", "one", 300), mkRoom("!2", "two", 200), mkRoom("!3", "three", 100)
	a.SetKnownRooms([]*models.Room{r1, r2, r3})

	require.True(t, a.SetStickyRoom("!2"))
	require.Equal(t, "!2", a.StickyRoom())
	require.Equal(t, []string{"!1", "!2", "!3"}, ids(a.List(models.TagUntagged)))

	// Other rooms move around the pinned index.
	a.HandleUpdate(touched(r3, 400), models.CauseTimeline)
	require.Equal(t, []string{"!3", "!2", "!1"}, ids(a.List(models.TagUntagged)))
	a.HandleUpdate(mkRoom("!4", "four", 500), models.CauseNewRoom)
	require.Equal(t, []string{"!4", "!2", "!3", "!1"}, ids(a.List(models.TagUntagged)))

	// Updates to the pinned room wait for the unpin.
	a.HandleUpdate(touched(r2, 900), models.CauseTimeline)
	require.Equal(t, []string{"!4", "!2", "!3", "!1"}, ids(a.List(models.TagUntagged)))
	latest, _ := a.Room("!2")
	require.Equal(t, epoch.Add(900*time.Second), latest.LastActivity)

	require.False(t, a.SetStickyRoom(""))
	require.Equal(t, "", a.StickyRoom())
	require.Equal(t, []string{"!2", "!4", "!3", "!1"}, ids(a.List(models.TagUntagged)))
}

func TestStickyIndexClampsWhenBucketShrinks(t *testing.T) {
	a := New()
	a.SetConfig(models.TagUntagged, cfg(models.SortRecent, models.OrderingNatural))
	a.SetKnownRooms([]*models.Room{mkRoom("!1", "1", 300), mkRoom("!2", "2", 200), mkRoom("!3", "3", 100)})
	require.True(t, a.SetStickyRoom("!3"))

	a.HandleUpdate(&models.Room{ID: "!1"}, models.CauseRoomRemoved)
	a.HandleUpdate(&models.Room{ID: "!2"}, models.CauseRoomRemoved)
	require.Equal(t, []string{"!3"}, ids(a.List(models.TagUntagged)))
	require.Equal(t, "!3", a.StickyRoom())
}

func TestStickySwitchReleasesPreviousPin(t *testing.T) {
	a := New()
	a.SetConfig(models.TagUntagged, cfg(models.SortRecent, models.OrderingNatural))
	r1, r2 := mkRoom("!1", "1", 300), mkRoom("!2", "2", 200)
	fav := mkRoom("!f", "f", 100, models.TagFavourite)
	a.SetKnownRooms([]*models.Room{r1, r2, fav})

	require.True(t, a.SetStickyRoom("!2"))
	a.HandleUpdate(touched(r2, 999), models.CauseTimeline)

	require.True(t, a.SetStickyRoom("!f"))
	require.Equal(t, "!f", a.StickyRoom())
	require.Equal(t, []string{"!2", "!1"}, ids(a.List(models.TagUntagged)))
	require.Equal(t, []string{"!f"}, ids(a.List(models.TagFavourite)))
}

func TestStickyClearedByRemovalFilterAndRebuild(t *testing.T) {
	rooms := func() []*models.Room {
		return []*models.Room{mkRoom("!a", "alpha", 0), mkRoom("!b", "beta", 0)}
	}

	t.Run("removal", func(t *testing.T) {
		a := New()
		a.SetKnownRooms(rooms())
		require.True(t, a.SetStickyRoom("!a"))
		a.HandleUpdate(&models.Room{ID: "!a"}, models.CauseRoomRemoved)
		require.Equal(t, "", a.StickyRoom())
		require.Equal(t, []string{"!b"}, ids(a.List(models.TagUntagged)))
	})

	t.Run("runtime filter hides it", func(t *testing.T) {
		a := New()
		a.SetKnownRooms(rooms())
		require.True(t, a.SetStickyRoom("!a"))
		affected, err := a.AddFilter(filters.NewNameFilter("beta"))
		require.NoError(t, err)
		require.Contains(t, affected, models.TagUntagged)
		require.Equal(t, "", a.StickyRoom())
		require.Equal(t, []string{"!b"}, ids(a.List(models.TagUntagged)))
	})

	t.Run("rebuild without it", func(t *testing.T) {
		a := New()
		a.SetKnownRooms(rooms())
		require.True(t, a.SetStickyRoom("!a"))
		a.SetKnownRooms(rooms()[1:])
		require.Equal(t, "", a.StickyRoom())
	})

	t.Run("rebuild with it", func(t *testing.T) {
		a := New()
		a.SetKnownRooms(rooms())
		require.True(t, a.SetStickyRoom("!b"))
		a.SetKnownRooms(append(rooms(), mkRoom("!0", "", 0)))
		require.Equal(t, "!b", a.StickyRoom())
		require.Equal(t, []string{"!0", "!b", "!a"}, ids(a.List(models.TagUntagged)))
	})

	t.Run("tag change moves it out", func(t *testing.T) {
		a := New()
		a.SetKnownRooms(rooms())
		require.True(t, a.SetStickyRoom("!a"))
		a.HandleUpdate(mkRoom("!a", "alpha", 0, models.TagFavourite), models.CausePossibleTagChange)
		require.Equal(t, "", a.StickyRoom())
		require.Equal(t, []string{"!a"}, ids(a.List(models.TagFavourite)))
		require.Equal(t, []string{"!b"}, ids(a.List(models.TagUntagged)))
	})
}

func TestStickyDroppedWhenUpdateHidesIt(t *testing.T) {
	a := New()
	a.SetKnownRooms([]*models.Room{mkRoom("!a", "alpha", 0), mkRoom("!b", "alba", 0)})
	_, err := a.AddFilter(filters.NewNameFilter("al"))
	require.NoError(t, err)
	require.True(t, a.SetStickyRoom("!a"))

	require.True(t, a.HandleUpdate(mkRoom("!a", "zeta", 0), models.CausePossibleTagChange))
	require.Equal(t, "", a.StickyRoom())
	require.Equal(t, []string{"!b"}, ids(a.List(models.TagUntagged)))
}

func TestStickyKeepsNeighboursAcrossFilterChanges(t *testing.T) {
	a := New()
	a.SetConfig(models.TagUntagged, cfg(models.SortRecent, models.OrderingNatural))
	a.SetKnownRooms([]*models.Room{
		mkRoom("!1", "alpha", 400),
		mkRoom("!2", "beta", 300),
		mkRoom("!3", "alpine", 200),
		mkRoom("!4", "gamma", 100),
	})
	search := filters.NewNameFilter("al")
	_, err := a.AddFilter(search)
	require.NoError(t, err)
	require.True(t, a.SetStickyRoom("!3"))
	require.Equal(t, []string{"!1", "!3"}, ids(a.List(models.TagUntagged)))

	a.RemoveFilter(search)
	require.Equal(t, "!3", a.StickyRoom())
	require.Equal(t, []string{"!1", "!2", "!3", "!4"}, ids(a.List(models.TagUntagged)))
}

func TestStickyRejectsUnknownOrHiddenRooms(t *testing.T) {
	a := New()
	a.SetKnownRooms([]*models.Room{mkRoom("!a", "alpha", 0)})
	require.False(t, a.SetStickyRoom("!missing"))

	_, err := a.AddFilter(filters.NewNameFilter("zzz"))
	require.NoError(t, err)
	require.False(t, a.SetStickyRoom("!a"))
}

func TestRuntimeFilters(t *testing.T) {
	a := New()
	a.SetKnownRooms([]*models.Room{
		mkRoom("!a", "alpha", 0),
		mkRoom("!b", "beta", 0),
		mkRoom("!fa", "fav alpha", 0, models.TagFavourite),
		mkRoom("!fb", "fav beta", 0, models.TagFavourite),
	})

	search := filters.NewNameFilter("alpha", models.TagFavourite)
	affected, err := a.AddFilter(search)
	require.NoError(t, err)
	require.Equal(t, []models.Tag{models.TagFavourite}, affected)
	require.Equal(t, []string{"!fa"}, ids(a.List(models.TagFavourite)))
	require.Equal(t, []string{"!a", "!b"}, ids(a.List(models.TagUntagged)))

	again, err := a.AddFilter(search)
	require.NoError(t, err)
	require.Nil(t, again)

	require.Equal(t, []models.Tag{models.TagFavourite}, a.RemoveFilter(search))
	require.Nil(t, a.RemoveFilter(search))
	require.Equal(t, []string{"!fa", "!fb"}, ids(a.List(models.TagFavourite)))

	_, err = a.AddFilter(filters.NewMembershipFilter(models.MembershipLeft))
	require.ErrorIs(t, err, ErrNotRuntime)
}
