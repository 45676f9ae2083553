package sorting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/roomlist/internal/models"
	"github.com/tOgg1/roomlist/internal/settings"
)

func str(v string) *string { return &v }
func boolp(v bool) *bool   { return &v }

func algp(v models.SortAlgorithm) *models.SortAlgorithm { return &v }
func ordp(v models.ListOrdering) *models.ListOrdering   { return &v }

func TestResolveConfigPrecedence(t *testing.T) {
	tests := []struct {
		name      string
		tag       models.Tag
		in        Inputs
		want      models.SortConfig
		sortSrc   Source
		orderSrc  Source
		conflicts int
	}{
		{
			name:     "default for rooms",
			tag:      models.TagUntagged,
			want:     models.SortConfig{Algorithm: models.SortAlphabetic, Ordering: models.OrderingNatural},
			sortSrc:  SourceDefault,
			orderSrc: SourceDefault,
		},
		{
			name:     "default for invites",
			tag:      models.TagInvite,
			want:     models.SortConfig{Algorithm: models.SortRecent, Ordering: models.OrderingNatural},
			sortSrc:  SourceDefault,
			orderSrc: SourceDefault,
		},
		{
			name:     "default for direct chats",
			tag:      models.TagDM,
			want:     models.SortConfig{Algorithm: models.SortRecent, Ordering: models.OrderingNatural},
			sortSrc:  SourceDefault,
			orderSrc: SourceDefault,
		},
		{
			name:     "runtime beats default",
			tag:      models.TagFavourite,
			in:       Inputs{RuntimeSort: algp(models.SortManual), RuntimeOrder: ordp(models.OrderingImportance)},
			want:     models.SortConfig{Algorithm: models.SortManual, Ordering: models.OrderingImportance},
			sortSrc:  SourceRuntime,
			orderSrc: SourceRuntime,
		},
		{
			name: "legacy beats runtime",
			tag:  models.TagFavourite,
			in: Inputs{
				LegacyAlphabetic: boolp(false),
				LegacyImportance: boolp(true),
				RuntimeSort:      algp(models.SortManual),
				RuntimeOrder:     ordp(models.OrderingNatural),
			},
			want:     models.SortConfig{Algorithm: models.SortRecent, Ordering: models.OrderingImportance},
			sortSrc:  SourceLegacy,
			orderSrc: SourceLegacy,
		},
		{
			name: "device beats legacy",
			tag:  models.TagFavourite,
			in: Inputs{
				DeviceSort:       str("manual"),
				DeviceOrder:      str("NATURAL"),
				LegacyAlphabetic: boolp(true),
				LegacyImportance: boolp(true),
			},
			want:     models.SortConfig{Algorithm: models.SortManual, Ordering: models.OrderingNatural},
			sortSrc:  SourceDevice,
			orderSrc: SourceDevice,
		},
		{
			name: "malformed device value falls through",
			tag:  models.TagFavourite,
			in: Inputs{
				DeviceSort:   str("SHUFFLE"),
				DeviceOrder:  str(""),
				RuntimeOrder: ordp(models.OrderingImportance),
			},
			want:      models.SortConfig{Algorithm: models.SortAlphabetic, Ordering: models.OrderingImportance},
			sortSrc:   SourceDefault,
			orderSrc:  SourceRuntime,
			conflicts: 2,
		},
		{
			name:     "invalid runtime value ignored",
			tag:      models.TagDM,
			in:       Inputs{RuntimeSort: algp("BOGUS")},
			want:     models.SortConfig{Algorithm: models.SortRecent, Ordering: models.OrderingNatural},
			sortSrc:  SourceDefault,
			orderSrc: SourceDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ResolveConfig(tt.tag, tt.in)
			require.Equal(t, tt.want, res.Config)
			require.Equal(t, tt.sortSrc, res.SortSource)
			require.Equal(t, tt.orderSrc, res.OrderSource)
			require.Len(t, res.Conflicts, tt.conflicts)
			for _, err := range res.Conflicts {
				require.ErrorIs(t, err, ErrMalformedValue)
			}

			// Same inputs, same answer.
			require.Equal(t, res, ResolveConfig(tt.tag, tt.in))
		})
	}
}

func TestResolverReadsSettings(t *testing.T) {
	store := settings.NewMemoryStore()
	r := NewResolver(store)

	require.Equal(t, DefaultConfig(models.TagFavourite), r.Resolve(models.TagFavourite).Config)

	r.SetRuntimeSorting(models.TagFavourite, models.SortRecent)
	require.Equal(t, models.SortRecent, r.Resolve(models.TagFavourite).Config.Algorithm)

	store.SetBool(settings.LegacyOrderAlphabetically, true)
	require.Equal(t, models.SortAlphabetic, r.Resolve(models.TagFavourite).Config.Algorithm)

	require.NoError(t, store.Set(context.Background(), settings.SortKey(models.TagFavourite), "MANUAL"))
	res := r.Resolve(models.TagFavourite)
	require.Equal(t, models.SortManual, res.Config.Algorithm)
	require.Equal(t, SourceDevice, res.SortSource)

	// Other tags are unaffected by the device value.
	require.Equal(t, models.SortAlphabetic, r.Resolve(models.TagDM).Config.Algorithm)
}

func TestResolverStoreAndPersist(t *testing.T) {
	ctx := context.Background()
	store := settings.NewMemoryStore()
	r := NewResolver(store)

	require.NoError(t, r.PersistResolved(ctx, models.TagDM, DefaultConfig(models.TagDM)))
	v, _ := store.Get(settings.SortKey(models.TagDM))
	require.Equal(t, "RECENT", v)

	// Persisting again never overwrites.
	require.NoError(t, r.PersistResolved(ctx, models.TagDM, models.SortConfig{Algorithm: models.SortManual, Ordering: models.OrderingImportance}))
	v, _ = store.Get(settings.SortKey(models.TagDM))
	require.Equal(t, "RECENT", v)

	require.NoError(t, r.StoreSorting(ctx, models.TagDM, models.SortAlphabetic))
	require.NoError(t, r.StoreOrdering(ctx, models.TagDM, models.OrderingImportance))
	require.Equal(t,
		models.SortConfig{Algorithm: models.SortAlphabetic, Ordering: models.OrderingImportance},
		r.Resolve(models.TagDM).Config)
}

func TestResolverStoreFailsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewResolver(settings.NewMemoryStore())
	require.ErrorIs(t, r.StoreSorting(ctx, models.TagDM, models.SortManual), context.Canceled)
}
