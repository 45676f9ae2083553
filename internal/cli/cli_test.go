package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/roomlist/internal/db"
	"github.com/tOgg1/roomlist/internal/models"
	"github.com/tOgg1/roomlist/internal/roomlist"
	"github.com/tOgg1/roomlist/internal/settings"
)

const testFixture = `
rooms:
  - id: "!bob"
    name: Bob
    membership: join
    joined_members: 3
    last_activity: 2024-01-01T10:00:00Z
    tags:
      m.favourite: {}
  - id: "!alice"
    name: alice
    membership: join
    joined_members: 3
    last_activity: 2024-01-01T12:00:00Z
    tags:
      m.favourite: {}
  - id: "!old"
    name: Old room
    membership: leave
  - id: "!work"
    name: Standup
    membership: join
    joined_members: 8
    tags:
      u.work: {}
`

type cliEnv struct {
	dir      string
	config   string
	fixture  string
	settings string
}

func newCLIEnv(t *testing.T, backend string) cliEnv {
	t.Helper()
	dir := t.TempDir()
	env := cliEnv{
		dir:      dir,
		config:   filepath.Join(dir, "config.yaml"),
		fixture:  filepath.Join(dir, "rooms.yaml"),
		settings: filepath.Join(dir, "settings.json"),
	}
	cfg := fmt.Sprintf(`global:
  data_dir: %s
  config_dir: %s
logging:
  level: error
room_list:
  settings_backend: %s
  settings_file: %s
  save_debounce: 10ms
`, dir, filepath.Join(dir, "config"), backend, env.settings)
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0o644))
	require.NoError(t, os.WriteFile(env.fixture, []byte(testFixture), 0o644))
	return env
}

func (e cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	jsonOutput = false
	fixturePath = ""
	showTags, showHideArchived, showSearch, showWidth, showEmpty = nil, false, "", 0, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", e.config, "--fixture", e.fixture}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestShowPrintsBuckets(t *testing.T) {
	env := newCLIEnv(t, "memory")

	out, err := env.run(t, "show", "--width", "80")
	require.NoError(t, err)
	require.Contains(t, out, "Favourites (2)")
	require.Contains(t, out, "Historical (1)")
	require.Less(t, strings.Index(out, "alice"), strings.Index(out, "Bob"))

	out, err = env.run(t, "show", "--hide-archived", "--search", "sta")
	require.NoError(t, err)
	require.NotContains(t, out, "Historical")
	require.Contains(t, out, "Standup")
	require.NotContains(t, out, "alice")
}

func TestShowJSON(t *testing.T) {
	env := newCLIEnv(t, "memory")

	out, err := env.run(t, "show", "--json", "--tag", "u.*")
	require.NoError(t, err)

	var payload snapshotJSON
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	require.NotZero(t, payload.Version)

	var rooms []string
	for _, bucket := range payload.Buckets {
		for _, room := range bucket.Rooms {
			rooms = append(rooms, room.ID)
		}
		if bucket.Tag == models.TagFavourite {
			require.Equal(t, models.SortAlphabetic, bucket.Algorithm)
		}
	}
	require.Equal(t, []string{"!work"}, rooms)
}

func TestSortPersistsToFile(t *testing.T) {
	env := newCLIEnv(t, "file")

	out, err := env.run(t, "sort", "favourites", "recent")
	require.NoError(t, err)
	require.Contains(t, out, "Favourites: recent/natural")

	out, err = env.run(t, "order", "people", "importance")
	require.NoError(t, err)
	require.Contains(t, out, "People: recent/importance")

	fs, err := settings.OpenFileStore(env.settings)
	require.NoError(t, err)
	v, ok := fs.Get(settings.SortKey(models.TagFavourite))
	require.True(t, ok)
	require.Equal(t, string(models.SortRecent), v)
	v, ok = fs.Get(settings.OrderKey(models.TagDM))
	require.True(t, ok)
	require.Equal(t, string(models.OrderingImportance), v)

	out, err = env.run(t, "sort", "--json")
	require.NoError(t, err)
	var rows []configJSON
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	found := false
	for _, row := range rows {
		if row.Tag == models.TagFavourite {
			found = true
			require.Equal(t, models.SortRecent, row.Algorithm)
			require.Equal(t, 2, row.Rooms)
		}
	}
	require.True(t, found)

	out, err = env.run(t, "sort")
	require.NoError(t, err)
	require.Contains(t, out, "BUCKET")
	require.Contains(t, out, "recent")
}

func TestSortPersistsToSQLite(t *testing.T) {
	env := newCLIEnv(t, "sqlite")

	_, err := env.run(t, "sort", "rooms", "manual")
	require.NoError(t, err)

	database, err := db.Open(db.Config{Path: filepath.Join(env.dir, "roomlist.db")})
	require.NoError(t, err)
	defer database.Close()

	setting, err := db.NewSettingsRepository(database).Get(context.Background(), settings.SortKey(models.TagUntagged))
	require.NoError(t, err)
	require.Equal(t, string(models.SortManual), setting.Value)
}

func TestSortRejectsBadInput(t *testing.T) {
	env := newCLIEnv(t, "memory")

	tests := []struct {
		name string
		args []string
		want error
	}{
		{name: "one arg", args: []string{"sort", "favourites"}},
		{name: "bad algorithm", args: []string{"sort", "favourites", "shuffle"}},
		{name: "bad ordering", args: []string{"order", "favourites", "random"}},
		{name: "custom tags disabled", args: []string{"sort", "u.work", "recent"}, want: roomlist.ErrInvalidTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(t, tt.args...)
			require.Error(t, err)
			if tt.want != nil {
				require.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestParseTag(t *testing.T) {
	tests := []struct {
		in   string
		want models.Tag
	}{
		{"favourites", models.TagFavourite},
		{"Low Priority", models.TagLowPriority},
		{"people", models.TagDM},
		{"m.favourite", models.TagFavourite},
		{"u.work", "u.work"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTag(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := parseTag("  ")
	require.Error(t, err)
}

func TestWriteTable(t *testing.T) {
	var out bytes.Buffer
	err := writeTable(&out, []string{"NAME", "N"}, [][]string{
		{"\x1b[1mbold\x1b[0m", "1"},
		{"longer name", "22"},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "NAME         N", lines[0])
	require.Equal(t, "longer name  22", lines[2])
	require.Equal(t, "bold         1", stripANSI(lines[1]))
}
