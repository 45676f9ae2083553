package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tOgg1/roomlist/internal/filters"
	"github.com/tOgg1/roomlist/internal/models"
	"github.com/tOgg1/roomlist/internal/render"
	"github.com/tOgg1/roomlist/internal/roomlist"
)

var (
	showTags         []string
	showHideArchived bool
	showSearch       string
	showWidth        int
	showEmpty        bool
)

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringSliceVar(&showTags, "tag", nil, "only keep rooms with a raw tag matching these glob patterns")
	showCmd.Flags().BoolVar(&showHideArchived, "hide-archived", false, "hide rooms that were left or banned")
	showCmd.Flags().StringVar(&showSearch, "search", "", "only show rooms whose name contains this text")
	showCmd.Flags().IntVar(&showWidth, "width", 0, "line width (default: terminal width)")
	showCmd.Flags().BoolVar(&showEmpty, "empty", false, "include empty buckets")
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the room lists",
	Long:  "Load the rooms, replay fixture events and print every bucket once.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx, GetConfig(), appOptions{
			tagPatterns:  showTags,
			hideArchived: showHideArchived,
			replay:       true,
		})
		if err != nil {
			return err
		}
		defer a.Close()

		if q := strings.TrimSpace(showSearch); q != "" {
			if err := a.store.AddFilter(ctx, filters.NewNameFilter(q)); err != nil {
				return err
			}
		}

		snap := a.store.Lists()
		configs := a.store.Configs()
		out := cmd.OutOrStdout()
		if IsJSONOutput() {
			return writeSnapshotJSON(out, snap, configs)
		}

		text := render.Snapshot(snap, render.Options{
			Width:      outputWidth(out),
			Palette:    render.ResolvePalette(a.cfg.TUI.Theme),
			ShowCounts: a.cfg.TUI.ShowCounts,
			ShowEmpty:  showEmpty,
			Configs:    configs,
		})
		_, err = fmt.Fprintln(out, text)
		return err
	},
}

func outputWidth(out io.Writer) int {
	if showWidth > 0 {
		return showWidth
	}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return 0
}

type roomJSON struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Sticky bool   `json:"sticky,omitempty"`
}

type bucketJSON struct {
	Tag       models.Tag           `json:"tag"`
	Name      string               `json:"name"`
	Algorithm models.SortAlgorithm `json:"algorithm"`
	Ordering  models.ListOrdering  `json:"ordering"`
	Rooms     []roomJSON           `json:"rooms"`
}

type snapshotJSON struct {
	Version uint64       `json:"version"`
	Buckets []bucketJSON `json:"buckets"`
}

func writeSnapshotJSON(out io.Writer, snap *roomlist.Snapshot, configs map[models.Tag]models.SortConfig) error {
	payload := snapshotJSON{Version: snap.Version, Buckets: make([]bucketJSON, 0, len(snap.Tags))}
	for _, tag := range snap.Tags {
		cfg := configs[tag]
		bucket := bucketJSON{
			Tag:       tag,
			Name:      tag.DisplayName(),
			Algorithm: cfg.Algorithm,
			Ordering:  cfg.Ordering,
			Rooms:     make([]roomJSON, 0, len(snap.List(tag))),
		}
		for _, room := range snap.List(tag) {
			bucket.Rooms = append(bucket.Rooms, roomJSON{ID: room.ID, Name: room.Name, Sticky: room.ID == snap.Sticky})
		}
		payload.Buckets = append(payload.Buckets, bucket)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
