package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tOgg1/roomlist/internal/logging"
	"github.com/tOgg1/roomlist/internal/tui"
)

var (
	watchTags         []string
	watchHideArchived bool
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringSliceVar(&watchTags, "tag", nil, "only keep rooms with a raw tag matching these glob patterns")
	watchCmd.Flags().BoolVar(&watchHideArchived, "hide-archived", false, "hide rooms that were left or banned")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Browse the room lists interactively",
	Long: `Open the room list viewer. Fixture events are streamed into the store
while it runs, and edits to the settings file are picked up live.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !hasTTY() {
			return errors.New("watch requires an interactive terminal; use `roomlist show` instead")
		}
		cfg := GetConfig()
		if cfg != nil && cfg.Logging.File == "" {
			// The viewer owns the terminal.
			logging.Disable()
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		a, err := openApp(ctx, cfg, appOptions{
			tagPatterns:  watchTags,
			hideArchived: watchHideArchived,
		})
		if err != nil {
			return err
		}
		defer a.Close()

		go func() {
			loopCtx := logging.WithContext(ctx, logging.Component("event-loop"))
			if err := a.store.Run(loopCtx, a.source.Events()); err != nil && !errors.Is(err, context.Canceled) {
				loopLogger := logging.FromContext(loopCtx)
				loopLogger.Warn().Err(err).Msg("event loop stopped")
			}
		}()
		go func() {
			for _, ev := range a.fixture.Events {
				if err := a.source.Emit(ctx, ev.Type, ev.RoomID); err != nil {
					return
				}
			}
		}()
		if a.fileStore != nil && a.cfg.RoomList.WatchSettings {
			go func() {
				if err := a.fileStore.Watch(ctx, a.store.RefreshSortConfig); err != nil {
					logging.Logger.Warn().Err(err).Msg("settings watcher stopped")
				}
			}()
		}

		return tui.Run(ctx, a.store, tui.Config{
			Theme:      a.cfg.TUI.Theme,
			ShowCounts: a.cfg.TUI.ShowCounts,
		})
	},
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
