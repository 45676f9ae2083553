package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tOgg1/roomlist/internal/models"
)

func init() {
	rootCmd.AddCommand(sortCmd)
	rootCmd.AddCommand(orderCmd)
}

var sortCmd = &cobra.Command{
	Use:   "sort [tag] [alphabetic|recent|manual]",
	Short: "Show or set the sort algorithm of a bucket",
	Long: `Without arguments, list the sort configuration of every bucket.
With a tag and an algorithm, persist the algorithm for that tag.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("expected no arguments or <tag> <algorithm>")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return listConfigs(cmd)
		}
		tag, err := parseTag(args[0])
		if err != nil {
			return err
		}
		alg, err := models.ParseSortAlgorithm(args[1])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := openApp(ctx, GetConfig(), appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.store.SetTagSorting(ctx, tag, alg); err != nil {
			return err
		}
		return printConfig(cmd, tag, a.store.Configs()[tag])
	},
}

var orderCmd = &cobra.Command{
	Use:   "order <tag> <natural|importance>",
	Short: "Set the list ordering of a bucket",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, err := parseTag(args[0])
		if err != nil {
			return err
		}
		ord, err := models.ParseListOrdering(args[1])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := openApp(ctx, GetConfig(), appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.store.SetListOrder(ctx, tag, ord); err != nil {
			return err
		}
		return printConfig(cmd, tag, a.store.Configs()[tag])
	},
}

type configJSON struct {
	Tag       models.Tag           `json:"tag"`
	Name      string               `json:"name"`
	Algorithm models.SortAlgorithm `json:"algorithm"`
	Ordering  models.ListOrdering  `json:"ordering"`
	Rooms     int                  `json:"rooms"`
}

func listConfigs(cmd *cobra.Command) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, GetConfig(), appOptions{replay: true})
	if err != nil {
		return err
	}
	defer a.Close()

	snap := a.store.Lists()
	configs := a.store.Configs()
	rows := make([]configJSON, 0, len(snap.Tags))
	for _, tag := range snap.Tags {
		cfg := configs[tag]
		rows = append(rows, configJSON{
			Tag:       tag,
			Name:      tag.DisplayName(),
			Algorithm: cfg.Algorithm,
			Ordering:  cfg.Ordering,
			Rooms:     len(snap.List(tag)),
		})
	}

	out := cmd.OutOrStdout()
	if IsJSONOutput() {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		table = append(table, []string{
			row.Name,
			string(row.Tag),
			strings.ToLower(string(row.Algorithm)),
			strings.ToLower(string(row.Ordering)),
			strconv.Itoa(row.Rooms),
		})
	}
	return writeTable(out, []string{"BUCKET", "TAG", "SORT", "ORDER", "ROOMS"}, table)
}

func printConfig(cmd *cobra.Command, tag models.Tag, cfg models.SortConfig) error {
	out := cmd.OutOrStdout()
	if IsJSONOutput() {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(configJSON{Tag: tag, Name: tag.DisplayName(), Algorithm: cfg.Algorithm, Ordering: cfg.Ordering})
	}
	_, err := fmt.Fprintf(out, "%s: %s\n", tag.DisplayName(), strings.ToLower(cfg.String()))
	return err
}
