// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/search"
	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search academic sources for papers",
	Long: `Search queries the selected sources in parallel and merges the results.
Records sharing a DOI are collapsed into the most complete one. A source
that fails is reported next to the results instead of failing the search.

A request can be saved with --save and re-run later with --from, or written
by hand as a YAML file with a "request" block.`,
	RunE: runSearch,
}

func init() {
	addSearchFlags(searchCmd)
	rootCmd.AddCommand(searchCmd)
}

func addSearchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("limit", 0, "maximum results per source, 1-100 (default 25)")
	f.StringSlice("sources", nil, "sources to query: "+sourceNames())
	f.Int("year-from", 0, "earliest publication year")
	f.Int("year-to", 0, "latest publication year")
	f.Bool("no-dedup", false, "keep records that share a DOI")
	f.Bool("json", false, "output results as JSON")
	f.Bool("csl", false, "output results as CSL JSON for reference managers")
	f.String("from", "", "read the request from a query file")
	f.String("save", "", "save the request and results to a query file")
}

func sourceNames() string {
	names := make([]string, len(types.AllSources))
	for i, s := range types.AllSources {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func runSearch(cmd *cobra.Command, args []string) error {
	req, err := searchRequestFromFlags(cmd, args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newSearchApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.aggregator.Search(ctx, req)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := search.WriteQueryFile(path, req, res); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved to %s\n", path)
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	asCSL, _ := cmd.Flags().GetBool("csl")
	switch {
	case asCSL:
		err = search.WriteCSL(res.Results, os.Stdout)
	case asJSON:
		err = search.FormatJSON(res, os.Stdout)
	default:
		search.FormatTable(res, os.Stdout)
	}
	if err != nil {
		return err
	}
	if res.Failed() {
		return fmt.Errorf("all %d sources failed", len(res.SourceCounts))
	}
	return nil
}

// searchRequestFromFlags builds the request from a query file or from the
// positional query, then applies explicit flags on top.
func searchRequestFromFlags(cmd *cobra.Command, args []string) (types.SearchRequest, error) {
	f := cmd.Flags()

	var req types.SearchRequest
	if path, _ := f.GetString("from"); path != "" {
		loaded, err := search.LoadRequestFile(path)
		if err != nil {
			return req, err
		}
		req = loaded
		if len(args) > 0 {
			req.Query = strings.Join(args, " ")
		}
	} else {
		if len(args) == 0 {
			return req, fmt.Errorf("provide a search query or --from")
		}
		req = types.NewSearchRequest(strings.Join(args, " "))
		if cfg.Search.LimitPerSource > 0 {
			req.LimitPerSource = cfg.Search.LimitPerSource
		}
	}

	if f.Changed("limit") {
		req.LimitPerSource, _ = f.GetInt("limit")
	}
	if f.Changed("sources") {
		names, _ := f.GetStringSlice("sources")
		tags, err := types.ParseSourceTags(names)
		if err != nil {
			return req, fmt.Errorf("%w: %v", search.ErrInvalidRequest, err)
		}
		req.Sources = tags
	}
	if f.Changed("year-from") {
		y, _ := f.GetInt("year-from")
		req.YearFrom = types.Int(y)
	}
	if f.Changed("year-to") {
		y, _ := f.GetInt("year-to")
		req.YearTo = types.Int(y)
	}
	if noDedup, _ := f.GetBool("no-dedup"); noDedup {
		req.Deduplicate = false
	}
	return req, nil
}
