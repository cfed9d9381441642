// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/search"
)

var getCmd = &cobra.Command{
	Use:   "get <identifier>",
	Short: "Fetch one paper by DOI, arXiv ID, PMID or source ID",
	Long: `Get resolves a single identifier against the sources that understand it:
DOIs (bare, doi: or doi.org URLs), arXiv IDs, "pmid:123", "core:123",
OpenAlex work IDs and Semantic Scholar paper IDs.`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	getCmd.Flags().Bool("json", false, "output the record as JSON")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newSearchApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := search.Resolve(ctx, a.clients, args[0])
	if err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
	search.FormatPaper(*p, os.Stdout)
	return nil
}
