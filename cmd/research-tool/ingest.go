// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/ingest"
	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/rag"
	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [paper numbers...]",
	Short: "Download library PDFs and upload them to the knowledge base",
	Long: `Ingest downloads the PDFs of library papers, checks them, and uploads
them to the LightRAG server so the chat agent can answer questions from
them. Without paper numbers every pending or failed paper with a PDF link
is ingested. Papers already ingested are skipped.`,
	RunE: runIngest,
}

func init() {
	f := ingestCmd.Flags()
	f.String("project", "default", "project name")
	f.Int("workers", 0, "concurrent ingestions (default 2)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if w, _ := cmd.Flags().GetInt("workers"); w > 0 {
		cfg.Ingest.Workers = w
	}
	a, err := newFullApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if !a.rag.Configured() {
		return fmt.Errorf("ingestion needs the LightRAG API key: %w", rag.ErrNotConfigured)
	}

	name, _ := cmd.Flags().GetString("project")
	p, err := a.projectByName(ctx, name)
	if err != nil {
		return err
	}

	var todo []types.Source
	if len(args) > 0 {
		indices := make([]int, len(args))
		for i, arg := range args {
			n, err := strconv.Atoi(arg)
			if err != nil || n < 1 {
				return fmt.Errorf("invalid paper number %q", arg)
			}
			indices[i] = n
		}
		found, missing, err := a.store.SourcesByIndex(ctx, p.ID, indices)
		if err != nil {
			return err
		}
		for _, n := range missing {
			fmt.Fprintf(os.Stderr, "paper #%d is not in the library\n", n)
		}
		todo = found
	} else {
		for _, status := range []types.IngestionStatus{types.IngestionPending, types.IngestionFailed} {
			papers, err := a.store.SourcesByStatus(ctx, p.ID, status)
			if err != nil {
				return err
			}
			for _, s := range papers {
				if s.PDFURL != "" {
					todo = append(todo, s)
				}
			}
		}
	}
	if len(todo) == 0 {
		fmt.Println("Nothing to ingest.")
		return nil
	}

	res := a.ingester.IngestBatch(ctx, todo)
	printIngestResults(res)
	if res.HasFailures() {
		return fmt.Errorf("%d paper(s) failed ingestion", res.Failed)
	}
	return nil
}

func printIngestResults(res ingest.BatchResult) {
	for _, r := range res.Results {
		switch {
		case r.Skipped:
			fmt.Printf("#%-4d skipped (already ingested)\n", r.Index)
		case r.Error != "":
			fmt.Printf("#%-4d failed: %s\n", r.Index, r.Error)
		default:
			fmt.Printf("#%-4d ready  doc=%s pages=%d\n", r.Index, r.DocID, r.Pages)
		}
	}
	fmt.Printf("\n%d ready, %d skipped, %d failed\n", res.Ready, res.Skipped, res.Failed)
}
