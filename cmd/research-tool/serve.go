// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes search, the chat agent and the project library over HTTP
until interrupted. Prometheus metrics are served on /metrics. Queued
ingestions finish before the process exits.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newFullApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithMetrics(a.metrics),
	}
	if a.rag.Configured() {
		opts = append(opts, server.WithKnowledge(a.rag), server.WithIngestQueue(a.ingester))
	}
	srv := server.New(cfg.Server, a.store, a.aggregator, a.agent, opts...)
	return srv.Run(ctx)
}
