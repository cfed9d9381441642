// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the research-tool CLI: multi-source
// paper search, the chat research agent, PDF ingestion and the HTTP API.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/secrets"
	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const defaultUserAgent = "research-tool/0.1"

// Process-wide state built by the root pre-run.
var (
	cfg    types.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "research-tool",
	Short: "Search academic sources and build a research library through chat",
	Long: `research-tool searches OpenAlex, arXiv, CrossRef, PubMed, CORE and
Semantic Scholar in parallel and merges the results by DOI. A chat agent
turns messages such as "search for graph neural networks" or "generate an
outline" into library and outline actions, and ingested PDFs can be queried
through a LightRAG server.

Configuration is read from research-tool.yaml, RESEARCH_TOOL_* environment
variables, a .env file and API keys in .secrets/.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./research-tool.yaml or ~/.config/research-tool/config.yaml)")
	pf.Bool("debug", false, "enable debug logging")
	pf.String("db", "", "library database (sqlite path or postgres URL)")
	pf.String("secrets-dir", ".secrets/", "directory of API key files")
	_ = viper.BindPFlag("store.dsn", pf.Lookup("db"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("research-tool")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "research-tool"))
		}
	}

	viper.SetEnvPrefix("RESEARCH_TOOL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()
}

// setDefaults registers every key so environment variables can override
// values absent from the config file.
func setDefaults() {
	viper.SetDefault("search.limit_per_source", types.DefaultLimitPerSource)
	viper.SetDefault("search.cache_ttl", "0s")
	viper.SetDefault("store.driver", string(types.DriverSQLite))
	viper.SetDefault("store.dsn", "research-tool.db")
	viper.SetDefault("rag.url", "http://localhost:9621")
	viper.SetDefault("rag.api_key", "")
	viper.SetDefault("rag.mode", "hybrid")
	viper.SetDefault("rag.timeout", "300s")
	viper.SetDefault("rag.user_agent", defaultUserAgent)
	viper.SetDefault("cache.addr", "")
	viper.SetDefault("cache.password", "")
	viper.SetDefault("cache.db", 0)
	viper.SetDefault("ingest.papers_dir", "papers")
	viper.SetDefault("ingest.workers", 2)
	viper.SetDefault("ingest.timeout", "120s")
	viper.SetDefault("ingest.user_agent", defaultUserAgent)
	viper.SetDefault("agent.auto_ingest", false)
	viper.SetDefault("agent.max_papers", 10)
	viper.SetDefault("agent.max_sections", 7)
	viper.SetDefault("agent.relevance_threshold", 0.3)
	viper.SetDefault("server.addr", ":8080")
}

// setup loads .env, the config file and secrets, and builds the logger.
func setup(cmd *cobra.Command, _ []string) error {
	debug, _ := cmd.Flags().GetBool("debug")
	l, err := newLogger(debug)
	if err != nil {
		return err
	}
	logger = l
	zap.ReplaceGlobals(logger)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	if err := viper.ReadInConfig(); err == nil {
		logger.Debug("using config file", zap.String("path", viper.ConfigFileUsed()))
	} else if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}

	dir, _ := cmd.Flags().GetString("secrets-dir")
	s, err := secrets.Load(dir)
	if err != nil {
		return err
	}
	if len(s) > 0 {
		keys := make([]string, 0, len(s))
		for k := range s {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		logger.Debug("loaded secrets", zap.Strings("keys", keys))
	}
	secrets.Apply(&cfg, s)
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.DisableStacktrace = true
	if debug {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return zc.Build()
}

func main() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
