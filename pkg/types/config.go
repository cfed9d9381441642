// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "research-tool/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SourceConfig holds the settings of one bibliographic source client.
type SourceConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Disabled removes the source from the aggregator.
	Disabled bool `json:"disabled,omitempty" yaml:"disabled,omitempty" mapstructure:"disabled"`

	// BaseURL overrides the public API endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// APIKey is the optional key; most sources grant higher rate limits with one.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Email is sent to sources with a "polite pool" (OpenAlex, CrossRef, PubMed).
	Email string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email"`

	// MinInterval overrides the source's default minimum delay between requests.
	MinInterval time.Duration `json:"min_interval,omitempty" yaml:"min_interval,omitempty" mapstructure:"min_interval"`
}

// SearchConfig holds settings for the search aggregator.
type SearchConfig struct {
	// Sources configures each source client by tag.
	Sources map[SourceTag]SourceConfig `json:"sources" yaml:"sources" mapstructure:"sources"`

	// DefaultSources overrides DefaultSources for requests that name none.
	DefaultSources []SourceTag `json:"default_sources,omitempty" yaml:"default_sources,omitempty" mapstructure:"default_sources"`

	// LimitPerSource is the default per-source cap (default 25).
	LimitPerSource int `json:"limit_per_source" yaml:"limit_per_source" mapstructure:"limit_per_source"`

	// CacheTTL is how long aggregate results stay cached. Zero disables caching.
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// StoreDriver selects the database/sql driver of the library store.
type StoreDriver string

const (
	DriverSQLite   StoreDriver = "sqlite3"
	DriverPostgres StoreDriver = "pgx"
)

// StoreConfig holds settings for the relational library store.
type StoreConfig struct {
	// Driver is "sqlite3" (default) or "pgx".
	Driver StoreDriver `json:"driver" yaml:"driver" mapstructure:"driver"`

	// DSN is the sqlite file path or the Postgres connection URL.
	DSN string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`
}

// RAGConfig holds settings for the LightRAG collaborator.
type RAGConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// URL is the LightRAG server base URL (e.g. "http://localhost:9621").
	URL string `json:"url" yaml:"url" mapstructure:"url"`

	// APIKey is sent as X-API-Key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Mode is the LightRAG query mode (default "hybrid").
	Mode string `json:"mode" yaml:"mode" mapstructure:"mode"`
}

// CacheConfig holds Redis settings for the search result cache.
type CacheConfig struct {
	// Addr is host:port. Empty disables the cache.
	Addr     string `json:"addr" yaml:"addr" mapstructure:"addr"`
	Password string `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`
	DB       int    `json:"db" yaml:"db" mapstructure:"db"`
}

// IngestConfig holds settings for PDF ingestion.
type IngestConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// PapersDir is where downloaded PDFs are kept.
	PapersDir string `json:"papers_dir" yaml:"papers_dir" mapstructure:"papers_dir"`

	// Workers bounds concurrent ingestions (default 2).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

// AgentConfig holds settings for the chat research agent.
type AgentConfig struct {
	// AutoIngest queues ingestion for newly added papers with a PDF.
	AutoIngest bool `json:"auto_ingest" yaml:"auto_ingest" mapstructure:"auto_ingest"`

	// MaxPapers caps papers added to the library per search (default 10).
	MaxPapers int `json:"max_papers" yaml:"max_papers" mapstructure:"max_papers"`

	// MaxSections caps generated outline sections, including introduction
	// and conclusion (default 7).
	MaxSections int `json:"max_sections" yaml:"max_sections" mapstructure:"max_sections"`

	// RelevanceThreshold is the minimum topic relevance for a paper to be
	// kept (default 0.3).
	RelevanceThreshold float64 `json:"relevance_threshold" yaml:"relevance_threshold" mapstructure:"relevance_threshold"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// Config groups all component configurations. It is built once at process
// start and passed to constructors.
type Config struct {
	Search SearchConfig `json:"search" yaml:"search" mapstructure:"search"`
	Store  StoreConfig  `json:"store" yaml:"store" mapstructure:"store"`
	RAG    RAGConfig    `json:"rag" yaml:"rag" mapstructure:"rag"`
	Cache  CacheConfig  `json:"cache" yaml:"cache" mapstructure:"cache"`
	Ingest IngestConfig `json:"ingest" yaml:"ingest" mapstructure:"ingest"`
	Agent  AgentConfig  `json:"agent" yaml:"agent" mapstructure:"agent"`
	Server ServerConfig `json:"server" yaml:"server" mapstructure:"server"`
}
