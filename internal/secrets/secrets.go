// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: semantic-scholar-api-key, core-api-key, pubmed-api-key,
// lightrag-api-key, openalex-email, redis-password.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// Key file names.
const (
	SemanticScholarAPIKey = "semantic-scholar-api-key"
	CoreAPIKey            = "core-api-key"
	PubMedAPIKey          = "pubmed-api-key"
	LightRAGAPIKey        = "lightrag-api-key"
	OpenAlexEmail         = "openalex-email"
	RedisPassword         = "redis-password"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			zap.L().Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Apply fills empty credential fields of cfg from loaded secrets. Values
// already set through flags, environment or the config file win.
func Apply(cfg *types.Config, secrets map[string]string) {
	setSource := func(tag types.SourceTag, apply func(sc *types.SourceConfig)) {
		if cfg.Search.Sources == nil {
			cfg.Search.Sources = make(map[types.SourceTag]types.SourceConfig)
		}
		sc := cfg.Search.Sources[tag]
		apply(&sc)
		cfg.Search.Sources[tag] = sc
	}

	if v := secrets[SemanticScholarAPIKey]; v != "" {
		setSource(types.SourceSemanticScholar, func(sc *types.SourceConfig) { fillEmpty(&sc.APIKey, v) })
	}
	if v := secrets[CoreAPIKey]; v != "" {
		setSource(types.SourceCore, func(sc *types.SourceConfig) { fillEmpty(&sc.APIKey, v) })
	}
	if v := secrets[PubMedAPIKey]; v != "" {
		setSource(types.SourcePubMed, func(sc *types.SourceConfig) { fillEmpty(&sc.APIKey, v) })
	}
	if v := secrets[OpenAlexEmail]; v != "" {
		for _, tag := range []types.SourceTag{types.SourceOpenAlex, types.SourceCrossRef, types.SourcePubMed} {
			setSource(tag, func(sc *types.SourceConfig) { fillEmpty(&sc.Email, v) })
		}
	}
	fillEmpty(&cfg.RAG.APIKey, secrets[LightRAGAPIKey])
	fillEmpty(&cfg.Cache.Password, secrets[RedisPassword])
}

func fillEmpty(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}
