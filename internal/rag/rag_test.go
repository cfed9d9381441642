// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return New(types.RAGConfig{URL: ts.URL + "/", APIKey: "secret"})
}

func TestNotConfigured(t *testing.T) {
	c := New(types.RAGConfig{})
	assert.False(t, c.Configured())

	ctx := context.Background()
	_, err := c.Upload(ctx, "a.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.Query(ctx, "q")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.PipelineStatus(ctx)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, c.Health(ctx), ErrNotConfigured)

	var nilClient *Client
	assert.False(t, nilClient.Configured())
}

func TestUpload(t *testing.T) {
	tests := []struct {
		status      string
		wantSuccess bool
	}{
		{"success", true},
		{"duplicated", true},
		{"processing", true},
		{"error", false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/documents/upload", r.URL.Path)
				assert.Equal(t, "secret", r.Header.Get("X-API-Key"))

				f, hdr, err := r.FormFile("file")
				require.NoError(t, err)
				data, _ := io.ReadAll(f)
				assert.Equal(t, "paper-1.pdf", hdr.Filename)
				assert.Equal(t, "%PDF-1.4", string(data))

				fmt.Fprintf(w, `{"status": %q, "id": "doc-1", "track_id": "t-9", "message": "bad file"}`, tt.status)
			})

			res, err := c.Upload(context.Background(), "paper-1.pdf", strings.NewReader("%PDF-1.4"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantSuccess, res.Success)
			assert.Equal(t, "t-9", res.TrackID)
			assert.Equal(t, "doc-1", res.DocID)
			if tt.wantSuccess {
				assert.Empty(t, res.Error)
			} else {
				assert.Equal(t, "bad file", res.Error)
			}
		})
	}
}

func TestUploadHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
	_, err := c.Upload(context.Background(), "a.pdf", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestQuery(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/query", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"response": "According to Attention Is All You Need, attention suffices. Source: BERT paper"}`)
	})

	res, err := c.Query(context.Background(), "what is attention?")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"query": "what is attention?", "mode": "hybrid"}, got)
	assert.Equal(t, "what is attention?", res.Query)
	assert.Equal(t, []ChunkReference{{DocName: "Attention Is All You Need"}, {DocName: "BERT paper"}}, res.Sources)
}

func TestPipelineStatusAndHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/documents/pipeline_status":
			fmt.Fprint(w, `{"busy": true, "job_name": "indexing", "docs": 3, "batchs": 2, "cur_batch": 1}`)
		case "/health":
			fmt.Fprint(w, `{"status": "healthy"}`)
		default:
			http.NotFound(w, r)
		}
	})

	ps, err := c.PipelineStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, ps.Busy)
	assert.Equal(t, "indexing", ps.JobName)
	assert.Equal(t, 3, ps.DocsCount)
	assert.Equal(t, 2, ps.Batches)
	assert.Equal(t, 1, ps.CurrentBatch)

	assert.NoError(t, c.Health(context.Background()))
}

func TestExtractSources(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []ChunkReference
	}{
		{"none", "Yes.", []ChunkReference{}},
		{"dedup", `From "Doc A", and from "Doc A" again`, []ChunkReference{{DocName: "Doc A"}}},
		{"stops at punctuation", "in it we trust. Then", []ChunkReference{{DocName: "it we trust"}}},
		{"too short", "in ab", []ChunkReference{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractSources(tt.response))
		})
	}
}
