// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rag is a client for a LightRAG server. It uploads ingested
// PDFs and answers questions over the ingested corpus.
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/httputil"
	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// DefaultURL is the LightRAG address used when none is configured.
const DefaultURL = "http://localhost:9621"

// DefaultMode is the LightRAG retrieval mode.
const DefaultMode = "hybrid"

// Uploads and queries can take minutes while LightRAG builds its graph.
const defaultTimeout = 300 * time.Second

// ErrNotConfigured is returned by every call when no API key is set.
var ErrNotConfigured = errors.New("LightRAG API key not configured")

// Client talks to one LightRAG server.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	mode       string
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New builds a client from configuration.
func New(cfg types.RAGConfig, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		mode:       cfg.Mode,
		logger:     zap.NewNop(),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultURL
	}
	if c.mode == "" {
		c.mode = DefaultMode
	}
	if cfg.Timeout > 0 {
		c.httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("rag")
	return c
}

// Configured reports whether the client has credentials.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// UploadResult is LightRAG's answer to a document upload.
type UploadResult struct {
	Success bool   `json:"success"`
	DocID   string `json:"doc_id,omitempty"`
	TrackID string `json:"track_id,omitempty"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// Upload sends a PDF to LightRAG for indexing. A response whose status is
// not success, duplicated or processing yields Success false with the
// server message in Error; transport and HTTP failures return an error.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (UploadResult, error) {
	if !c.Configured() {
		return UploadResult{}, ErrNotConfigured
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return UploadResult{}, fmt.Errorf("building upload form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return UploadResult{}, fmt.Errorf("reading %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("building upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documents/upload", &body)
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		Status  string `json:"status"`
		ID      string `json:"id"`
		TrackID string `json:"track_id"`
		Message string `json:"message"`
	}
	if err := c.do(req, &out); err != nil {
		return UploadResult{}, fmt.Errorf("uploading %s: %w", filename, err)
	}

	res := UploadResult{
		DocID:   out.ID,
		TrackID: out.TrackID,
		Status:  out.Status,
	}
	switch out.Status {
	case "success", "duplicated", "processing":
		res.Success = true
	default:
		res.Error = out.Message
		if res.Error == "" {
			res.Error = "upload status " + out.Status
		}
	}
	c.logger.Debug("uploaded document",
		zap.String("filename", filename),
		zap.String("status", out.Status),
		zap.String("track_id", out.TrackID))
	return res, nil
}

// ChunkReference names a document the answer drew on.
type ChunkReference struct {
	DocName string `json:"doc_name"`
}

// QueryResult is an answer from the knowledge base.
type QueryResult struct {
	Query    string           `json:"query"`
	Response string           `json:"response"`
	Sources  []ChunkReference `json:"sources"`
}

// Query asks a question over the ingested documents.
func (c *Client) Query(ctx context.Context, text string) (QueryResult, error) {
	if !c.Configured() {
		return QueryResult{}, ErrNotConfigured
	}
	payload, err := json.Marshal(map[string]string{"query": text, "mode": c.mode})
	if err != nil {
		return QueryResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(payload))
	if err != nil {
		return QueryResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		Response string `json:"response"`
	}
	if err := c.do(req, &out); err != nil {
		return QueryResult{}, fmt.Errorf("querying knowledge base: %w", err)
	}
	return QueryResult{
		Query:    text,
		Response: out.Response,
		Sources:  ExtractSources(out.Response),
	}, nil
}

// PipelineStatus is the state of LightRAG's indexing pipeline.
type PipelineStatus struct {
	Busy           bool   `json:"busy"`
	JobName        string `json:"job_name,omitempty"`
	JobStart       string `json:"job_start,omitempty"`
	DocsCount      int    `json:"docs"`
	Batches        int    `json:"batchs"`
	CurrentBatch   int    `json:"cur_batch"`
	LatestMessage  string `json:"latest_message,omitempty"`
	Autoscanned    bool   `json:"autoscanned"`
	RequestPending bool   `json:"request_pending"`
}

// PipelineStatus reports whether uploads are still being indexed.
func (c *Client) PipelineStatus(ctx context.Context) (PipelineStatus, error) {
	if !c.Configured() {
		return PipelineStatus{}, ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/documents/pipeline_status", nil)
	if err != nil {
		return PipelineStatus{}, err
	}
	var ps PipelineStatus
	if err := c.do(req, &ps); err != nil {
		return PipelineStatus{}, fmt.Errorf("checking pipeline status: %w", err)
	}
	return ps, nil
}

// Health checks that the server is reachable and accepts the key.
func (c *Client) Health(ctx context.Context) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// do sends req with the API key and decodes a 200 JSON body into out.
func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := httputil.DoWithRetry(req.Context(), c.httpClient, req, 2)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

var sourcePattern = regexp.MustCompile(`(?i)(?:from|in|source:|according to)\s+["']?([^"'.,\n]+)["']?`)

// ExtractSources pulls the document names an answer attributes its
// content to, in order of first mention.
func ExtractSources(response string) []ChunkReference {
	out := []ChunkReference{}
	seen := map[string]bool{}
	for _, m := range sourcePattern.FindAllStringSubmatch(response, -1) {
		name := strings.TrimSpace(m[1])
		if len(name) <= 2 || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, ChunkReference{DocName: name})
	}
	return out
}
