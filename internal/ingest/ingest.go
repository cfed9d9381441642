// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest downloads library papers, checks that they are readable
// PDFs and uploads them to the RAG knowledge base, recording each step in
// the paper's ingestion status.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/httputil"
	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/metrics"
	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/rag"
	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// DefaultPapersDir is where downloaded PDFs are kept when none is configured.
const DefaultPapersDir = "papers"

// DefaultWorkers bounds concurrent ingestions when none is configured.
const DefaultWorkers = 2

const (
	defaultTimeout   = 120 * time.Second
	defaultUserAgent = "research-tool/0.1 (PDF ingestion)"
)

// ErrNoPDF is recorded for papers without a PDF link.
var ErrNoPDF = errors.New("no PDF URL available")

// Library is the part of the store ingestion writes to.
type Library interface {
	UpdateIngestion(ctx context.Context, sourceID string, status types.IngestionStatus, errMsg, ragDocID string) error
	SetSourceDOI(ctx context.Context, sourceID, doi string) error
}

// Uploader sends documents to the knowledge base.
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (rag.UploadResult, error)
}

// Ingester runs papers through download, validation and upload.
type Ingester struct {
	lib        Library
	uploader   Uploader
	httpClient *http.Client
	papersDir  string
	userAgent  string
	workers    int
	logger     *zap.Logger
	metrics    *metrics.Metrics
	wg         sync.WaitGroup
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(in *Ingester) { in.logger = l }
}

// WithMetrics records finished ingestions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(in *Ingester) { in.metrics = m }
}

// WithHTTPClient sets the client used for PDF downloads.
func WithHTTPClient(hc *http.Client) Option {
	return func(in *Ingester) { in.httpClient = hc }
}

// New builds an Ingester.
func New(lib Library, uploader Uploader, cfg types.IngestConfig, opts ...Option) *Ingester {
	in := &Ingester{
		lib:        lib,
		uploader:   uploader,
		httpClient: &http.Client{Timeout: defaultTimeout},
		papersDir:  cfg.PapersDir,
		userAgent:  cfg.UserAgent,
		workers:    cfg.Workers,
		logger:     zap.NewNop(),
	}
	if in.papersDir == "" {
		in.papersDir = DefaultPapersDir
	}
	if in.userAgent == "" {
		in.userAgent = defaultUserAgent
	}
	if in.workers <= 0 {
		in.workers = DefaultWorkers
	}
	if cfg.Timeout > 0 {
		in.httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	for _, opt := range opts {
		opt(in)
	}
	in.logger = in.logger.Named("ingest")
	return in
}

// Result is the outcome of one paper's ingestion.
type Result struct {
	SourceID string                `json:"source_id"`
	Index    int                   `json:"index"`
	Status   types.IngestionStatus `json:"status"`
	DocID    string                `json:"doc_id,omitempty"`
	DOI      string                `json:"doi,omitempty"`
	Pages    int                   `json:"pages,omitempty"`
	Skipped  bool                  `json:"skipped,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// Ingest moves one paper through downloading, parsing and ingesting to
// ready. Any failure marks the paper failed with the message and is
// returned. Papers already ready are skipped.
func (in *Ingester) Ingest(ctx context.Context, src types.Source) (Result, error) {
	res := Result{SourceID: src.ID, Index: src.Index}
	if src.IngestionStatus == types.IngestionReady {
		res.Status = types.IngestionReady
		res.DocID = src.RAGDocID
		res.Skipped = true
		return res, nil
	}

	log := in.logger.With(zap.Int("paper", src.Index), zap.String("source_id", src.ID))
	res.Status = types.IngestionFailed

	fail := func(stage string, err error) (Result, error) {
		res.Error = fmt.Sprintf("%s: %v", stage, err)
		if uerr := in.lib.UpdateIngestion(ctx, src.ID, types.IngestionFailed, res.Error, ""); uerr != nil {
			log.Warn("recording ingestion failure", zap.Error(uerr))
		}
		in.metrics.ObserveIngestion(string(types.IngestionFailed))
		log.Info("ingestion failed", zap.String("stage", stage), zap.Error(err))
		return res, fmt.Errorf("paper #%d %s: %w", src.Index, stage, err)
	}
	step := func(status types.IngestionStatus) error {
		return in.lib.UpdateIngestion(ctx, src.ID, status, "", "")
	}

	if src.PDFURL == "" {
		return fail("download", ErrNoPDF)
	}

	if err := step(types.IngestionDownloading); err != nil {
		return res, err
	}
	path := filepath.Join(in.papersDir, PDFName(src))
	if _, err := os.Stat(path); err == nil {
		log.Debug("PDF already on disk", zap.String("path", path))
	} else if err := in.download(ctx, src.PDFURL, path); err != nil {
		return fail("download", err)
	}

	if err := step(types.IngestionParsing); err != nil {
		return res, err
	}
	info, err := Inspect(path)
	if err != nil {
		return fail("parse", err)
	}
	res.Pages = info.Pages
	if src.DOI == "" && info.DOI != "" {
		res.DOI = info.DOI
		if err := in.lib.SetSourceDOI(ctx, src.ID, info.DOI); err != nil {
			log.Warn("saving DOI found in PDF", zap.Error(err))
		}
	}

	if err := step(types.IngestionIngesting); err != nil {
		return res, err
	}
	up, err := in.upload(ctx, path)
	if err != nil {
		return fail("upload", err)
	}
	if !up.Success {
		return fail("upload", errors.New(up.Error))
	}

	docID := up.DocID
	if docID == "" {
		docID = up.TrackID
	}
	if err := in.lib.UpdateIngestion(ctx, src.ID, types.IngestionReady, "", docID); err != nil {
		return res, err
	}
	res.Status, res.DocID = types.IngestionReady, docID
	in.metrics.ObserveIngestion(string(types.IngestionReady))
	log.Info("paper ingested", zap.Int("pages", info.Pages), zap.String("doc_id", docID))
	return res, nil
}

// BatchResult summarizes a batch ingestion run.
type BatchResult struct {
	Ready   int      `json:"ready"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Results []Result `json:"results"`
}

// Total returns the number of papers processed.
func (r BatchResult) Total() int {
	return r.Ready + r.Skipped + r.Failed
}

// HasFailures reports whether any paper failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// IngestBatch ingests papers with at most the configured number running
// at once. A failed paper does not stop the others. Results keep the
// input order.
func (in *Ingester) IngestBatch(ctx context.Context, sources []types.Source) BatchResult {
	results := make([]Result, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.workers)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			res, err := in.Ingest(gctx, src)
			if err != nil && res.Error == "" {
				res.Status = types.IngestionFailed
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	g.Wait()

	var out BatchResult
	for _, r := range results {
		switch {
		case r.Skipped:
			out.Skipped++
		case r.Status == types.IngestionReady:
			out.Ready++
		default:
			out.Failed++
		}
	}
	out.Results = results
	return out
}

// Queue starts a batch in the background and returns immediately. The
// batch is detached from ctx cancellation so it outlives the request that
// queued it. Wait blocks until queued batches finish.
func (in *Ingester) Queue(ctx context.Context, sources []types.Source) {
	if len(sources) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	in.wg.Add(1)
	go func() {
		defer in.wg.Done()
		res := in.IngestBatch(ctx, sources)
		in.logger.Info("background ingestion finished",
			zap.Int("ready", res.Ready),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed))
	}()
}

// Wait blocks until every queued batch has finished.
func (in *Ingester) Wait() {
	in.wg.Wait()
}

// download fetches url to destPath through a temporary file that is
// renamed into place only when the whole body arrived.
func (in *Ingester) download(ctx context.Context, url, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", in.userAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := httputil.DoWithRetry(ctx, in.httpClient, req, 2)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".ingest-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func (in *Ingester) upload(ctx context.Context, path string) (rag.UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return rag.UploadResult{}, err
	}
	defer f.Close()
	return in.uploader.Upload(ctx, filepath.Base(path), f)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// PDFName is the file name a paper's PDF is stored under: its DOI or
// arXiv id made filesystem-safe, or its library ID.
func PDFName(src types.Source) string {
	key := src.ID
	switch {
	case src.DOI != "":
		key = src.DOI
	case src.ArxivID != "":
		key = "arxiv-" + src.ArxivID
	}
	key = strings.Trim(unsafeName.ReplaceAllString(strings.ToLower(key), "_"), "_.")
	if key == "" {
		key = "paper"
	}
	return key + ".pdf"
}
