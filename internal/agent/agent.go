// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package agent turns chat messages into research actions. Each message
// is parsed into an intent, dispatched to one handler and answered in
// natural language; both sides of the turn are kept in the chat history.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/intent"
	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/metrics"
	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/rag"
	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/store"
	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// Defaults applied to zero AgentConfig fields.
const (
	DefaultMaxPapers          = 10
	DefaultMaxSections        = 7
	DefaultRelevanceThreshold = 0.3
)

var (
	// ErrInvalidMessage is returned for empty or oversized chat messages.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrNoSession is reported when an action needs a research topic and
	// the project has none yet.
	ErrNoSession error = notice(`There is no active research session yet. Start one with a search, for example "search for quantum cryptography".`)
)

// noticeError is a precondition failure answered to the user as a chat
// message instead of failing the request.
type noticeError struct{ msg string }

func (e *noticeError) Error() string { return e.msg }

func notice(format string, args ...any) error {
	return &noticeError{msg: fmt.Sprintf(format, args...)}
}

// Searcher runs multi-source searches.
type Searcher interface {
	Search(ctx context.Context, req types.SearchRequest) (types.AggregateResult, error)
}

// Knowledge answers questions over ingested papers.
type Knowledge interface {
	Configured() bool
	Query(ctx context.Context, text string) (rag.QueryResult, error)
}

// IngestQueue ingests papers in the background.
type IngestQueue interface {
	Queue(ctx context.Context, sources []types.Source)
}

// Agent executes chat intents against a project. It is safe for
// concurrent use.
type Agent struct {
	store    *store.Store
	searcher Searcher
	rag      Knowledge
	ingest   IngestQueue
	cfg      types.AgentConfig
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// Option configures an Agent.
type Option func(*Agent)

// WithKnowledge enables summaries and answers from the RAG store.
func WithKnowledge(k Knowledge) Option {
	return func(a *Agent) { a.rag = k }
}

// WithIngestQueue enables automatic ingestion of added papers.
func WithIngestQueue(q IngestQueue) Option {
	return func(a *Agent) { a.ingest = q }
}

// WithConfig sets limits and defaults.
func WithConfig(cfg types.AgentConfig) Option {
	return func(a *Agent) { a.cfg = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// WithMetrics counts parsed intents.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Agent) { a.metrics = m }
}

// New builds an agent over a library store and a searcher.
func New(st *store.Store, searcher Searcher, opts ...Option) *Agent {
	a := &Agent{store: st, searcher: searcher, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	if a.cfg.MaxPapers <= 0 {
		a.cfg.MaxPapers = DefaultMaxPapers
	}
	if a.cfg.MaxSections < 2 {
		a.cfg.MaxSections = DefaultMaxSections
	}
	if a.cfg.RelevanceThreshold <= 0 {
		a.cfg.RelevanceThreshold = DefaultRelevanceThreshold
	}
	a.logger = a.logger.Named("agent")
	return a
}

// turn carries the state one handler works on.
type turn struct {
	projectID  string
	session    *types.ResearchSession
	intent     types.Intent
	autoIngest bool
	resp       *types.ChatResponse
}

// ProcessMessage handles one chat turn for a project: it parses the
// intent, stores the user message, runs the matching handler and stores
// the reply. Unmet preconditions, such as a missing session or an unknown
// paper number, are answered in the reply. It returns ErrInvalidMessage
// for bad input and store.ErrNotFound for an unknown project.
func (a *Agent) ProcessMessage(ctx context.Context, projectID string, req types.ChatRequest) (types.ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return types.ChatResponse{}, fmt.Errorf("%w: message is empty", ErrInvalidMessage)
	}
	if n := utf8.RuneCountInString(req.Message); n > types.MaxChatMessageLength {
		return types.ChatResponse{}, fmt.Errorf("%w: message has %d characters, limit is %d",
			ErrInvalidMessage, n, types.MaxChatMessageLength)
	}
	if _, err := a.store.GetProject(ctx, projectID); err != nil {
		return types.ChatResponse{}, err
	}

	in := intent.Parse(req.Message)
	a.metrics.ObserveIntent(string(in.Type))
	a.logger.Debug("parsed message", zap.String("intent", intent.Describe(in)))

	t := &turn{
		projectID:  projectID,
		intent:     in,
		autoIngest: a.cfg.AutoIngest,
		resp: &types.ChatResponse{
			ActionTaken:      in.Type,
			PapersAdded:      []int{},
			PapersReferenced: in.PaperRefs,
			Metadata: map[string]any{
				"intent":     string(in.Type),
				"confidence": in.Confidence,
			},
		},
	}
	if req.AutoIngest != nil {
		t.autoIngest = *req.AutoIngest
	}
	if q := in.QueryText(); q != "" {
		t.resp.Metadata["query"] = q
	}

	switch rs, err := a.store.LatestSession(ctx, projectID); {
	case err == nil:
		t.session = &rs
	case !errors.Is(err, store.ErrNotFound):
		return types.ChatResponse{}, err
	}

	if _, err := a.store.AppendMessage(ctx, projectID, types.ChatMessage{
		SessionID: t.sessionID(),
		Role:      types.RoleUser,
		Content:   req.Message,
		Metadata:  map[string]any{"intent": string(in.Type)},
	}); err != nil {
		return types.ChatResponse{}, err
	}

	msg, err := a.dispatch(ctx, t)
	var n *noticeError
	switch {
	case errors.As(err, &n):
		msg = n.msg
	case err != nil:
		a.logger.Error("handling message", zap.String("intent", string(in.Type)), zap.Error(err))
		return types.ChatResponse{}, err
	}
	t.resp.Message = msg

	if _, err := a.store.AppendMessage(ctx, projectID, types.ChatMessage{
		SessionID: t.sessionID(),
		Role:      types.RoleAssistant,
		Content:   msg,
		Metadata:  t.resp.Metadata,
	}); err != nil {
		return types.ChatResponse{}, err
	}
	return *t.resp, nil
}

func (t *turn) sessionID() string {
	if t.session == nil {
		return ""
	}
	return t.session.ID
}

func (a *Agent) dispatch(ctx context.Context, t *turn) (string, error) {
	switch t.intent.Type {
	case types.IntentSearch:
		return a.handleSearch(ctx, t)
	case types.IntentDeepen:
		return a.handleDeepen(ctx, t)
	case types.IntentSummarize:
		return a.handleSummarize(ctx, t)
	case types.IntentGenerateOutline:
		return a.handleGenerateOutline(ctx, t)
	case types.IntentAddSection:
		return a.handleAddSection(ctx, t)
	case types.IntentEditSection:
		return a.handleEditSection(ctx, t)
	case types.IntentLinkSource:
		return a.handleLinkSource(ctx, t)
	case types.IntentFindGaps:
		return a.handleFindGaps(ctx, t)
	case types.IntentAskQuestion:
		return a.handleAskQuestion(ctx, t)
	}
	return helpText, nil
}

// papersByRef loads the referenced library papers. Unknown numbers are
// reported back; none found at all is a notice.
func (a *Agent) papersByRef(ctx context.Context, projectID string, refs []int) ([]types.Source, []int, error) {
	found, missing, err := a.store.SourcesByIndex(ctx, projectID, refs)
	if err != nil {
		return nil, nil, err
	}
	if len(found) == 0 {
		return nil, nil, notice("I couldn't find %s in your library.", paperList(missing))
	}
	return found, missing, nil
}

// paperList renders indices as "paper #3" or "papers #3, #7".
func paperList(indices []int) string {
	parts := make([]string, len(indices))
	for i, n := range indices {
		parts[i] = fmt.Sprintf("#%d", n)
	}
	if len(parts) == 1 {
		return "paper " + parts[0]
	}
	return "papers " + strings.Join(parts, ", ")
}

const helpText = `I'm not sure what you'd like to do. Here are some things I can help with:

- "search for graph neural networks" finds papers and adds the relevant ones to your library
- "papers 3 and 7 look interesting, find more like them" searches deeper around specific papers
- "summarize paper 3" or "summarize the library" gives an overview
- "generate an outline" builds an outline from your library
- "add a section on methodology" or "rename section 2 to Related Work" edits the outline
- "link paper #5 to section 2" attaches a paper to a section
- "which claims need more sources?" finds gaps in the outline
- "what methods were used for evaluation?" answers from the ingested papers`
