// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/rag"
	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/search"
	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/store"
	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// --- fakes ---

type fakeSearcher struct {
	mu       sync.Mutex
	requests []types.SearchRequest
	result   types.AggregateResult
	err      error
}

func (f *fakeSearcher) Search(_ context.Context, req types.SearchRequest) (types.AggregateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	res := f.result
	res.Query = req.Query
	return res, f.err
}

func (f *fakeSearcher) lastQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return ""
	}
	return f.requests[len(f.requests)-1].Query
}

type fakeKnowledge struct {
	configured bool
	answer     rag.QueryResult
	err        error
	questions  []string
}

func (f *fakeKnowledge) Configured() bool { return f.configured }

func (f *fakeKnowledge) Query(_ context.Context, text string) (rag.QueryResult, error) {
	f.questions = append(f.questions, text)
	return f.answer, f.err
}

type fakeQueue struct{ queued []types.Source }

func (f *fakeQueue) Queue(_ context.Context, sources []types.Source) {
	f.queued = append(f.queued, sources...)
}

// --- helpers ---

func record(title, doi string, citations int) types.PaperRecord {
	return types.PaperRecord{
		PaperID:         "W-" + title,
		DOI:             doi,
		Title:           title,
		Abstract:        "A study of " + strings.ToLower(title) + ".",
		PublicationYear: types.Int(2021),
		CitationCount:   types.Int(citations),
		SourceAPI:       types.SourceOpenAlex,
	}
}

func graphResults() types.AggregateResult {
	withPDF := record("Graph Neural Networks for Molecules", "10.1/mol", 150)
	withPDF.PDFURL = "https://example.org/mol.pdf"
	return types.AggregateResult{
		Results: []types.PaperRecord{
			withPDF,
			record("Graph Attention Networks", "10.1/gat", 5000),
			record("Scalable Graph Neural Networks", "10.1/scale", 30),
			record("Protein Folding with Transformers", "10.1/fold", 10),
		},
		SourceCounts: map[string]int{"openalex": 4},
		Errors:       map[string]string{},
	}
}

type harness struct {
	agent    *Agent
	store    *store.Store
	searcher *fakeSearcher
	rag      *fakeKnowledge
	queue    *fakeQueue
	project  string
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, types.StoreConfig{DSN: filepath.Join(t.TempDir(), "agent.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	p, err := st.CreateProject(ctx, "thesis")
	require.NoError(t, err)

	h := &harness{
		store:    st,
		searcher: &fakeSearcher{result: graphResults()},
		rag:      &fakeKnowledge{},
		queue:    &fakeQueue{},
		project:  p.ID,
	}
	opts = append([]Option{WithKnowledge(h.rag), WithIngestQueue(h.queue)}, opts...)
	h.agent = New(st, h.searcher, opts...)
	return h
}

func (h *harness) say(t *testing.T, msg string) types.ChatResponse {
	t.Helper()
	resp, err := h.agent.ProcessMessage(context.Background(), h.project, types.ChatRequest{Message: msg})
	require.NoError(t, err)
	return resp
}

// --- ProcessMessage ---

func TestProcessMessageRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.agent.ProcessMessage(ctx, h.project, types.ChatRequest{Message: "   "})
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = h.agent.ProcessMessage(ctx, h.project, types.ChatRequest{Message: strings.Repeat("a", types.MaxChatMessageLength+1)})
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = h.agent.ProcessMessage(ctx, "no-such-project", types.ChatRequest{Message: "search for graphs"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSearchStartsSessionAndAddsRelevantPapers(t *testing.T) {
	h := newHarness(t)
	resp := h.say(t, "search for graph neural networks")

	assert.Equal(t, types.IntentSearch, resp.ActionTaken)
	assert.Equal(t, "graph neural networks", h.searcher.lastQuery())
	assert.Equal(t, []int{1, 2, 3}, resp.PapersAdded, "protein folding is filtered as irrelevant")
	assert.Contains(t, resp.Message, "added 3 to your library")
	assert.Contains(t, resp.Message, "#1 **Graph Neural Networks for Molecules** (2021)")
	assert.Equal(t, 4, resp.Metadata["papers_found"])
	assert.Equal(t, 3, resp.Metadata["papers_relevant"])

	ctx := context.Background()
	rs, err := h.store.LatestSession(ctx, h.project)
	require.NoError(t, err)
	assert.Equal(t, "graph neural networks", rs.Topic)

	papers, err := h.store.ListSources(ctx, h.project)
	require.NoError(t, err)
	require.Len(t, papers, 3)
	assert.Equal(t, "Graph Neural Networks for Molecules", papers[0].Title, "full topic match ranks first")
	assert.Equal(t, "graph neural networks", papers[0].Topic)
	assert.InDelta(t, 1.0, papers[0].RelevanceScore, 1e-9)

	logs, err := h.store.ExplorationHistory(ctx, rs.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 3, logs[0].SourcesAdded)
	assert.Equal(t, "user_request", logs[0].Trigger)

	assert.Empty(t, h.queue.queued, "auto ingest is off by default")
}

func TestSearchSkipsPapersAlreadyInLibrary(t *testing.T) {
	h := newHarness(t)
	h.say(t, "search for graph neural networks")
	resp := h.say(t, "search for graph neural networks")

	assert.Empty(t, resp.PapersAdded)
	assert.Contains(t, resp.Message, "already in your library")
}

func TestSearchQueuesIngestion(t *testing.T) {
	h := newHarness(t)
	on := true
	resp, err := h.agent.ProcessMessage(context.Background(), h.project,
		types.ChatRequest{Message: "search for graph neural networks", AutoIngest: &on})
	require.NoError(t, err)

	require.Len(t, h.queue.queued, 1, "only papers with a PDF URL are queued")
	assert.Equal(t, "https://example.org/mol.pdf", h.queue.queued[0].PDFURL)
	assert.Equal(t, 1, resp.Metadata["ingestion_queued"])
	assert.Contains(t, resp.Message, "Queued 1 papers")
}

func TestSearchReportsSourceErrors(t *testing.T) {
	h := newHarness(t)
	h.searcher.result.Errors = map[string]string{"pubmed": "timeout"}
	resp := h.say(t, "search for graph neural networks")
	assert.Contains(t, resp.Message, "Some sources could not be searched: pubmed.")
}

func TestSearchFailuresBecomeNotices(t *testing.T) {
	h := newHarness(t)
	h.searcher.err = errors.Join(search.ErrInvalidRequest, errors.New("limit too large"))
	resp := h.say(t, "search for graph neural networks")
	assert.Contains(t, resp.Message, "I can't run that search")

	h.searcher.err = errors.New("boom")
	_, err := h.agent.ProcessMessage(context.Background(), h.project, types.ChatRequest{Message: "search for graphs"})
	assert.Error(t, err, "unexpected failures are returned")
}

func TestPreconditionsAreAnsweredInChat(t *testing.T) {
	tests := []struct {
		name    string
		message string
		intent  types.IntentType
		want    string
	}{
		{"deepen without session", "find more like these", types.IntentDeepen, "no active research session"},
		{"outline without session", "generate an outline", types.IntentGenerateOutline, "no active research session"},
		{"summarize empty library", "summarize", types.IntentSummarize, "library is empty"},
		{"unknown paper", "summarize paper 9", types.IntentSummarize, "couldn't find paper #9"},
		{"gaps without outline", "which claims need more sources?", types.IntentFindGaps, "no outline yet"},
		{"question without rag", "what methods were used for evaluation?", types.IntentAskQuestion, "knowledge base is not configured"},
		{"unknown intent", "hello there", types.IntentUnknown, "things I can help with"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			resp := h.say(t, tt.message)
			assert.Equal(t, tt.intent, resp.ActionTaken)
			assert.Contains(t, resp.Message, tt.want)
		})
	}
}

func TestDeepen(t *testing.T) {
	h := newHarness(t)
	h.say(t, "search for graph neural networks")

	h.say(t, "papers 1 and 2 look interesting, find more like them")
	assert.Equal(t, "Graph Neural Networks for Molecules Scalable Graph Neural Networks", h.searcher.lastQuery())

	h.say(t, "go deeper on molecules")
	assert.True(t, strings.HasPrefix(h.searcher.lastQuery(), "graph neural networks "), h.searcher.lastQuery())
}

func TestSummarize(t *testing.T) {
	h := newHarness(t)
	h.say(t, "search for graph neural networks")

	resp := h.say(t, "summarize paper 2")
	assert.Contains(t, resp.Message, "#2 **Scalable Graph Neural Networks**")
	assert.Contains(t, resp.Message, "2021 · 30 citations · doi:10.1/scale")
	assert.Contains(t, resp.Message, "Ingestion: pending")
	assert.Equal(t, []int{2}, resp.PapersReferenced)

	resp = h.say(t, "summarize")
	assert.Contains(t, resp.Message, "Your library has 3 papers")
	assert.Contains(t, resp.Message, "- graph neural networks: 3 papers")

	h.rag.configured = true
	h.rag.answer = rag.QueryResult{Response: "They all use message passing.", Sources: []rag.ChunkReference{{DocName: "mol.pdf"}}}
	resp = h.say(t, "summarize the main results")
	assert.Equal(t, "They all use message passing.", resp.Message)
	assert.Equal(t, []string{"summarize the main results"}, h.rag.questions)

	h.rag.err = errors.New("down")
	resp = h.say(t, "summarize the main results")
	assert.Contains(t, resp.Message, "Your library has 3 papers", "falls back to the overview")
}

func TestAskQuestion(t *testing.T) {
	h := newHarness(t)
	h.rag.configured = true
	h.rag.answer = rag.QueryResult{
		Response: "Most papers evaluate on QM9.",
		Sources:  []rag.ChunkReference{{DocName: "mol.pdf"}, {DocName: "gat.pdf"}},
	}

	resp := h.say(t, "what datasets were used for evaluation?")
	assert.Equal(t, types.IntentAskQuestion, resp.ActionTaken)
	assert.Equal(t, "Most papers evaluate on QM9.\n\nSources: mol.pdf, gat.pdf", resp.Message)
	assert.Equal(t, []string{"mol.pdf", "gat.pdf"}, resp.Metadata["rag_sources"])

	h.rag.err = errors.New("connection refused")
	resp = h.say(t, "what datasets were used for evaluation?")
	assert.Contains(t, resp.Message, "couldn't reach the knowledge base")
}

func TestOutlineWorkflow(t *testing.T) {
	h := newHarness(t, WithConfig(types.AgentConfig{MaxSections: 4}))
	ctx := context.Background()
	h.say(t, "search for graph neural networks")

	resp := h.say(t, "generate an outline")
	assert.Equal(t, 4, resp.SectionsCreated)
	assert.Equal(t, 4, resp.ClaimsCreated, "intro, conclusion and one claim per subtopic paper")

	outline, err := h.store.ListOutline(ctx, h.project)
	require.NoError(t, err)
	require.Len(t, outline, 4)
	assert.Equal(t, "Introduction", outline[0].Title)
	assert.Equal(t, "Overview of graph neural networks", outline[0].Claims[0].ClaimText)
	assert.Equal(t, "Molecules", outline[1].Title)
	assert.Equal(t, "Scalable", outline[2].Title)
	assert.Len(t, outline[1].Claims[0].SupportingSources, 1)
	assert.Equal(t, "Conclusion", outline[3].Title)

	rs, err := h.store.LatestSession(ctx, h.project)
	require.NoError(t, err)
	assert.Equal(t, types.SessionDrafting, rs.Status)

	resp = h.say(t, "generate an outline")
	assert.Contains(t, resp.Message, "already has an outline")

	resp = h.say(t, "which claims need more sources?")
	assert.Contains(t, resp.Message, "2 claims need supporting sources")
	assert.Contains(t, resp.Message, "[Introduction] Overview of graph neural networks")

	resp = h.say(t, "link paper #3 to section 1")
	assert.Equal(t, types.IntentLinkSource, resp.ActionTaken)
	assert.Contains(t, resp.Message, `Linked paper #3 to section "Introduction"`)

	resp = h.say(t, "add a section on methodology")
	assert.Equal(t, types.IntentAddSection, resp.ActionTaken)
	assert.Equal(t, "Added section 5: Methodology.", resp.Message)

	resp = h.say(t, "rename section 5 to Related Work")
	assert.Equal(t, types.IntentEditSection, resp.ActionTaken)
	assert.Equal(t, `Renamed section "Methodology" to "Related Work".`, resp.Message)

	resp = h.say(t, "link paper #2 to section related work")
	assert.Equal(t, 1, resp.ClaimsCreated, "an empty section gets a claim to link to")

	resp = h.say(t, "link paper #1 to section 9")
	assert.Contains(t, resp.Message, `couldn't find section "9"`)

	resp = h.say(t, "which claims need more sources?")
	assert.Contains(t, resp.Message, "1 claims need supporting sources")
	assert.Contains(t, resp.Message, "[Conclusion]")
}

func TestHistoryIsPersisted(t *testing.T) {
	h := newHarness(t)
	h.say(t, "search for graph neural networks")

	msgs, err := h.store.History(context.Background(), h.project, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, types.RoleUser, msgs[0].Role)
	assert.Equal(t, "search for graph neural networks", msgs[0].Content)
	assert.Equal(t, types.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "search", msgs[1].Metadata["intent"])
	assert.NotEmpty(t, msgs[1].SessionID)
}

// --- ranking ---

func TestRankByRelevance(t *testing.T) {
	papers := []types.PaperRecord{
		{Title: "Unrelated", CitationCount: types.Int(500)},
		{Title: "Graph methods", CitationCount: types.Int(25)},
		{Title: "Graph networks", Abstract: "neural"},
		{Title: "Graph neural networks", CitationCount: types.Int(1000)},
	}
	got := RankByRelevance(papers, "Graph Neural Networks graph", 0.3)

	require.Len(t, got, 3)
	assert.Equal(t, "Graph networks", got[0].Paper.Title, "equal scores keep search order")
	assert.Equal(t, "Graph neural networks", got[1].Paper.Title)
	assert.InDelta(t, 1.0, got[1].Score, 1e-9, "capped at 1")
	assert.Equal(t, "Graph methods", got[2].Paper.Title)
	assert.InDelta(t, 1.0/3+0.1, got[2].Score, 1e-9)
}

func TestSubtopics(t *testing.T) {
	papers := []types.PaperRecord{
		{Title: "Attention for graphs: molecules"},
		{Title: "Molecules, proteins and graphs"},
		{Title: "Deep attention models"},
	}
	got := Subtopics(papers, "graphs", 3)
	assert.Equal(t, []string{"attention", "molecules", "proteins"}, got)
	assert.Empty(t, Subtopics(nil, "x", 5))
}

func TestPaperList(t *testing.T) {
	assert.Equal(t, "paper #3", paperList([]int{3}))
	assert.Equal(t, "papers #3, #7", paperList([]int{3, 7}))
}

func TestSummarizeAbstract(t *testing.T) {
	assert.Equal(t, "short text", summarize("short \n text"))
	long := strings.Repeat("é", 250)
	got := summarize(long)
	assert.Equal(t, strings.Repeat("é", 200)+"...", got)
}
