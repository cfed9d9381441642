// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), types.StoreConfig{
		DSN: filepath.Join(t.TempDir(), "test.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	// A ticking clock keeps created_at ordering deterministic.
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick int
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func testProject(t *testing.T, s *Store) types.Project {
	t.Helper()
	p, err := s.CreateProject(context.Background(), "thesis")
	require.NoError(t, err)
	return p
}

func paper(title, doi string) types.Source {
	return types.Source{Topic: "deep learning", PaperRecord: types.PaperRecord{
		PaperID:         "id:" + title,
		Title:           title,
		DOI:             doi,
		Abstract:        "About " + title,
		Authors:         []types.Author{{Name: "Ada Lovelace"}},
		PublicationYear: types.Int(2020),
		CitationCount:   types.Int(12),
		SourceAPI:       types.SourceOpenAlex,
	}}
}

// --- projects and sessions ---

func TestOpenDefaultsAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.db")
	ctx := context.Background()

	s, err := Open(ctx, types.StoreConfig{DSN: path}, nil)
	require.NoError(t, err)
	assert.Equal(t, types.DriverSQLite, s.Driver())
	p, err := s.CreateProject(ctx, "one")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Migrating an existing database is a no-op.
	s, err = Open(ctx, types.StoreConfig{DSN: path}, nil)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "one", got.Name)
}

func TestOpenRejectsBadConfig(t *testing.T) {
	_, err := Open(context.Background(), types.StoreConfig{Driver: types.DriverPostgres}, nil)
	assert.Error(t, err)

	_, err = Open(context.Background(), types.StoreConfig{Driver: "oracle"}, nil)
	assert.ErrorContains(t, err, "unsupported")
}

func TestProjects(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.CreateProject(ctx, "  ")
	assert.Error(t, err)

	a, err := s.CreateProject(ctx, "alpha")
	require.NoError(t, err)
	b, err := s.CreateProject(ctx, "beta")
	require.NoError(t, err)

	got, err := s.ProjectByName(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	all, err := s.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID, "newest first")

	_, err = s.GetProject(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ProjectByName(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessions(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := testProject(t, s)

	_, err := s.LatestSession(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.CreateSession(ctx, p.ID, "graph neural networks")
	require.NoError(t, err)
	second, err := s.CreateSession(ctx, p.ID, "quantum cryptography")
	require.NoError(t, err)
	assert.Equal(t, types.SessionExploring, second.Status)

	latest, err := s.LatestSession(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	require.NoError(t, s.UpdateSessionStatus(ctx, second.ID, types.SessionDrafting))
	latest, err = s.LatestSession(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SessionDrafting, latest.Status)

	assert.ErrorIs(t, s.UpdateSessionStatus(ctx, "missing", types.SessionComplete), ErrNotFound)
}

func TestExplorationLog(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := testProject(t, s)
	rs, err := s.CreateSession(ctx, p.ID, "topic")
	require.NoError(t, err)

	_, err = s.LogExploration(ctx, types.ExplorationLog{
		SessionID:    rs.ID,
		ActionType:   types.IntentSearch,
		Trigger:      "search for topic",
		Description:  "Searched for topic",
		Details:      map[string]any{"query": "topic", "found": 3},
		SourcesAdded: 3,
	})
	require.NoError(t, err)
	_, err = s.LogExploration(ctx, types.ExplorationLog{SessionID: rs.ID, ActionType: types.IntentDeepen})
	require.NoError(t, err)

	logs, err := s.ExplorationHistory(ctx, rs.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, types.IntentSearch, logs[0].ActionType)
	assert.Equal(t, "topic", logs[0].Details["query"])
	assert.EqualValues(t, 3, logs[0].Details["found"])
	assert.Equal(t, 3, logs[0].SourcesAdded)
	assert.Empty(t, logs[1].Details)
	assert.NotNil(t, logs[1].Details)
}

// --- library ---

func TestAddSourcesAssignsIndicesAndSkipsDuplicateDOIs(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := testProject(t, s)

	added, err := s.AddSources(ctx, p.ID, []types.Source{
		paper("Attention is all you need", "10.1/A"),
		paper("Graph attention networks", ""),
		paper("Attention duplicate", "10.1/a"),
	})
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, 1, added[0].Index)
	assert.Equal(t, 2, added[1].Index)
	assert.Equal(t, types.IngestionPending, added[0].IngestionStatus)
	assert.Equal(t, p.ID, added[0].ProjectID)
	assert.NotEmpty(t, added[0].ID)

	added, err = s.AddSources(ctx, p.ID, []types.Source{
		paper("Again", "10.1/a"),
		paper("Fresh", "10.2/b"),
		paper("No DOI twin", ""),
	})
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, 3, added[0].Index)
	assert.Equal(t, "Fresh", added[0].Title)
	assert.Equal(t, 4, added[1].Index)

	list, err := s.ListSources(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 4)
	for i, src := range list {
		assert.Equal(t, i+1, src.Index)
	}

	first := list[0]
	assert.Equal(t, "10.1/A", first.DOI)
	assert.Equal(t, 2020, first.Year())
	assert.Equal(t, 12, first.Citations())
	assert.Nil(t, first.ReferenceCount)
	assert.Equal(t, []types.Author{{Name: "Ada Lovelace"}}, first.Authors)
	assert.Equal(t, types.SourceOpenAlex, first.SourceAPI)
	assert.Equal(t, "deep learning", first.Topic)
}

func TestAddSourcesIsolatedPerProject(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	a := testProject(t, s)
	b, err := s.CreateProject(ctx, "other")
	require.NoError(t, err)

	_, err = s.AddSources(ctx, a.ID, []types.Source{paper("One", "10.1/x")})
	require.NoError(t, err)
	added, err := s.AddSources(ctx, b.ID, []types.Source{paper("One", "10.1/x")})
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, 1, added[0].Index)
}

func TestSourceLookup(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := testProject(t, s)
	added, err := s.AddSources(ctx, p.ID, []types.Source{paper("One", ""), paper("Two", "")})
	require.NoError(t, err)

	got, err := s.SourceByIndex(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "Two", got.Title)

	_, err = s.SourceByIndex(ctx, p.ID, 9)
	assert.ErrorIs(t, err, ErrNotFound)

	found, missing, err := s.SourcesByIndex(ctx, p.ID, []int{1, 5, 2})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, []int{5}, missing)

	byID, err := s.GetSource(ctx, added[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "One", byID.Title)
	_, err = s.GetSource(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateIngestion(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := testProject(t, s)
	added, err := s.AddSources(ctx, p.ID, []types.Source{paper("One", ""), paper("Two", "")})
	require.NoError(t, err)
	id := added[0].ID

	require.NoError(t, s.UpdateIngestion(ctx, id, types.IngestionFailed, "HTTP 404", ""))
	got, err := s.GetSource(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.IngestionFailed, got.IngestionStatus)
	assert.Equal(t, "HTTP 404", got.IngestionError)

	require.NoError(t, s.UpdateIngestion(ctx, id, types.IngestionReady, "", "doc-1"))
	got, err = s.GetSource(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "", got.IngestionError)
	assert.Equal(t, "doc-1", got.RAGDocID)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	pending, err := s.SourcesByStatus(ctx, p.ID, types.IngestionPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Two", pending[0].Title)

	assert.ErrorIs(t, s.UpdateIngestion(ctx, "missing", types.IngestionReady, "", ""), ErrNotFound)
}

func TestSetSourceDOI(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := testProject(t, s)
	added, err := s.AddSources(ctx, p.ID, []types.Source{paper("One", ""), paper("Two", "10.9/keep")})
	require.NoError(t, err)

	require.NoError(t, s.SetSourceDOI(ctx, added[0].ID, "10.5/found"))
	require.NoError(t, s.SetSourceDOI(ctx, added[1].ID, "10.5/other"))

	list, err := s.ListSources(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.5/found", list[0].DOI)
	assert.Equal(t, "10.9/keep", list[1].DOI, "existing DOI is not overwritten")
}

func TestSearchLibrary(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := testProject(t, s)
	other, err := s.CreateProject(ctx, "other")
	require.NoError(t, err)

	_, err = s.AddSources(ctx, p.ID, []types.Source{
		paper("Attention is all you need", ""),
		paper("Deep residual learning", ""),
	})
	require.NoError(t, err)
	_, err = s.AddSources(ctx, other.ID, []types.Source{paper("Attention elsewhere", "")})
	require.NoError(t, err)

	got, err := s.SearchLibrary(ctx, p.ID, "attention", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Attention is all you need", got[0].Title)

	got, err = s.SearchLibrary(ctx, p.ID, "residual", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = s.SearchLibrary(ctx, p.ID, `quoted "attention`, 10)
	require.NoError(t, err, "user quotes must not break the query")
	assert.Empty(t, got)

	got, err = s.SearchLibrary(ctx, p.ID, "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFTSQuery(t *testing.T) {
	assert.Equal(t, `"graph" "neural"`, ftsQuery([]string{"graph", "neural"}))
	assert.Equal(t, `"a""b"`, ftsQuery([]string{`a"b`}))
}

// --- chat ---

func TestChatHistory(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := testProject(t, s)

	for i := 1; i <= 4; i++ {
		_, err := s.AppendMessage(ctx, p.ID, types.ChatMessage{
			Role:     types.RoleUser,
			Content:  fmt.Sprintf("message %d", i),
			Metadata: map[string]any{"n": i},
		})
		require.NoError(t, err)
	}

	all, err := s.History(ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "message 1", all[0].Content)
	assert.EqualValues(t, 1, all[0].Metadata["n"])

	last, err := s.History(ctx, p.ID, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "message 3", last[0].Content)
	assert.Equal(t, "message 4", last[1].Content)
}

func TestDecodeMap(t *testing.T) {
	assert.Equal(t, map[string]any{}, decodeMap("not json"))
	assert.Equal(t, map[string]any{}, decodeMap("null"))
	assert.Equal(t, map[string]any{"a": "b"}, decodeMap(`{"a":"b"}`))
}

// --- outline ---

func TestOutline(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := testProject(t, s)
	srcs, err := s.AddSources(ctx, p.ID, []types.Source{paper("One", ""), paper("Two", "")})
	require.NoError(t, err)

	intro, err := s.CreateSection(ctx, p.ID, "Introduction", types.SectionIntroduction)
	require.NoError(t, err)
	methods, err := s.CreateSection(ctx, p.ID, "Methods", types.SectionHeading)
	require.NoError(t, err)
	assert.Equal(t, 1, intro.OrderIndex)
	assert.Equal(t, 2, methods.OrderIndex)

	_, err = s.CreateSection(ctx, p.ID, "", types.SectionHeading)
	assert.Error(t, err)

	supported, err := s.CreateClaim(ctx, intro.ID, "Overview", []string{srcs[0].ID})
	require.NoError(t, err)
	bare, err := s.CreateClaim(ctx, methods.ID, "We measure things", nil)
	require.NoError(t, err)
	assert.True(t, bare.NeedsSources())
	assert.Equal(t, types.ClaimDraft, bare.Status)

	outline, err := s.ListOutline(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, outline, 2)
	assert.Equal(t, "Introduction", outline[0].Title)
	require.Len(t, outline[0].Claims, 1)
	assert.Equal(t, supported.ID, outline[0].Claims[0].ID)
	assert.Equal(t, []string{srcs[0].ID}, outline[0].Claims[0].SupportingSources)

	gaps, err := s.UnsupportedClaims(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.Equal(t, "Methods", gaps[0].SectionTitle)
	assert.Equal(t, bare.ID, gaps[0].ID)

	merged, err := s.LinkClaimSources(ctx, bare.ID, []string{srcs[1].ID, srcs[0].ID, srcs[1].ID})
	require.NoError(t, err)
	assert.Equal(t, []string{srcs[1].ID, srcs[0].ID}, merged)
	merged, err = s.LinkClaimSources(ctx, bare.ID, []string{srcs[0].ID})
	require.NoError(t, err)
	assert.Len(t, merged, 2)

	gaps, err = s.UnsupportedClaims(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, gaps)

	_, err = s.LinkClaimSources(ctx, "missing", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSectionByRefAndRename(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := testProject(t, s)
	_, err := s.CreateSection(ctx, p.ID, "Introduction", types.SectionIntroduction)
	require.NoError(t, err)
	methods, err := s.CreateSection(ctx, p.ID, "Methods", types.SectionHeading)
	require.NoError(t, err)

	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{ref: "2", want: "Methods"},
		{ref: "introduction", want: "Introduction"},
		{ref: "METH", want: "Methods"},
		{ref: "3", wantErr: true},
		{ref: "results", wantErr: true},
		{ref: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := s.SectionByRef(ctx, p.ID, tt.ref)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrNotFound), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Title)
		})
	}

	require.NoError(t, s.RenameSection(ctx, methods.ID, "Experimental setup"))
	got, err := s.SectionByRef(ctx, p.ID, "2")
	require.NoError(t, err)
	assert.Equal(t, "Experimental setup", got.Title)

	assert.Error(t, s.RenameSection(ctx, methods.ID, " "))
	assert.ErrorIs(t, s.RenameSection(ctx, "missing", "X"), ErrNotFound)
}

func TestListOutlineEmpty(t *testing.T) {
	s := testStore(t)
	p := testProject(t, s)
	outline, err := s.ListOutline(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Empty(t, outline)
}
