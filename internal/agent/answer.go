// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/rag"
	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

const maxAuthors = 3

func (a *Agent) handleSummarize(ctx context.Context, t *turn) (string, error) {
	if refs := t.intent.PaperRefs; len(refs) > 0 {
		papers, missing, err := a.papersByRef(ctx, t.projectID, refs)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		for i, p := range papers {
			if i > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(paperDetails(p))
		}
		if len(missing) > 0 {
			fmt.Fprintf(&b, "\n\nI couldn't find %s in your library.", paperList(missing))
		}
		return b.String(), nil
	}

	if a.knowledgeReady() {
		res, err := a.rag.Query(ctx, t.intent.RawMessage)
		if err == nil {
			t.resp.Metadata["rag_sources"] = docNames(res.Sources)
			return res.Response, nil
		}
		a.logger.Warn("RAG summary failed, falling back to library overview", zap.Error(err))
	}
	return a.libraryOverview(ctx, t)
}

// libraryOverview counts the library by topic and ingestion state.
func (a *Agent) libraryOverview(ctx context.Context, t *turn) (string, error) {
	papers, err := a.store.ListSources(ctx, t.projectID)
	if err != nil {
		return "", err
	}
	if len(papers) == 0 {
		return "", notice(`Your library is empty. Search for papers first, for example "search for transformer architectures".`)
	}

	byTopic := map[string]int{}
	ready := 0
	for _, p := range papers {
		byTopic[p.Topic]++
		if p.IngestionStatus == types.IngestionReady {
			ready++
		}
	}
	topics := make([]string, 0, len(byTopic))
	for topic := range byTopic {
		topics = append(topics, topic)
	}
	sort.Slice(topics, func(i, j int) bool {
		if byTopic[topics[i]] != byTopic[topics[j]] {
			return byTopic[topics[i]] > byTopic[topics[j]]
		}
		return topics[i] < topics[j]
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Your library has %d papers", len(papers))
	if t.session != nil {
		fmt.Fprintf(&b, " on %q", t.session.Topic)
	}
	fmt.Fprintf(&b, ". %d are ingested for questions.\n", ready)
	for _, topic := range topics {
		name := topic
		if name == "" {
			name = "untagged"
		}
		fmt.Fprintf(&b, "\n- %s: %d papers", name, byTopic[topic])
	}
	b.WriteString("\n\nRecent additions:")
	recent := papers[max(0, len(papers)-maxSummaries):]
	for _, line := range summaries(recent) {
		b.WriteString("\n" + line)
	}
	return b.String(), nil
}

func paperDetails(p types.Source) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d **%s**", p.Index, p.Title)
	if names := p.AuthorNames(); len(names) > 0 {
		if len(names) > maxAuthors {
			names = append(names[:maxAuthors:maxAuthors], "et al.")
		}
		b.WriteString("\n" + strings.Join(names, ", "))
	}
	var facts []string
	if y := p.Year(); y > 0 {
		facts = append(facts, fmt.Sprintf("%d", y))
	}
	if p.Venue != "" {
		facts = append(facts, p.Venue)
	}
	if p.CitationCount != nil {
		facts = append(facts, fmt.Sprintf("%d citations", *p.CitationCount))
	}
	if p.DOI != "" {
		facts = append(facts, "doi:"+p.DOI)
	}
	if len(facts) > 0 {
		b.WriteString("\n" + strings.Join(facts, " · "))
	}
	if p.Abstract != "" {
		b.WriteString("\n\n" + summarize(p.Abstract))
	} else {
		b.WriteString("\n\nNo abstract available.")
	}
	fmt.Fprintf(&b, "\n\nIngestion: %s", p.IngestionStatus)
	return b.String()
}

func (a *Agent) handleAskQuestion(ctx context.Context, t *turn) (string, error) {
	question := strings.TrimSpace(t.intent.RawMessage)
	if !a.knowledgeReady() {
		return "", notice("I can't answer questions from your papers yet because the knowledge base is not configured. " +
			"You can still search for papers, summarize them and build an outline.")
	}

	res, err := a.rag.Query(ctx, question)
	if err != nil {
		a.logger.Warn("RAG query failed", zap.Error(err))
		return "", notice("I couldn't reach the knowledge base to answer that. Try again in a moment.")
	}
	names := docNames(res.Sources)
	t.resp.Metadata["rag_sources"] = names

	msg := res.Response
	if len(names) > 0 {
		msg += "\n\nSources: " + strings.Join(names, ", ")
	}
	return msg, nil
}

func (a *Agent) knowledgeReady() bool {
	return a.rag != nil && a.rag.Configured()
}

func docNames(refs []rag.ChunkReference) []string {
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, r.DocName)
	}
	return names
}
