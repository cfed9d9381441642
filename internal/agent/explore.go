// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/search"
	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

const (
	summaryLength  = 200
	maxSummaries   = 5
	maxSubtopics   = 5
	maxDeepenQuery = 500
)

func (a *Agent) handleSearch(ctx context.Context, t *turn) (string, error) {
	query := t.intent.QueryText()
	if query == "" {
		return "", notice(`What should I search for? Try "search for graph neural networks".`)
	}
	if t.session == nil {
		rs, err := a.store.CreateSession(ctx, t.projectID, query)
		if err != nil {
			return "", err
		}
		t.session = &rs
		a.logger.Info("started research session", zap.String("project", t.projectID), zap.String("topic", query))
	}
	return a.explore(ctx, t, query)
}

func (a *Agent) handleDeepen(ctx context.Context, t *turn) (string, error) {
	if t.session == nil {
		return "", ErrNoSession
	}

	query := strings.TrimSpace(t.session.Topic + " " + t.intent.QueryText())
	if refs := t.intent.PaperRefs; len(refs) > 0 {
		papers, _, err := a.papersByRef(ctx, t.projectID, refs)
		if err != nil {
			return "", err
		}
		titles := make([]string, len(papers))
		for i, p := range papers {
			titles[i] = p.Title
		}
		query = truncateRunes(strings.Join(titles, " "), maxDeepenQuery)
	}
	return a.explore(ctx, t, query)
}

// explore searches for topic, keeps the relevant papers and adds the best
// of them to the library.
func (a *Agent) explore(ctx context.Context, t *turn, topic string) (string, error) {
	req := types.NewSearchRequest(topic)
	req.LimitPerSource = min(a.cfg.MaxPapers*2, 100)

	res, err := a.searcher.Search(ctx, req)
	if errors.Is(err, search.ErrInvalidRequest) {
		return "", notice("I can't run that search: %v", err)
	}
	if err != nil {
		return "", err
	}

	relevant := RankByRelevance(res.Results, topic, a.cfg.RelevanceThreshold)
	top := relevant[:min(len(relevant), a.cfg.MaxPapers)]

	candidates := make([]types.Source, len(top))
	records := make([]types.PaperRecord, len(top))
	for i, sp := range top {
		candidates[i] = types.Source{PaperRecord: sp.Paper, RelevanceScore: sp.Score, Topic: t.session.Topic}
		records[i] = sp.Paper
	}
	added, err := a.store.AddSources(ctx, t.projectID, candidates)
	if err != nil {
		return "", err
	}
	subtopics := Subtopics(records, topic, maxSubtopics)

	var queued int
	if t.autoIngest && a.ingest != nil {
		var withPDF []types.Source
		for _, s := range added {
			if s.PDFURL != "" {
				withPDF = append(withPDF, s)
			}
		}
		a.ingest.Queue(ctx, withPDF)
		queued = len(withPDF)
	}

	for _, s := range added {
		t.resp.PapersAdded = append(t.resp.PapersAdded, s.Index)
	}
	md := t.resp.Metadata
	md["papers_found"] = len(res.Results)
	md["papers_relevant"] = len(relevant)
	md["duplicates_removed"] = res.DuplicatesRemoved
	md["subtopics"] = subtopics
	md["ingestion_queued"] = queued
	if len(res.Errors) > 0 {
		md["source_errors"] = res.Errors
	}

	if _, err := a.store.LogExploration(ctx, types.ExplorationLog{
		SessionID:   t.session.ID,
		ActionType:  t.intent.Type,
		Trigger:     "user_request",
		Description: "Explored topic: " + topic,
		Details: map[string]any{
			"query":           topic,
			"papers_found":    len(res.Results),
			"papers_relevant": len(relevant),
			"subtopics":       subtopics,
		},
		SourcesAdded: len(added),
	}); err != nil {
		return "", err
	}

	return exploreMessage(topic, res, len(relevant), added, subtopics, queued), nil
}

func exploreMessage(topic string, res types.AggregateResult, relevant int, added []types.Source, subtopics []string, queued int) string {
	var b strings.Builder
	switch {
	case len(res.Results) == 0:
		fmt.Fprintf(&b, "I searched for %q but no source returned any papers.", topic)
	case relevant == 0:
		fmt.Fprintf(&b, "I found %d papers for %q, but none looked relevant enough to add. Try a more specific query.", len(res.Results), topic)
	case len(added) == 0:
		fmt.Fprintf(&b, "I found %d papers for %q. The %d most relevant are already in your library.", len(res.Results), topic, relevant)
	default:
		fmt.Fprintf(&b, "I found %d papers for %q and added %d to your library:\n", len(res.Results), topic, len(added))
		for _, line := range summaries(added) {
			b.WriteString("\n" + line)
		}
		if extra := len(added) - maxSummaries; extra > 0 {
			fmt.Fprintf(&b, "\n...and %d more.", extra)
		}
	}

	if queued > 0 {
		fmt.Fprintf(&b, "\n\nQueued %d papers with PDFs for ingestion.", queued)
	}
	if len(subtopics) > 0 {
		fmt.Fprintf(&b, "\n\nSuggested subtopics to explore: %s.", strings.Join(subtopics, ", "))
	}
	if len(res.Errors) > 0 {
		failed := make([]string, 0, len(res.Errors))
		for src := range res.Errors {
			failed = append(failed, src)
		}
		sort.Strings(failed)
		fmt.Fprintf(&b, "\n\nSome sources could not be searched: %s.", strings.Join(failed, ", "))
	}
	return b.String()
}

// summaries describes up to five papers with their abstract openings.
func summaries(papers []types.Source) []string {
	var out []string
	for _, p := range papers {
		if len(out) == maxSummaries {
			break
		}
		line := fmt.Sprintf("#%d **%s**", p.Index, p.Title)
		if y := p.Year(); y > 0 {
			line += fmt.Sprintf(" (%d)", y)
		}
		if p.Abstract != "" {
			line += ": " + summarize(p.Abstract)
		}
		out = append(out, line)
	}
	return out
}

// summarize shortens an abstract to its first 200 characters.
func summarize(abstract string) string {
	abstract = strings.Join(strings.Fields(abstract), " ")
	if utf8.RuneCountInString(abstract) <= summaryLength {
		return abstract
	}
	return truncateRunes(abstract, summaryLength) + "..."
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// ScoredPaper is a search result with its topic relevance.
type ScoredPaper struct {
	Paper types.PaperRecord
	Score float64
}

// RankByRelevance scores papers by the share of topic words found in
// their title and abstract, plus 0.2 for more than 100 citations or 0.1
// for more than 20, capped at 1. Papers scoring above threshold are
// returned best first; equal scores keep search order.
func RankByRelevance(papers []types.PaperRecord, topic string, threshold float64) []ScoredPaper {
	words := uniqueWords(topic)

	out := make([]ScoredPaper, 0, len(papers))
	for _, p := range papers {
		var score float64
		if len(words) > 0 {
			text := strings.ToLower(p.Title + " " + p.Abstract)
			matches := 0
			for _, w := range words {
				if strings.Contains(text, w) {
					matches++
				}
			}
			score = float64(matches) / float64(len(words))
		}
		switch c := p.Citations(); {
		case c > 100:
			score += 0.2
		case c > 20:
			score += 0.1
		}
		score = min(score, 1.0)
		if score > threshold {
			out = append(out, ScoredPaper{Paper: p, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Subtopics suggests follow-up search terms: title words longer than four
// letters that are not part of the topic, most frequent first, ties in
// order of first appearance.
func Subtopics(papers []types.PaperRecord, topic string, n int) []string {
	exclude := map[string]bool{}
	for _, w := range uniqueWords(topic) {
		exclude[w] = true
	}

	freq := map[string]int{}
	var order []string
	for _, p := range papers {
		for _, w := range strings.Fields(strings.ToLower(p.Title)) {
			w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
			if utf8.RuneCountInString(w) <= 4 || exclude[w] {
				continue
			}
			if freq[w] == 0 {
				order = append(order, w)
			}
			freq[w]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return freq[order[i]] > freq[order[j]] })
	if len(order) > n {
		order = order[:n]
	}
	return order
}

func uniqueWords(s string) []string {
	seen := map[string]bool{}
	var out []string
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}
