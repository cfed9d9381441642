// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package intent turns a free-text chat message into a structured
// types.Intent with heuristics only: keyword scoring for the action, regular
// expressions for paper and section references. Parsing is pure and never
// fails.
package intent

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

const (
	// keywordWeight is added per word of every matched keyword, so longer
	// phrases count for more.
	keywordWeight = 0.3

	// deepenRefBoost is added to deepen when the message cites papers and
	// already scores for deepen.
	deepenRefBoost = 0.5

	// unknownConfidence is reported when no intent reaches keywordWeight.
	unknownConfidence = 0.3

	maxConfidence = 0.95

	// minQueryLength is the shortest extracted query kept.
	minQueryLength = 3
)

// paperRefPatterns match paper references in a lower-cased message:
// "papers 1, 2 and 3", "paper #5", "#5", "papers 5 and 7", "[1, 2]".
var paperRefPatterns = []*regexp.Regexp{
	regexp.MustCompile(`papers?\s*#?\s*(\d+(?:\s*,\s*\d+)*(?:\s*(?:and|&)\s*\d+)?)`),
	regexp.MustCompile(`#(\d+)`),
	regexp.MustCompile(`papers?\s+(\d+)\s+(?:and|&)\s+(\d+)`),
	regexp.MustCompile(`\[(\d+(?:\s*,\s*\d+)*)\]`),
}

// refStripPatterns are paperRefPatterns matched case-insensitively against
// the original message.
var refStripPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(paperRefPatterns))
	for i, re := range paperRefPatterns {
		out[i] = regexp.MustCompile(`(?i)` + re.String())
	}
	return out
}()

var digits = regexp.MustCompile(`\d+`)

// commandPrefixes are removed from the start of the message, in order.
var commandPrefixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(please\s+)?`),
	regexp.MustCompile(`(?i)^can\s+you\s+`),
	regexp.MustCompile(`(?i)^could\s+you\s+`),
	regexp.MustCompile(`(?i)^search\s+for\s+`),
	regexp.MustCompile(`(?i)^find\s+`),
	regexp.MustCompile(`(?i)^look\s+for\s+`),
	regexp.MustCompile(`(?i)^get\s+papers?\s+(?:on|about)\s+`),
}

var sectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`section\s+(\d+|[a-zA-Z]+(?:\s+[a-zA-Z]+)*)`),
	regexp.MustCompile(`the\s+(introduction|conclusion|methods?|results?|discussion|abstract)`),
}

// keywordEntry lists the phrases that vote for one intent.
type keywordEntry struct {
	Intent   types.IntentType
	Keywords []string
}

// keywordTable is scanned in order; on equal scores the earlier intent wins.
var keywordTable = []keywordEntry{
	{types.IntentSearch, []string{
		"search", "find", "look for", "look up", "get papers", "fetch",
		"papers on", "papers about", "research on", "articles about",
	}},
	{types.IntentDeepen, []string{
		"more like", "similar to", "related to", "go deeper", "expand on",
		"find more", "like this", "like these", "like paper", "like papers",
		"by this author", "by these authors", "same author", "same topic",
	}},
	{types.IntentSummarize, []string{
		"summarize", "summary", "what does", "what is", "tell me about",
		"explain", "describe", "overview of",
	}},
	{types.IntentGenerateOutline, []string{
		"generate outline", "generate an outline", "create outline", "create an outline",
		"make outline", "make an outline", "build outline", "build an outline",
		"outline from", "draft outline", "suggest outline", "start outline",
		"write outline", "write an outline", "outline based on", "create the outline",
	}},
	{types.IntentAddSection, []string{
		"add section", "new section", "add a section", "include section",
		"add topic", "add chapter",
	}},
	{types.IntentEditSection, []string{
		"edit section", "modify section", "change section", "update section",
		"rename section", "revise section",
	}},
	{types.IntentLinkSource, []string{
		"link paper", "link source", "add paper to", "cite paper",
		"use paper", "connect paper", "support claim", "add citation",
	}},
	{types.IntentFindGaps, []string{
		"gaps", "missing sources", "need more", "needs sources",
		"unsupported claims", "weak claims", "which claims",
	}},
	{types.IntentAskQuestion, []string{
		"what", "how", "why", "when", "where", "who", "which",
		"can you", "could you", "would you", "is there", "are there",
	}},
}

// Parse reads one chat message. An empty or blank message yields the
// unknown intent with zero confidence.
func Parse(message string) types.Intent {
	if strings.TrimSpace(message) == "" {
		return types.Intent{
			Type:       types.IntentUnknown,
			PaperRefs:  []int{},
			RawMessage: message,
			Confidence: 0,
		}
	}

	refs := PaperRefs(message)
	kind, confidence := Classify(message, refs)

	in := types.Intent{
		Type:       kind,
		PaperRefs:  refs,
		RawMessage: message,
		Confidence: confidence,
	}
	if q := ExtractQuery(message); q != "" {
		in.Query = &q
	}
	switch kind {
	case types.IntentLinkSource, types.IntentAddSection, types.IntentEditSection:
		if ref := SectionRef(message); ref != "" {
			in.SectionRef = &ref
		}
	}
	return in
}

// PaperRefs returns every paper number the message mentions, ascending and
// without repeats. It never returns nil.
func PaperRefs(message string) []int {
	lower := strings.ToLower(message)
	seen := make(map[int]bool)
	refs := []int{}
	for _, re := range paperRefPatterns {
		for _, m := range re.FindAllStringSubmatch(lower, -1) {
			for _, group := range m[1:] {
				for _, d := range digits.FindAllString(group, -1) {
					n, err := strconv.Atoi(d)
					if err != nil || seen[n] {
						continue
					}
					seen[n] = true
					refs = append(refs, n)
				}
			}
		}
	}
	sort.Ints(refs)
	return refs
}

// Scores returns the keyword score of every intent in the table.
func Scores(message string, refs []int) map[types.IntentType]float64 {
	lower := strings.ToLower(message)
	scores := make(map[types.IntentType]float64, len(keywordTable))
	for _, entry := range keywordTable {
		score := 0.0
		for _, kw := range entry.Keywords {
			if strings.Contains(lower, kw) {
				score += float64(len(strings.Fields(kw))) * keywordWeight
			}
		}
		scores[entry.Intent] = score
	}
	if len(refs) > 0 && scores[types.IntentDeepen] > 0 {
		scores[types.IntentDeepen] += deepenRefBoost
	}
	return scores
}

// Classify picks the highest scoring intent and its confidence. Messages
// scoring below one keyword word are unknown.
func Classify(message string, refs []int) (types.IntentType, float64) {
	scores := Scores(message, refs)

	best, bestScore := types.IntentUnknown, 0.0
	for _, entry := range keywordTable {
		if s := scores[entry.Intent]; s > bestScore {
			best, bestScore = entry.Intent, s
		}
	}
	if bestScore < keywordWeight {
		return types.IntentUnknown, unknownConfidence
	}
	return best, min(maxConfidence, 0.5+bestScore*0.3)
}

// ExtractQuery removes paper references and leading command phrases and
// collapses whitespace. It returns "" when fewer than three characters
// remain.
func ExtractQuery(message string) string {
	q := strings.TrimSpace(message)
	for _, re := range refStripPatterns {
		q = re.ReplaceAllString(q, "")
	}
	for _, re := range commandPrefixes {
		q = re.ReplaceAllString(q, "")
	}
	q = strings.Join(strings.Fields(q), " ")
	if len([]rune(q)) < minQueryLength {
		return ""
	}
	return q
}

// SectionRef returns the lower-cased section number or name the message
// points at, or "".
func SectionRef(message string) string {
	lower := strings.ToLower(message)
	for _, re := range sectionPatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			return m[1]
		}
	}
	return ""
}

// Describe renders an intent on one line for logs and the parse command.
func Describe(in types.Intent) string {
	parts := []string{"Intent: " + string(in.Type)}
	if q := in.QueryText(); q != "" {
		parts = append(parts, fmt.Sprintf("Query: '%s'", q))
	}
	if len(in.PaperRefs) > 0 {
		parts = append(parts, fmt.Sprintf("Papers: %v", in.PaperRefs))
	}
	if s := in.SectionText(); s != "" {
		parts = append(parts, "Section: "+s)
	}
	parts = append(parts, fmt.Sprintf("Confidence: %.0f%%", in.Confidence*100))
	return strings.Join(parts, " | ")
}
