// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

func TestPaperRefs(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want []int
	}{
		{"hash", "Look at paper #5", []int{5}},
		{"comma list", "papers 1, 2, 3 are interesting", []int{1, 2, 3}},
		{"and", "papers 3 and 7 look related", []int{3, 7}},
		{"ampersand", "papers 3 & 8", []int{3, 8}},
		{"brackets", "See references [1, 2, 3]", []int{1, 2, 3}},
		{"mixed", "paper #5 and papers 3, 7 are good", []int{3, 5, 7}},
		{"repeats collapse", "paper 2, paper 2 and #2", []int{2}},
		{"single", "paper 1", []int{1}},
		{"case insensitive", "PAPER 4", []int{4}},
		{"none", "search for quantum computing", []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PaperRefs(tt.msg))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		msg  string
		refs []int
		want types.IntentType
	}{
		{"search for quantum cryptography", nil, types.IntentSearch},
		{"find papers on machine learning", nil, types.IntentSearch},
		{"find more like these papers", []int{1, 2}, types.IntentDeepen},
		{"summarize paper 3", []int{3}, types.IntentSummarize},
		{"create an outline from what we found", nil, types.IntentGenerateOutline},
		{"add a section on methodology", nil, types.IntentAddSection},
		{"rename section 2 to Background", nil, types.IntentEditSection},
		{"link paper 5 to section 2", []int{5}, types.IntentLinkSource},
		{"which claims need more sources?", nil, types.IntentFindGaps},
		{"why do transformers scale so well?", nil, types.IntentAskQuestion},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			got, confidence := Classify(tt.msg, tt.refs)
			assert.Equal(t, tt.want, got)
			assert.Greater(t, confidence, 0.5)
			assert.LessOrEqual(t, confidence, 0.95)
		})
	}
}

func TestClassifyTieKeepsFirstDeclared(t *testing.T) {
	// "find" inside "findings" ties search with summarize at one keyword.
	for _, msg := range []string{"summarize the key findings", "summarize the findings"} {
		t.Run(msg, func(t *testing.T) {
			scores := Scores(msg, nil)
			require.InDelta(t, scores[types.IntentSearch], scores[types.IntentSummarize], 1e-9)

			got, _ := Classify(msg, nil)
			assert.Equal(t, types.IntentSearch, got)
			assert.Equal(t, types.IntentSearch, Parse(msg).Type)
		})
	}
}

func TestClassifyUnknown(t *testing.T) {
	got, confidence := Classify("hello there", nil)
	assert.Equal(t, types.IntentUnknown, got)
	assert.Equal(t, 0.3, confidence)
}

func TestClassifyConfidenceCapped(t *testing.T) {
	msg := "find more like these papers, similar to and related to paper 1, go deeper and expand on the same topic"
	_, confidence := Classify(msg, []int{1})
	assert.Equal(t, 0.95, confidence)
}

func TestDeepenBoostNeedsRefsAndKeyword(t *testing.T) {
	withRefs := Scores("more like paper 2", []int{2})
	withoutRefs := Scores("more like paper 2", nil)
	assert.InDelta(t, withoutRefs[types.IntentDeepen]+0.5, withRefs[types.IntentDeepen], 1e-9)

	noKeyword := Scores("paper 2", []int{2})
	assert.Zero(t, noKeyword[types.IntentDeepen])
}

func TestSectionRef(t *testing.T) {
	tests := []struct{ msg, want string }{
		{"add to section 2", "2"},
		{"add to the introduction", "introduction"},
		{"put it in the Conclusion", "conclusion"},
		{"search for papers", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SectionRef(tt.msg), tt.msg)
	}
	assert.Contains(t, SectionRef("section on Methods"), "methods")
}

func TestExtractQuery(t *testing.T) {
	assert.Contains(t, ExtractQuery("search for quantum cryptography"), "quantum cryptography")
	assert.Contains(t, ExtractQuery("please find papers on machine learning"), "machine learning")
	assert.Equal(t, "about graph networks", ExtractQuery("Could you   about graph networks"))
	assert.Equal(t, "look interesting, find more like them", ExtractQuery("papers 3 and 7 look interesting, find more like them"))
	assert.Empty(t, ExtractQuery("ok"))
	assert.Empty(t, ExtractQuery("paper #5"))
}

func TestParseScenarios(t *testing.T) {
	t.Run("search", func(t *testing.T) {
		in := Parse("search for quantum cryptography")
		assert.Equal(t, types.IntentSearch, in.Type)
		assert.Contains(t, in.QueryText(), "quantum cryptography")
		assert.Empty(t, in.PaperRefs)
		assert.NotNil(t, in.PaperRefs)
		assert.Nil(t, in.SectionRef, "section refs are only read for section intents")
	})

	t.Run("deepen", func(t *testing.T) {
		in := Parse("papers 3 and 7 look interesting, find more like them")
		assert.Equal(t, types.IntentDeepen, in.Type)
		assert.Equal(t, []int{3, 7}, in.PaperRefs)
	})

	t.Run("link source", func(t *testing.T) {
		in := Parse("link paper #5 to section 2")
		assert.Equal(t, types.IntentLinkSource, in.Type)
		assert.Equal(t, []int{5}, in.PaperRefs)
		require.NotNil(t, in.SectionRef)
		assert.Equal(t, "2", *in.SectionRef)
	})

	t.Run("outline", func(t *testing.T) {
		assert.Equal(t, types.IntentGenerateOutline, Parse("generate an outline from what we've found").Type)
	})

	t.Run("empty", func(t *testing.T) {
		for _, msg := range []string{"", "   \n\t"} {
			in := Parse(msg)
			assert.Equal(t, types.IntentUnknown, in.Type)
			assert.Zero(t, in.Confidence)
			assert.Equal(t, msg, in.RawMessage)
		}
	})

	t.Run("hello", func(t *testing.T) {
		in := Parse("hello there")
		assert.Equal(t, types.IntentUnknown, in.Type)
		assert.Less(t, in.Confidence, 0.5)
	})

	t.Run("raw message kept", func(t *testing.T) {
		msg := "  Search for Quantum Computing  "
		assert.Equal(t, msg, Parse(msg).RawMessage)
	})
}

func TestParseDeterministic(t *testing.T) {
	msg := "link papers 2 and 4 to the introduction"
	assert.Equal(t, Parse(msg), Parse(msg))
}

func TestDescribe(t *testing.T) {
	desc := Describe(Parse("search for quantum cryptography"))
	assert.Contains(t, desc, "Intent: search")
	assert.Contains(t, desc, "Query: 'quantum cryptography'")
	assert.Contains(t, desc, "Confidence: ")

	desc = Describe(Parse("papers 3, 5 are good"))
	assert.Contains(t, desc, "Papers: [3 5]")

	desc = Describe(Parse("link paper #5 to section 2"))
	assert.Contains(t, desc, "Section: 2")
}
