// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// IntentType is the action a chat message asks for. The set is closed;
// chat responses report it back as action_taken.
type IntentType string

const (
	IntentSearch          IntentType = "search"
	IntentDeepen          IntentType = "deepen"
	IntentSummarize       IntentType = "summarize"
	IntentGenerateOutline IntentType = "generate_outline"
	IntentAddSection      IntentType = "add_section"
	IntentEditSection     IntentType = "edit_section"
	IntentLinkSource      IntentType = "link_source"
	IntentFindGaps        IntentType = "find_gaps"
	IntentAskQuestion     IntentType = "ask_question"
	IntentUnknown         IntentType = "unknown"
)

// Intent is the structured reading of one chat message. It is created per
// turn and consumed by the agent.
type Intent struct {
	// Type is the detected action.
	Type IntentType `json:"type" yaml:"type"`

	// Query is the message with command prefixes and paper references
	// removed, nil when nothing meaningful remains.
	Query *string `json:"query,omitempty" yaml:"query,omitempty"`

	// PaperRefs are the 1-based paper display indices the message mentions,
	// sorted and without repeats.
	PaperRefs []int `json:"paper_refs" yaml:"paper_refs"`

	// SectionRef is a section number or lower-case section name. Only set
	// for link_source, add_section and edit_section.
	SectionRef *string `json:"section_ref,omitempty" yaml:"section_ref,omitempty"`

	// RawMessage is the message exactly as received.
	RawMessage string `json:"raw_message" yaml:"raw_message"`

	// Confidence is in [0, 1].
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// QueryText returns the extracted query or "".
func (i Intent) QueryText() string {
	if i.Query == nil {
		return ""
	}
	return *i.Query
}

// SectionText returns the section reference or "".
func (i Intent) SectionText() string {
	if i.SectionRef == nil {
		return ""
	}
	return *i.SectionRef
}
