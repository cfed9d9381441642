// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Project scopes a paper library, its research sessions and its outline.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStatus is the phase of a research session.
type SessionStatus string

const (
	SessionExploring SessionStatus = "exploring"
	SessionDrafting  SessionStatus = "drafting"
	SessionComplete  SessionStatus = "complete"
)

// ResearchSession tracks the topic a project is currently researching.
type ResearchSession struct {
	ID        string        `json:"id"`
	ProjectID string        `json:"project_id"`
	Topic     string        `json:"topic"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// IngestionStatus tracks a library paper through PDF ingestion.
type IngestionStatus string

const (
	IngestionPending     IngestionStatus = "pending"
	IngestionDownloading IngestionStatus = "downloading"
	IngestionParsing     IngestionStatus = "parsing"
	IngestionIngesting   IngestionStatus = "ingesting"
	IngestionReady       IngestionStatus = "ready"
	IngestionFailed      IngestionStatus = "failed"
)

// Source is a paper saved to a project library.
type Source struct {
	PaperRecord `yaml:",inline"`

	// ID is the library row identifier (UUID).
	ID string `json:"id" yaml:"id"`

	// ProjectID is the owning project.
	ProjectID string `json:"project_id" yaml:"project_id"`

	// Index is the 1-based display index users refer to as "paper #N".
	Index int `json:"index" yaml:"index"`

	// IngestionStatus is the RAG ingestion state.
	IngestionStatus IngestionStatus `json:"ingestion_status" yaml:"ingestion_status"`

	// IngestionError holds the last ingestion failure message.
	IngestionError string `json:"ingestion_error,omitempty" yaml:"ingestion_error,omitempty"`

	// RAGDocID is the document identifier assigned by the RAG store.
	RAGDocID string `json:"rag_doc_id,omitempty" yaml:"rag_doc_id,omitempty"`

	// RelevanceScore is the topic relevance computed when the paper was added.
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`

	// Topic is the research topic the paper was found under.
	Topic string `json:"topic,omitempty" yaml:"topic,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// SectionType classifies outline sections.
type SectionType string

const (
	SectionIntroduction SectionType = "introduction"
	SectionHeading      SectionType = "heading"
	SectionConclusion   SectionType = "conclusion"
)

// OutlineSection is one section of a project outline.
type OutlineSection struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"project_id"`
	Title       string         `json:"title"`
	SectionType SectionType    `json:"section_type"`
	OrderIndex  int            `json:"order_index"`
	Claims      []OutlineClaim `json:"claims"`
}

// ClaimStatus is the review state of a claim.
type ClaimStatus string

const (
	ClaimDraft    ClaimStatus = "draft"
	ClaimAccepted ClaimStatus = "accepted"
	ClaimRejected ClaimStatus = "rejected"
)

// OutlineClaim is a statement in a section, backed by library sources.
type OutlineClaim struct {
	ID         string      `json:"id"`
	SectionID  string      `json:"section_id"`
	ClaimText  string      `json:"claim_text"`
	OrderIndex int         `json:"order_index"`
	Status     ClaimStatus `json:"status"`

	// SupportingSources holds library Source IDs.
	SupportingSources []string `json:"supporting_sources"`
}

// NeedsSources reports whether no source backs the claim.
func (c OutlineClaim) NeedsSources() bool {
	return len(c.SupportingSources) == 0
}

// ExplorationLog records one research action for the session history.
type ExplorationLog struct {
	ID           string         `json:"id"`
	SessionID    string         `json:"session_id"`
	ActionType   IntentType     `json:"action_type"`
	Trigger      string         `json:"trigger"`
	Description  string         `json:"description"`
	Details      map[string]any `json:"details"`
	SourcesAdded int            `json:"sources_added"`
	CreatedAt    time.Time      `json:"created_at"`
}
