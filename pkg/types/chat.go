// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
	RoleSystem    ChatRole = "system"
)

// MaxChatMessageLength bounds ChatRequest.Message.
const MaxChatMessageLength = 5000

// ChatRequest is the body of a chat turn.
type ChatRequest struct {
	// Message is the user's free-text message.
	Message string `json:"message"`

	// AutoIngest queues PDF ingestion for papers added by this turn.
	// Nil falls back to the agent configuration.
	AutoIngest *bool `json:"auto_ingest,omitempty"`
}

// ChatResponse is the agent's answer to one chat turn.
type ChatResponse struct {
	// Message is the natural-language reply.
	Message string `json:"message"`

	// ActionTaken is the intent that was executed.
	ActionTaken IntentType `json:"action_taken"`

	// PapersAdded lists the display indices of papers added to the library.
	PapersAdded []int `json:"papers_added"`

	// PapersReferenced lists the display indices the message referred to.
	PapersReferenced []int `json:"papers_referenced"`

	// SectionsCreated counts new outline sections.
	SectionsCreated int `json:"sections_created"`

	// ClaimsCreated counts new outline claims.
	ClaimsCreated int `json:"claims_created"`

	// Metadata carries handler-specific details (intent, search stats).
	Metadata map[string]any `json:"metadata"`
}

// ChatMessage is a persisted chat turn.
type ChatMessage struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Role      ChatRole       `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}
