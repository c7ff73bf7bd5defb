package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one message in a conversation. Turns are
// append-only during a session and only used as rewrite/generation
// context.
type ConversationTurn struct {
	Role         string   `bson:"role" json:"role"`
	Content      string   `bson:"content" json:"content"`
	CitedSources []string `bson:"cited_sources,omitempty" json:"cited_sources,omitempty"`
}

// Message is a persisted exchange (question + reply) within a
// conversation.
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID `bson:"user_id" json:"user_id"`
	ConversationID string             `bson:"conversation_id" json:"conversation_id"`
	Question       string             `bson:"question" json:"question"`
	Answer         string             `bson:"answer" json:"answer"`
	Sources        []string           `bson:"sources,omitempty" json:"sources,omitempty"`
	Timestamp      time.Time          `bson:"timestamp" json:"timestamp"`
}

// ChatRequest is the body of POST /chat/query.
type ChatRequest struct {
	Question       string `json:"question" binding:"required,min=1,max=2000"`
	ConversationID string `json:"conversation_id,omitempty"`
	Collection     string `json:"collection,omitempty"`
}

// ChatResponse is returned for every answered query.
type ChatResponse struct {
	Answer          string    `json:"answer"`
	Sources         []string  `json:"sources"`
	RetrievedChunks int       `json:"retrieved_chunks"`
	ConversationID  string    `json:"conversation_id"`
	LatencyMS       int64     `json:"latency_ms"`
	Timestamp       time.Time `json:"timestamp"`
}

// Answer is the generator's output: the generated text plus the distinct
// source documents it was grounded on.
type Answer struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources"`
}

// RAGResponse is the pipeline service's result for one query.
type RAGResponse struct {
	Answer          string        `json:"answer"`
	Sources         []string      `json:"sources"`
	RetrievedChunks int           `json:"retrieved_chunks"`
	ProcessingTime  time.Duration `json:"-"`
}
