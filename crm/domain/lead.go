package domain

import (
	"context"
	"errors"
	"time"
)

type LeadStatus string

const (
	LeadStatusNew LeadStatus = "new"

	LeadSourceWhatsApp = "whatsapp"
)

type ConversationStatus string

const (
	ConversationActive ConversationStatus = "active"
	ConversationClosed ConversationStatus = "closed"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ErrDuplicate is returned by repository creates that hit a unique constraint.
var ErrDuplicate = errors.New("record already exists")

// ErrNotFound is returned by repository finds with no match.
var ErrNotFound = errors.New("record not found")

// Lead is a contact keyed by canonical phone number.
type Lead struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Phone           string     `json:"phone"`
	Status          LeadStatus `json:"status"`
	Source          string     `json:"source"`
	Score           int        `json:"score"`
	LastInteraction time.Time  `json:"last_interaction"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Conversation is the active thread between a lead and one chat.
type Conversation struct {
	ID            string             `json:"id"`
	LeadID        string             `json:"lead_id"`
	ChatID        string             `json:"chat_id"`
	InstanceName  string             `json:"instance_name"`
	Status        ConversationStatus `json:"status"`
	StartedAt     time.Time          `json:"started_at"`
	LastMessageAt time.Time          `json:"last_message_at"`
	MessageCount  int                `json:"message_count"`
}

type Message struct {
	ID                string    `json:"id"`
	ConversationID    string    `json:"conversation_id"`
	LeadID            string    `json:"lead_id"`
	ProviderMessageID string    `json:"provider_message_id"`
	Sender            Sender    `json:"sender"`
	Content           string    `json:"content"`
	IsAIGenerated     bool      `json:"is_ai_generated"`
	SentAt            time.Time `json:"sent_at"`
}

// Repository is the persistence collaborator. It only finds, creates and
// updates; find-or-create and dedupe are built on top of it by ingestion.
// Creates return ErrDuplicate when a unique key already exists; finds
// return ErrNotFound.
type Repository interface {
	FindLeadByPhone(ctx context.Context, phone string) (Lead, error)
	CreateLead(ctx context.Context, lead Lead) error
	TouchLead(ctx context.Context, leadID string, at time.Time) error

	FindActiveConversation(ctx context.Context, leadID, chatID string) (Conversation, error)
	CreateConversation(ctx context.Context, conv Conversation) error
	IncrementConversation(ctx context.Context, conversationID string, delta int, at time.Time) error

	FindMessage(ctx context.Context, conversationID, providerMessageID string) (Message, error)
	CreateMessage(ctx context.Context, msg Message) error
	// AppendMessage creates msg and bumps its conversation counter by one.
	// Either both writes land or neither does.
	AppendMessage(ctx context.Context, msg Message) error
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
}
