package domain

import (
	"context"
	"time"
)

// InboundMessage is one record of a MESSAGES_UPSERT batch.
type InboundMessage struct {
	SenderChannelID   string    `json:"sender_channel_id"`
	ChatID            string    `json:"chat_id"`
	ProviderMessageID string    `json:"provider_message_id"`
	Text              string    `json:"text"`
	FromMe            bool      `json:"from_me"`
	PushName          string    `json:"push_name,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

type IngestOutcome string

const (
	OutcomeStored    IngestOutcome = "stored"
	OutcomeDuplicate IngestOutcome = "duplicate"
	OutcomeDiscarded IngestOutcome = "discarded"
)

type IngestResult struct {
	Outcome      IngestOutcome `json:"outcome"`
	LeadID       string        `json:"lead_id,omitempty"`
	Conversation string        `json:"conversation_id,omitempty"`
	MessageID    string        `json:"message_id,omitempty"`
	Replied      bool          `json:"replied"`
	LeadCreated  bool          `json:"lead_created"`
}

type IIngestUsecase interface {
	Ingest(ctx context.Context, instanceName string, msg InboundMessage) (IngestResult, error)
}
