package domain

import "context"

// ReplyRequest is what a reply generator gets to see about one inbound message.
type ReplyRequest struct {
	Instance string
	LeadID   string
	Phone    string
	PushName string
	ChatID   string
	Text     string
	History  []Message
}

type Reply struct {
	Text string
	// Source names who produced the text, e.g. "ai:gemini" or "rules".
	Source string
}

// Replier produces an optional automatic answer. ok is false when there is
// nothing to say.
type Replier interface {
	Reply(ctx context.Context, req ReplyRequest) (reply Reply, ok bool, err error)
}
