package event

import "context"

// DispatchResult summarizes what one envelope did. Counters only apply to
// MESSAGES_UPSERT batches.
type DispatchResult struct {
	Event     string `json:"event"`
	Instance  string `json:"instance"`
	Handled   bool   `json:"handled"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Reason    string `json:"reason,omitempty"`
}

type IDispatcherUsecase interface {
	Dispatch(ctx context.Context, env Envelope) DispatchResult
}
