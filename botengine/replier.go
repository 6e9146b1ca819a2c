package botengine

import (
	"context"
	"errors"
	"time"

	"github.com/AzielCF/az-relay/botengine/domain"
	"github.com/AzielCF/az-relay/botengine/rules"
	crmDomain "github.com/AzielCF/az-relay/crm/domain"
	"github.com/sirupsen/logrus"
)

const defaultSystemPrompt = "You are a friendly sales assistant answering WhatsApp leads. " +
	"Reply briefly in the language the customer used."

type Options struct {
	SystemPrompt string
	Model        string
	MaxTokens    int64
	Timeout      time.Duration
	// MaxHistory caps how many stored messages are sent as context.
	MaxHistory int
}

// Replier asks the AI generator first and falls back to the keyword table
// when there is no generator, it fails, or it says nothing.
type Replier struct {
	generator domain.Generator
	table     *rules.Table
	opts      Options
}

func NewReplier(generator domain.Generator, table *rules.Table, opts Options) *Replier {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = defaultSystemPrompt
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = 20
	}
	return &Replier{generator: generator, table: table, opts: opts}
}

var _ crmDomain.Replier = (*Replier)(nil)

func (r *Replier) Reply(ctx context.Context, req crmDomain.ReplyRequest) (crmDomain.Reply, bool, error) {
	if r.generator != nil {
		text, err := r.generate(ctx, req)
		switch {
		case err == nil && text != "":
			return crmDomain.Reply{Text: text, Source: "ai:" + r.generator.Name()}, true, nil
		case err != nil && !errors.Is(err, domain.ErrEmptyResponse):
			logrus.Warnf("[REPLY] %s failed for lead %s, using rules: %v", r.generator.Name(), req.LeadID, err)
		}
	}

	if r.table == nil {
		return crmDomain.Reply{}, false, nil
	}
	rule, ok := r.table.Match(req.Text)
	if !ok {
		return crmDomain.Reply{}, false, nil
	}
	logrus.Debugf("[REPLY] Rule %q matched for lead %s", rule.Name, req.LeadID)
	return crmDomain.Reply{Text: rule.Reply, Source: "rules:" + rule.Name}, true, nil
}

func (r *Replier) generate(ctx context.Context, req crmDomain.ReplyRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	history := req.History
	// the inbound message is already stored and sent as UserText
	if n := len(history); n > 0 && history[n-1].Sender == crmDomain.SenderUser && history[n-1].Content == req.Text {
		history = history[:n-1]
	}
	if len(history) > r.opts.MaxHistory {
		history = history[len(history)-r.opts.MaxHistory:]
	}

	turns := make([]domain.ChatTurn, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Sender == crmDomain.SenderAssistant {
			role = "assistant"
		}
		turns = append(turns, domain.ChatTurn{Role: role, Text: m.Content})
	}

	return r.generator.Generate(ctx, domain.ChatRequest{
		SystemPrompt: r.opts.SystemPrompt,
		History:      turns,
		UserText:     req.Text,
		Model:        r.opts.Model,
		MaxTokens:    r.opts.MaxTokens,
	})
}
