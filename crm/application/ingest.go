package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AzielCF/az-relay/channel/domain/instance"
	"github.com/AzielCF/az-relay/crm/domain"
	pkgError "github.com/AzielCF/az-relay/pkg/error"
	"github.com/AzielCF/az-relay/pkg/notify"
	"github.com/AzielCF/az-relay/pkg/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Sender delivers an outbound text through the instance that received the
// inbound one. LifecycleService satisfies it.
type Sender interface {
	Send(ctx context.Context, name, recipient, text string) (*instance.SentMessage, error)
}

type IngestService struct {
	repo     domain.Repository
	replier  domain.Replier
	sender   Sender
	notifier notify.Notifier
	now      func() time.Time
}

// NewIngestService wires the pipeline. replier and sender may be nil, which
// disables automatic replies.
func NewIngestService(repo domain.Repository, replier domain.Replier, sender Sender, notifier notify.Notifier) *IngestService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &IngestService{
		repo:     repo,
		replier:  replier,
		sender:   sender,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var _ domain.IIngestUsecase = (*IngestService)(nil)

func (s *IngestService) Ingest(ctx context.Context, instanceName string, msg domain.InboundMessage) (domain.IngestResult, error) {
	if msg.FromMe || utils.IsBroadcastChat(msg.ChatID) {
		return domain.IngestResult{Outcome: domain.OutcomeDiscarded}, nil
	}

	phone := utils.NormalizePhone(msg.SenderChannelID)
	if phone == "" {
		return domain.IngestResult{}, pkgError.MalformedMessageError("sender has no phone number: " + msg.SenderChannelID)
	}
	if msg.ProviderMessageID == "" {
		return domain.IngestResult{}, pkgError.MalformedMessageError("missing provider message id")
	}
	chatID := msg.ChatID
	if chatID == "" {
		chatID = msg.SenderChannelID
	}

	now := s.now()
	sentAt := msg.Timestamp
	if sentAt.IsZero() {
		sentAt = now
	}

	lead, created, err := s.findOrCreateLead(ctx, phone, now)
	if err != nil {
		return domain.IngestResult{}, fmt.Errorf("lead %s: %w", phone, err)
	}
	result := domain.IngestResult{LeadID: lead.ID, LeadCreated: created}

	conv, err := s.findOrCreateConversation(ctx, lead.ID, chatID, instanceName, now)
	if err != nil {
		return result, fmt.Errorf("conversation for lead %s: %w", lead.ID, err)
	}
	result.Conversation = conv.ID

	stored := domain.Message{
		ID:                uuid.New().String(),
		ConversationID:    conv.ID,
		LeadID:            lead.ID,
		ProviderMessageID: msg.ProviderMessageID,
		Sender:            domain.SenderUser,
		Content:           msg.Text,
		SentAt:            sentAt,
	}
	if err := s.repo.AppendMessage(ctx, stored); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			logrus.Debugf("[INGEST] Duplicate delivery %s on %s ignored", msg.ProviderMessageID, instanceName)
			result.Outcome = domain.OutcomeDuplicate
			return result, nil
		}
		return result, fmt.Errorf("store message %s: %w", msg.ProviderMessageID, err)
	}
	result.Outcome = domain.OutcomeStored
	result.MessageID = stored.ID

	logrus.WithFields(logrus.Fields{
		"instance":     instanceName,
		"lead":         lead.ID,
		"conversation": conv.ID,
		"message":      msg.ProviderMessageID,
	}).Info("[INGEST] Message stored")
	s.notifier.Notify(ctx, notify.Notification{
		Type:     notify.TypeMessageIngested,
		Instance: instanceName,
		Time:     now,
		Data: map[string]any{
			"lead_id":         lead.ID,
			"conversation_id": conv.ID,
			"message_id":      stored.ID,
			"phone":           phone,
			"text":            msg.Text,
		},
	})

	if utils.IsGroupChat(chatID) {
		return result, nil
	}
	replied, err := s.reply(ctx, instanceName, lead, conv, chatID, phone, msg)
	result.Replied = replied
	if err != nil {
		return result, err
	}
	return result, nil
}

func (s *IngestService) findOrCreateLead(ctx context.Context, phone string, now time.Time) (domain.Lead, bool, error) {
	lead, err := s.repo.FindLeadByPhone(ctx, phone)
	if err == nil {
		if err := s.repo.TouchLead(ctx, lead.ID, now); err != nil {
			return lead, false, err
		}
		lead.LastInteraction = now
		return lead, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Lead{}, false, err
	}

	lead = domain.Lead{
		ID:              uuid.New().String(),
		Name:            phone,
		Phone:           phone,
		Status:          domain.LeadStatusNew,
		Source:          domain.LeadSourceWhatsApp,
		Score:           0,
		LastInteraction: now,
		CreatedAt:       now,
	}
	if err := s.repo.CreateLead(ctx, lead); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			// a concurrent delivery created it first
			winner, findErr := s.repo.FindLeadByPhone(ctx, phone)
			return winner, false, findErr
		}
		return domain.Lead{}, false, err
	}
	return lead, true, nil
}

func (s *IngestService) findOrCreateConversation(ctx context.Context, leadID, chatID, instanceName string, now time.Time) (domain.Conversation, error) {
	conv, err := s.repo.FindActiveConversation(ctx, leadID, chatID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Conversation{}, err
	}

	conv = domain.Conversation{
		ID:            uuid.New().String(),
		LeadID:        leadID,
		ChatID:        chatID,
		InstanceName:  instanceName,
		Status:        domain.ConversationActive,
		StartedAt:     now,
		LastMessageAt: now,
	}
	if err := s.repo.CreateConversation(ctx, conv); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return s.repo.FindActiveConversation(ctx, leadID, chatID)
		}
		return domain.Conversation{}, err
	}
	return conv, nil
}

func (s *IngestService) reply(ctx context.Context, instanceName string, lead domain.Lead, conv domain.Conversation, chatID, phone string, msg domain.InboundMessage) (bool, error) {
	if s.replier == nil || s.sender == nil {
		return false, nil
	}

	history, err := s.repo.ListMessages(ctx, conv.ID)
	if err != nil {
		logrus.Warnf("[INGEST] Could not load history for %s: %v", conv.ID, err)
	}
	reply, ok, err := s.replier.Reply(ctx, domain.ReplyRequest{
		Instance: instanceName,
		LeadID:   lead.ID,
		Phone:    phone,
		PushName: msg.PushName,
		ChatID:   chatID,
		Text:     msg.Text,
		History:  history,
	})
	if err != nil {
		logrus.Warnf("[INGEST] Reply generation failed for %s: %v", msg.ProviderMessageID, err)
		return false, nil
	}
	if !ok || reply.Text == "" {
		return false, nil
	}

	sent, err := s.sender.Send(ctx, instanceName, phone, reply.Text)
	if err != nil {
		return false, fmt.Errorf("send reply to %s: %w", phone, err)
	}

	at := s.now()
	out := domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		LeadID:         lead.ID,
		Sender:         domain.SenderAssistant,
		Content:        reply.Text,
		IsAIGenerated:  true,
		SentAt:         at,
	}
	if sent != nil {
		out.ProviderMessageID = sent.ID
	}
	if err := s.repo.AppendMessage(ctx, out); err != nil && !errors.Is(err, domain.ErrDuplicate) {
		return true, fmt.Errorf("store reply in %s: %w", conv.ID, err)
	}
	logrus.Infof("[INGEST] Replied to %s via %s (%s)", phone, instanceName, reply.Source)
	return true, nil
}
