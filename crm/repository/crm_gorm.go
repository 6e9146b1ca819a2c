package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/AzielCF/az-relay/crm/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- Persistence Models ---

type leadModel struct {
	ID              string    `gorm:"primaryKey"`
	Name            string    `gorm:"not null"`
	Phone           string    `gorm:"uniqueIndex:idx_leads_phone;not null"`
	Status          string    `gorm:"index:idx_leads_status;default:'new'"`
	Source          string    `gorm:"default:'whatsapp'"`
	Score           int       `gorm:"default:0"`
	LastInteraction time.Time `gorm:"column:last_interaction"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (leadModel) TableName() string {
	return "leads"
}

// ActiveSlot is "active" while the conversation is open and NULL once it is
// closed, so the unique index only ever allows one open thread per chat.
type conversationModel struct {
	ID            string  `gorm:"primaryKey"`
	LeadID        string  `gorm:"uniqueIndex:idx_conversations_active,priority:1;not null"`
	ChatID        string  `gorm:"uniqueIndex:idx_conversations_active,priority:2;not null"`
	ActiveSlot    *string `gorm:"uniqueIndex:idx_conversations_active,priority:3"`
	InstanceName  string  `gorm:"index:idx_conversations_instance"`
	Status        string  `gorm:"not null;default:'active'"`
	StartedAt     time.Time
	LastMessageAt time.Time
	MessageCount  int `gorm:"not null;default:0"`
}

func (conversationModel) TableName() string {
	return "conversations"
}

type messageModel struct {
	ID                string `gorm:"primaryKey"`
	ConversationID    string `gorm:"uniqueIndex:idx_messages_provider,priority:1;not null"`
	ProviderMessageID string `gorm:"uniqueIndex:idx_messages_provider,priority:2;not null"`
	LeadID            string `gorm:"index:idx_messages_lead"`
	Sender            string `gorm:"not null"`
	Content           string `gorm:"type:text"`
	IsAIGenerated     bool   `gorm:"column:is_ai_generated;default:false"`
	SentAt            time.Time
	CreatedAt         time.Time
}

func (messageModel) TableName() string {
	return "messages"
}

// --- Repository Implementation ---

type CRMGormRepository struct {
	db *gorm.DB
}

func NewCRMGormRepository(db *gorm.DB) *CRMGormRepository {
	return &CRMGormRepository{db: db}
}

var _ domain.Repository = (*CRMGormRepository)(nil)

func (r *CRMGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&leadModel{}, &conversationModel{}, &messageModel{})
}

// Leads

func (r *CRMGormRepository) FindLeadByPhone(ctx context.Context, phone string) (domain.Lead, error) {
	var m leadModel
	if err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&m).Error; err != nil {
		return domain.Lead{}, translate(err)
	}
	return fromLeadModel(m), nil
}

func (r *CRMGormRepository) CreateLead(ctx context.Context, lead domain.Lead) error {
	now := time.Now().UTC()
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	m := leadModel{
		ID:              lead.ID,
		Name:            lead.Name,
		Phone:           lead.Phone,
		Status:          string(lead.Status),
		Source:          lead.Source,
		Score:           lead.Score,
		LastInteraction: lead.LastInteraction,
		CreatedAt:       lead.CreatedAt,
		UpdatedAt:       now,
	}
	return translate(r.db.WithContext(ctx).Create(&m).Error)
}

func (r *CRMGormRepository) TouchLead(ctx context.Context, leadID string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&leadModel{}).Where("id = ?", leadID).
		Updates(map[string]any{"last_interaction": at, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Conversations

func (r *CRMGormRepository) FindActiveConversation(ctx context.Context, leadID, chatID string) (domain.Conversation, error) {
	var m conversationModel
	err := r.db.WithContext(ctx).
		Where("lead_id = ? AND chat_id = ? AND status = ?", leadID, chatID, string(domain.ConversationActive)).
		First(&m).Error
	if err != nil {
		return domain.Conversation{}, translate(err)
	}
	return fromConversationModel(m), nil
}

func (r *CRMGormRepository) CreateConversation(ctx context.Context, conv domain.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	if conv.Status == "" {
		conv.Status = domain.ConversationActive
	}
	m := conversationModel{
		ID:            conv.ID,
		LeadID:        conv.LeadID,
		ChatID:        conv.ChatID,
		InstanceName:  conv.InstanceName,
		Status:        string(conv.Status),
		StartedAt:     conv.StartedAt,
		LastMessageAt: conv.LastMessageAt,
		MessageCount:  conv.MessageCount,
	}
	if conv.Status == domain.ConversationActive {
		slot := string(domain.ConversationActive)
		m.ActiveSlot = &slot
	}
	return translate(r.db.WithContext(ctx).Create(&m).Error)
}

// IncrementConversation bumps the counter in SQL so concurrent writers never
// lose an update.
func (r *CRMGormRepository) IncrementConversation(ctx context.Context, conversationID string, delta int, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&conversationModel{}).Where("id = ?", conversationID).
		Updates(map[string]any{
			"message_count":   gorm.Expr("message_count + ?", delta),
			"last_message_at": at,
		})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CloseConversation frees the active slot so the next inbound message opens
// a new thread.
func (r *CRMGormRepository) CloseConversation(ctx context.Context, conversationID string) error {
	result := r.db.WithContext(ctx).Model(&conversationModel{}).Where("id = ?", conversationID).
		Updates(map[string]any{"status": string(domain.ConversationClosed), "active_slot": nil})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Messages

func (r *CRMGormRepository) FindMessage(ctx context.Context, conversationID, providerMessageID string) (domain.Message, error) {
	var m messageModel
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND provider_message_id = ?", conversationID, providerMessageID).
		First(&m).Error
	if err != nil {
		return domain.Message{}, translate(err)
	}
	return fromMessageModel(m), nil
}

func (r *CRMGormRepository) CreateMessage(ctx context.Context, msg domain.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.ProviderMessageID == "" {
		// outbound replies may come back without a gateway id
		msg.ProviderMessageID = "local-" + msg.ID
	}
	m := messageModel{
		ID:                msg.ID,
		ConversationID:    msg.ConversationID,
		ProviderMessageID: msg.ProviderMessageID,
		LeadID:            msg.LeadID,
		Sender:            string(msg.Sender),
		Content:           msg.Content,
		IsAIGenerated:     msg.IsAIGenerated,
		SentAt:            msg.SentAt,
		CreatedAt:         time.Now().UTC(),
	}
	return translate(r.db.WithContext(ctx).Create(&m).Error)
}

func (r *CRMGormRepository) AppendMessage(ctx context.Context, msg domain.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inTx := &CRMGormRepository{db: tx}
		if err := inTx.CreateMessage(ctx, msg); err != nil {
			return err
		}
		return inTx.IncrementConversation(ctx, msg.ConversationID, 1, msg.SentAt)
	})
}

func (r *CRMGormRepository) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	var models []messageModel
	err := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).
		Order("sent_at ASC").Order("created_at ASC").Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0, len(models))
	for _, m := range models {
		out = append(out, fromMessageModel(m))
	}
	return out, nil
}

// translate maps driver errors onto the domain sentinels. TranslateError
// covers most drivers; the string checks catch the ones it misses.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(err.Error(), "UNIQUE constraint failed"),
		strings.Contains(err.Error(), "duplicate key value"):
		return domain.ErrDuplicate
	}
	return err
}

// --- Mappers ---

func fromLeadModel(m leadModel) domain.Lead {
	return domain.Lead{
		ID:              m.ID,
		Name:            m.Name,
		Phone:           m.Phone,
		Status:          domain.LeadStatus(m.Status),
		Source:          m.Source,
		Score:           m.Score,
		LastInteraction: m.LastInteraction,
		CreatedAt:       m.CreatedAt,
	}
}

func fromConversationModel(m conversationModel) domain.Conversation {
	return domain.Conversation{
		ID:            m.ID,
		LeadID:        m.LeadID,
		ChatID:        m.ChatID,
		InstanceName:  m.InstanceName,
		Status:        domain.ConversationStatus(m.Status),
		StartedAt:     m.StartedAt,
		LastMessageAt: m.LastMessageAt,
		MessageCount:  m.MessageCount,
	}
}

func fromMessageModel(m messageModel) domain.Message {
	return domain.Message{
		ID:                m.ID,
		ConversationID:    m.ConversationID,
		LeadID:            m.LeadID,
		ProviderMessageID: m.ProviderMessageID,
		Sender:            domain.Sender(m.Sender),
		Content:           m.Content,
		IsAIGenerated:     m.IsAIGenerated,
		SentAt:            m.SentAt,
	}
}
