package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/AzielCF/az-relay/core/database"
	"github.com/AzielCF/az-relay/crm/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func setupRepo(t *testing.T) *CRMGormRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Open(sqlite.Open(dsn), false)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo := NewCRMGormRepository(db)
	require.NoError(t, repo.InitSchema(context.Background()))
	return repo
}

func TestLeadLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)

	_, err := repo.FindLeadByPhone(ctx, "5511988887777")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	now := time.Now().UTC().Truncate(time.Second)
	lead := domain.Lead{ID: "lead-1", Name: "5511988887777", Phone: "5511988887777", Status: domain.LeadStatusNew, Source: domain.LeadSourceWhatsApp, LastInteraction: now}
	require.NoError(t, repo.CreateLead(ctx, lead))

	err = repo.CreateLead(ctx, domain.Lead{Name: "dup", Phone: "5511988887777", Status: domain.LeadStatusNew, Source: domain.LeadSourceWhatsApp})
	assert.True(t, errors.Is(err, domain.ErrDuplicate))

	got, err := repo.FindLeadByPhone(ctx, "5511988887777")
	require.NoError(t, err)
	assert.Equal(t, "lead-1", got.ID)
	assert.Equal(t, domain.LeadStatusNew, got.Status)
	assert.Equal(t, 0, got.Score)

	later := now.Add(time.Hour)
	require.NoError(t, repo.TouchLead(ctx, "lead-1", later))
	got, _ = repo.FindLeadByPhone(ctx, "5511988887777")
	assert.True(t, got.LastInteraction.Equal(later))

	assert.True(t, errors.Is(repo.TouchLead(ctx, "missing", later), domain.ErrNotFound))
}

func TestConversationUniquenessAndCounters(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	now := time.Now().UTC()

	conv := domain.Conversation{ID: "conv-1", LeadID: "lead-1", ChatID: "5511988887777@s.whatsapp.net", InstanceName: "sofia-1", StartedAt: now, LastMessageAt: now}
	require.NoError(t, repo.CreateConversation(ctx, conv))

	conv.ID = "conv-2"
	assert.True(t, errors.Is(repo.CreateConversation(ctx, conv), domain.ErrDuplicate))

	require.NoError(t, repo.IncrementConversation(ctx, "conv-1", 1, now))
	require.NoError(t, repo.IncrementConversation(ctx, "conv-1", 2, now))
	found, err := repo.FindActiveConversation(ctx, "lead-1", "5511988887777@s.whatsapp.net")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", found.ID)
	assert.Equal(t, 3, found.MessageCount)
	assert.Equal(t, domain.ConversationActive, found.Status)

	// closing frees the slot for a new active thread
	require.NoError(t, repo.CloseConversation(ctx, "conv-1"))
	_, err = repo.FindActiveConversation(ctx, "lead-1", "5511988887777@s.whatsapp.net")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	require.NoError(t, repo.CreateConversation(ctx, conv))

	assert.True(t, errors.Is(repo.IncrementConversation(ctx, "missing", 1, now), domain.ErrNotFound))
}

func TestMessageDedupe(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	now := time.Now().UTC()

	msg := domain.Message{ConversationID: "conv-1", LeadID: "lead-1", ProviderMessageID: "ABC", Sender: domain.SenderUser, Content: "Oi", SentAt: now}
	require.NoError(t, repo.CreateMessage(ctx, msg))
	assert.True(t, errors.Is(repo.CreateMessage(ctx, msg), domain.ErrDuplicate))

	// same provider id in another conversation is a different message
	other := msg
	other.ConversationID = "conv-2"
	require.NoError(t, repo.CreateMessage(ctx, other))

	found, err := repo.FindMessage(ctx, "conv-1", "ABC")
	require.NoError(t, err)
	assert.Equal(t, "Oi", found.Content)

	reply := domain.Message{ConversationID: "conv-1", LeadID: "lead-1", Sender: domain.SenderAssistant, Content: "Olá!", IsAIGenerated: true, SentAt: now.Add(time.Second)}
	require.NoError(t, repo.CreateMessage(ctx, reply))

	list, err := repo.ListMessages(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.SenderUser, list[0].Sender)
	assert.Equal(t, domain.SenderAssistant, list[1].Sender)
	assert.True(t, list[1].IsAIGenerated)
	assert.True(t, strings.HasPrefix(list[1].ProviderMessageID, "local-"))
}

func TestAppendMessage(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	now := time.Now().UTC()

	conv := domain.Conversation{ID: "conv-1", LeadID: "lead-1", ChatID: "5511988887777@s.whatsapp.net", StartedAt: now, LastMessageAt: now}
	require.NoError(t, repo.CreateConversation(ctx, conv))

	msg := domain.Message{ConversationID: "conv-1", LeadID: "lead-1", ProviderMessageID: "ABC", Sender: domain.SenderUser, Content: "Oi", SentAt: now.Add(time.Minute)}
	require.NoError(t, repo.AppendMessage(ctx, msg))
	assert.True(t, errors.Is(repo.AppendMessage(ctx, msg), domain.ErrDuplicate))

	found, err := repo.FindActiveConversation(ctx, "lead-1", "5511988887777@s.whatsapp.net")
	require.NoError(t, err)
	assert.Equal(t, 1, found.MessageCount)
	assert.WithinDuration(t, now.Add(time.Minute), found.LastMessageAt, time.Second)

	// no conversation to bump: the insert is rolled back
	orphan := domain.Message{ConversationID: "missing", LeadID: "lead-1", ProviderMessageID: "DEF", Sender: domain.SenderUser, SentAt: now}
	assert.True(t, errors.Is(repo.AppendMessage(ctx, orphan), domain.ErrNotFound))
	_, err = repo.FindMessage(ctx, "missing", "DEF")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
