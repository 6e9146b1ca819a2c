package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AzielCF/az-relay/channel/domain/event"
	"github.com/AzielCF/az-relay/channel/domain/instance"
	"github.com/AzielCF/az-relay/core/database"
	"github.com/AzielCF/az-relay/crm/domain"
	"github.com/AzielCF/az-relay/crm/repository"
	pkgError "github.com/AzielCF/az-relay/pkg/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) (*gorm.DB, *repository.CRMGormRepository) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Open(sqlite.Open(dsn), false)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo := repository.NewCRMGormRepository(db)
	require.NoError(t, repo.InitSchema(context.Background()))
	return db, repo
}

func count(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table(table).Count(&n).Error)
	return n
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeSender) Send(_ context.Context, _, recipient, text string) (*instance.SentMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, recipient+":"+text)
	return &instance.SentMessage{ID: fmt.Sprintf("OUT-%d", len(f.sent))}, nil
}

type staticReplier struct {
	text string
	err  error
}

func (r staticReplier) Reply(context.Context, domain.ReplyRequest) (domain.Reply, bool, error) {
	if r.err != nil {
		return domain.Reply{}, false, r.err
	}
	return domain.Reply{Text: r.text, Source: "test"}, r.text != "", nil
}

const upsertPayload = `[
	{"key":{"remoteJid":"5511988887777@s.whatsapp.net","fromMe":true,"id":"MINE-1"},"message":{"conversation":"hello from me"}},
	{"key":{"remoteJid":"5511988887777@s.whatsapp.net","fromMe":false,"id":"THEIRS-1"},"pushName":"Ana","message":{"conversation":"Oi"},"messageTimestamp":1717000000}
]`

func ingestEnvelope(t *testing.T, svc *IngestService, payload string) (stored, skipped int) {
	t.Helper()
	ev := event.Parse(event.Envelope{Event: "messages.upsert", Instance: "sofia-1", Data: json.RawMessage(payload)})
	batch, ok := ev.(event.MessagesUpsert)
	require.True(t, ok)
	for _, rec := range batch.Records {
		require.NoError(t, rec.Err)
		res, err := svc.Ingest(context.Background(), batch.Instance, rec.Message)
		require.NoError(t, err)
		if res.Outcome == domain.OutcomeStored {
			stored++
		} else {
			skipped++
		}
	}
	return stored, skipped
}

func TestIngest_FromMeIgnoredRealStored(t *testing.T) {
	db, repo := setupDB(t)
	svc := NewIngestService(repo, nil, nil, nil)

	stored, skipped := ingestEnvelope(t, svc, upsertPayload)
	assert.Equal(t, 1, stored)
	assert.Equal(t, 1, skipped)

	assert.EqualValues(t, 1, count(t, db, "leads"))
	assert.EqualValues(t, 1, count(t, db, "conversations"))
	assert.EqualValues(t, 1, count(t, db, "messages"))

	lead, err := repo.FindLeadByPhone(context.Background(), "5511988887777")
	require.NoError(t, err)
	assert.Equal(t, "5511988887777", lead.Name)
	assert.Equal(t, domain.LeadStatusNew, lead.Status)
	assert.Equal(t, domain.LeadSourceWhatsApp, lead.Source)

	conv, err := repo.FindActiveConversation(context.Background(), lead.ID, "5511988887777@s.whatsapp.net")
	require.NoError(t, err)
	assert.Equal(t, 1, conv.MessageCount)
	assert.Equal(t, "sofia-1", conv.InstanceName)
}

func TestIngest_RedeliveryIsIdempotent(t *testing.T) {
	db, repo := setupDB(t)
	sender := &fakeSender{}
	svc := NewIngestService(repo, staticReplier{text: "Olá! Como posso ajudar?"}, sender, nil)

	stored, _ := ingestEnvelope(t, svc, upsertPayload)
	assert.Equal(t, 1, stored)
	stored, skipped := ingestEnvelope(t, svc, upsertPayload)
	assert.Equal(t, 0, stored)
	assert.Equal(t, 2, skipped)

	assert.EqualValues(t, 1, count(t, db, "leads"))
	assert.EqualValues(t, 1, count(t, db, "conversations"))
	// the inbound message plus one reply, never a second copy of either
	assert.EqualValues(t, 2, count(t, db, "messages"))
	assert.Len(t, sender.sent, 1)

	lead, _ := repo.FindLeadByPhone(context.Background(), "5511988887777")
	conv, _ := repo.FindActiveConversation(context.Background(), lead.ID, "5511988887777@s.whatsapp.net")
	assert.Equal(t, 2, conv.MessageCount)
}

func TestIngest_ReplyIsPersistedAsAssistant(t *testing.T) {
	_, repo := setupDB(t)
	sender := &fakeSender{}
	svc := NewIngestService(repo, staticReplier{text: "Olá!"}, sender, nil)

	res, err := svc.Ingest(context.Background(), "sofia-1", domain.InboundMessage{
		SenderChannelID:   "5511988887777:3@s.whatsapp.net",
		ChatID:            "5511988887777@s.whatsapp.net",
		ProviderMessageID: "X1",
		Text:              "oi",
	})
	require.NoError(t, err)
	assert.True(t, res.Replied)
	assert.True(t, res.LeadCreated)
	assert.Equal(t, []string{"5511988887777:Olá!"}, sender.sent)

	msgs, err := repo.ListMessages(context.Background(), res.Conversation)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.SenderAssistant, msgs[1].Sender)
	assert.True(t, msgs[1].IsAIGenerated)
	assert.Equal(t, "OUT-1", msgs[1].ProviderMessageID)
}

func TestIngest_ReplierErrorDoesNotFailRecord(t *testing.T) {
	_, repo := setupDB(t)
	sender := &fakeSender{}
	svc := NewIngestService(repo, staticReplier{err: errors.New("quota")}, sender, nil)

	res, err := svc.Ingest(context.Background(), "sofia-1", domain.InboundMessage{
		SenderChannelID: "5511988887777@s.whatsapp.net", ProviderMessageID: "X1", Text: "oi",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeStored, res.Outcome)
	assert.False(t, res.Replied)
	assert.Empty(t, sender.sent)
}

func TestIngest_SendFailureIsReported(t *testing.T) {
	_, repo := setupDB(t)
	sender := &fakeSender{err: &pkgError.RemoteUnavailableError{Op: "send"}}
	svc := NewIngestService(repo, staticReplier{text: "Olá!"}, sender, nil)

	res, err := svc.Ingest(context.Background(), "sofia-1", domain.InboundMessage{
		SenderChannelID: "5511988887777@s.whatsapp.net", ProviderMessageID: "X1", Text: "oi",
	})
	var unavailable *pkgError.RemoteUnavailableError
	assert.True(t, errors.As(err, &unavailable))
	assert.Equal(t, domain.OutcomeStored, res.Outcome)
}

func TestIngest_GroupMessageNoReply(t *testing.T) {
	_, repo := setupDB(t)
	sender := &fakeSender{}
	svc := NewIngestService(repo, staticReplier{text: "Olá!"}, sender, nil)

	res, err := svc.Ingest(context.Background(), "sofia-1", domain.InboundMessage{
		SenderChannelID:   "5511988887777@s.whatsapp.net",
		ChatID:            "120363025246125888@g.us",
		ProviderMessageID: "G1",
		Text:              "oi pessoal",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeStored, res.Outcome)
	assert.Empty(t, sender.sent)
}

func TestIngest_DiscardsAndMalformed(t *testing.T) {
	_, repo := setupDB(t)
	svc := NewIngestService(repo, nil, nil, nil)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, "sofia-1", domain.InboundMessage{ChatID: "status@broadcast", SenderChannelID: "5511988887777@s.whatsapp.net", ProviderMessageID: "S1"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDiscarded, res.Outcome)

	_, err = svc.Ingest(ctx, "sofia-1", domain.InboundMessage{SenderChannelID: "@s.whatsapp.net", ProviderMessageID: "S2"})
	var malformed pkgError.MalformedMessageError
	assert.True(t, errors.As(err, &malformed))
}

func TestIngest_ExistingLeadIsTouched(t *testing.T) {
	_, repo := setupDB(t)
	ctx := context.Background()
	old := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, repo.CreateLead(ctx, domain.Lead{ID: "lead-1", Name: "Ana", Phone: "5511988887777", Status: domain.LeadStatusNew, Source: "whatsapp", LastInteraction: old}))

	svc := NewIngestService(repo, nil, nil, nil)
	res, err := svc.Ingest(ctx, "sofia-1", domain.InboundMessage{SenderChannelID: "5511988887777@s.whatsapp.net", ProviderMessageID: "X1", Text: "oi"})
	require.NoError(t, err)
	assert.Equal(t, "lead-1", res.LeadID)
	assert.False(t, res.LeadCreated)

	lead, _ := repo.FindLeadByPhone(ctx, "5511988887777")
	assert.Equal(t, "Ana", lead.Name)
	assert.True(t, lead.LastInteraction.After(old))
}

// racyRepo simulates a concurrent delivery that creates the lead and the
// conversation between our find and our create.
type racyRepo struct {
	domain.Repository
}

func (r racyRepo) CreateLead(ctx context.Context, lead domain.Lead) error {
	winner := lead
	winner.ID = "winner-lead"
	if err := r.Repository.CreateLead(ctx, winner); err != nil {
		return err
	}
	return r.Repository.CreateLead(ctx, lead)
}

func (r racyRepo) CreateConversation(ctx context.Context, conv domain.Conversation) error {
	winner := conv
	winner.ID = "winner-conv"
	if err := r.Repository.CreateConversation(ctx, winner); err != nil {
		return err
	}
	return r.Repository.CreateConversation(ctx, conv)
}

func TestIngest_LostRaceReadsWinner(t *testing.T) {
	db, repo := setupDB(t)
	svc := NewIngestService(racyRepo{Repository: repo}, nil, nil, nil)

	res, err := svc.Ingest(context.Background(), "sofia-1", domain.InboundMessage{
		SenderChannelID: "5511988887777@s.whatsapp.net", ProviderMessageID: "X1", Text: "oi",
	})
	require.NoError(t, err)
	assert.Equal(t, "winner-lead", res.LeadID)
	assert.Equal(t, "winner-conv", res.Conversation)
	assert.False(t, res.LeadCreated)
	assert.EqualValues(t, 1, count(t, db, "leads"))
	assert.EqualValues(t, 1, count(t, db, "conversations"))
}

func TestIngest_FailedCounterUpdateIsRetriedCleanly(t *testing.T) {
	db, repo := setupDB(t)
	svc := NewIngestService(repo, nil, nil, nil)

	failNext := true
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:fail_once", func(tx *gorm.DB) {
		if failNext && tx.Statement.Table == "conversations" {
			failNext = false
			_ = tx.AddError(errors.New("transient db error"))
		}
	}))

	msg := domain.InboundMessage{
		SenderChannelID: "5511988887777@s.whatsapp.net", ProviderMessageID: "X1", Text: "oi",
	}
	_, err := svc.Ingest(context.Background(), "sofia-1", msg)
	require.Error(t, err)
	assert.EqualValues(t, 0, count(t, db, "messages"))

	res, err := svc.Ingest(context.Background(), "sofia-1", msg)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeStored, res.Outcome)
	assert.EqualValues(t, 1, count(t, db, "messages"))

	conv, err := repo.FindActiveConversation(context.Background(), res.LeadID, "5511988887777@s.whatsapp.net")
	require.NoError(t, err)
	assert.Equal(t, 1, conv.MessageCount)
}
