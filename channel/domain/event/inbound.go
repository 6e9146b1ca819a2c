package event

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	crmDomain "github.com/AzielCF/az-relay/crm/domain"
	pkgError "github.com/AzielCF/az-relay/pkg/error"
	"github.com/AzielCF/az-relay/pkg/utils"
)

type wireKey struct {
	RemoteJID   string `json:"remoteJid"`
	FromMe      bool   `json:"fromMe"`
	ID          string `json:"id"`
	Participant string `json:"participant"`
}

type wireMessage struct {
	Key              *wireKey        `json:"key"`
	PushName         string          `json:"pushName"`
	Message          json.RawMessage `json:"message"`
	MessageTimestamp any             `json:"messageTimestamp"`

	// flat shape used by some gateway forks
	SenderChannelID   string `json:"senderChannelId"`
	ProviderMessageID string `json:"providerMessageId"`
	Text              string `json:"text"`
	FromMe            bool   `json:"fromMe"`
}

// DecodeInbound turns one raw upsert record into an InboundMessage. The error
// is always a pkgError.MalformedMessageError.
func DecodeInbound(raw json.RawMessage) (crmDomain.InboundMessage, error) {
	var w wireMessage
	if err := json.Unmarshal(raw, &w); err != nil {
		return crmDomain.InboundMessage{}, pkgError.MalformedMessageError(err.Error())
	}

	msg := crmDomain.InboundMessage{PushName: strings.TrimSpace(w.PushName)}
	if w.Key != nil {
		msg.ChatID = w.Key.RemoteJID
		msg.SenderChannelID = w.Key.RemoteJID
		if w.Key.Participant != "" && utils.IsGroupChat(w.Key.RemoteJID) {
			msg.SenderChannelID = w.Key.Participant
		}
		msg.ProviderMessageID = w.Key.ID
		msg.FromMe = w.Key.FromMe
		msg.Text = messageText(w.Message)
	} else {
		msg.ChatID = w.SenderChannelID
		msg.SenderChannelID = w.SenderChannelID
		msg.ProviderMessageID = w.ProviderMessageID
		msg.FromMe = w.FromMe
		msg.Text = w.Text
	}
	msg.Timestamp = parseTimestamp(w.MessageTimestamp)

	if msg.FromMe {
		return msg, nil
	}
	if strings.TrimSpace(msg.SenderChannelID) == "" {
		return msg, pkgError.MalformedMessageError("missing sender channel id")
	}
	if strings.TrimSpace(msg.ProviderMessageID) == "" {
		return msg, pkgError.MalformedMessageError("missing provider message id")
	}
	return msg, nil
}

func messageText(raw json.RawMessage) string {
	tree := utils.DecodeAny(raw)
	m, ok := tree.(map[string]any)
	if !ok {
		return ""
	}
	if s, ok := m["conversation"].(string); ok && s != "" {
		return s
	}
	for _, path := range [][2]string{
		{"extendedTextMessage", "text"},
		{"imageMessage", "caption"},
		{"videoMessage", "caption"},
		{"documentMessage", "caption"},
		{"buttonsResponseMessage", "selectedDisplayText"},
		{"listResponseMessage", "title"},
		{"templateButtonReplyMessage", "selectedDisplayText"},
	} {
		if inner, ok := m[path[0]].(map[string]any); ok {
			if s, ok := inner[path[1]].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func parseTimestamp(v any) time.Time {
	var secs int64
	switch t := v.(type) {
	case float64:
		secs = int64(t)
	case string:
		secs, _ = strconv.ParseInt(t, 10, 64)
	case map[string]any:
		if low, ok := t["low"].(float64); ok {
			secs = int64(uint32(low))
		}
	}
	if secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}
