package event

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/AzielCF/az-relay/channel/domain/pairing"
	"github.com/AzielCF/az-relay/pkg/utils"
)

// NormalizeTag folds the gateway spellings ("qrcode.updated",
// "QRCODE_UPDATED", "qrcode-updated") into one Tag.
func NormalizeTag(raw string) Tag {
	t := strings.ToUpper(strings.TrimSpace(raw))
	t = strings.NewReplacer(".", "_", "-", "_", " ", "_").Replace(t)
	if t == "MESSAGES_UPDATE" {
		return TagMessageStatusUpdate
	}
	return Tag(t)
}

// Parse classifies an envelope. It never fails: anything it cannot make sense
// of becomes Unrecognized.
func Parse(env Envelope) Event {
	name := strings.TrimSpace(env.Instance)

	switch NormalizeTag(env.Event) {
	case TagQRCodeUpdated:
		tree := utils.DecodeAny(env.Data)
		cred, ok := pairing.NewCredential(name,
			utils.PickString(tree, "base64", "qrcode", "qr", "qr_code", "qrCode"),
			utils.PickString(tree, "code"),
			utils.PickString(tree, "pairingCode", "pair_code", "paircode"),
		)
		if !ok {
			return Unrecognized{Instance: name, Raw: env.Event, Reason: "qrcode event without artifact"}
		}
		return QRCodeUpdated{Instance: name, Credential: cred}

	case TagConnectionUpdate:
		tree := utils.DecodeAny(env.Data)
		// sin estado: ParseState lo deja en unknown
		state := utils.PickString(tree, "state", "status", "connection", "connectionState")
		reason, _ := strconv.Atoi(utils.PickString(tree, "statusReason"))
		return ConnectionUpdate{Instance: name, State: state, StatusReason: reason}

	case TagMessagesUpsert:
		raws := splitRecords(env.Data)
		records := make([]InboundRecord, 0, len(raws))
		for _, raw := range raws {
			msg, err := DecodeInbound(raw)
			records = append(records, InboundRecord{Message: msg, Err: err})
		}
		return MessagesUpsert{Instance: name, Records: records}

	case TagMessageStatusUpdate:
		return MessageStatusUpdate{Instance: name, Data: env.Data}

	case TagPresenceUpdate:
		return PresenceUpdate{Instance: name, Data: env.Data}
	}

	return Unrecognized{Instance: name, Raw: env.Event}
}

// splitRecords accepts a single record, an array of records or an object
// wrapping them under "messages".
func splitRecords(data json.RawMessage) []json.RawMessage {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return []json.RawMessage{trimmed}
		}
		return list
	}

	var wrapper struct {
		Messages []json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(trimmed, &wrapper); err == nil && len(wrapper.Messages) > 0 {
		return wrapper.Messages
	}
	return []json.RawMessage{trimmed}
}
