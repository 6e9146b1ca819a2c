package utils

import (
	"strings"

	"go.mau.fi/whatsmeow/types"
)

const broadcastChat = "status@broadcast"

// NormalizePhone turns a channel id such as "5511999999999@s.whatsapp.net" or
// "5511999999999:12@s.whatsapp.net" into the canonical phone "5511999999999".
// Bare numbers are accepted too. Anything that is not a digit is dropped.
func NormalizePhone(channelID string) string {
	id := strings.TrimSpace(channelID)
	if id == "" {
		return ""
	}

	user := id
	if strings.Contains(id, "@") {
		jid, err := types.ParseJID(id)
		if err == nil {
			user = jid.User
		} else {
			user = strings.SplitN(id, "@", 2)[0]
		}
	}
	if i := strings.IndexAny(user, ":."); i >= 0 {
		user = user[:i]
	}

	var b strings.Builder
	for _, r := range user {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsGroupChat reports whether the chat id belongs to a group.
func IsGroupChat(chatID string) bool {
	return strings.HasSuffix(chatID, "@"+types.GroupServer)
}

// IsBroadcastChat reports whether the chat id is the status broadcast list.
func IsBroadcastChat(chatID string) bool {
	return chatID == broadcastChat
}
