package instance

import (
	"strings"
	"time"
)

// Status is the last known state of a gateway session. It is a hint, never a
// source of truth: an evicted entry simply reads as unknown again.
type Status string

const (
	StatusUnknown      Status = "unknown"
	StatusCreated      Status = "created"
	StatusQRReady      Status = "qr_ready"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// ParseState maps the gateway's connection state vocabulary onto Status.
func ParseState(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "open", "connected":
		return StatusConnected
	case "close", "closed":
		return StatusDisconnected
	case "connecting":
		return StatusConnecting
	case "qr":
		return StatusQRReady
	default:
		return StatusUnknown
	}
}

// Instance is the cached view of one remote channel instance.
type Instance struct {
	Name       string    `json:"name"`
	Status     Status    `json:"status"`
	LastUpdate time.Time `json:"last_update"`
}

type Presence string

const (
	PresenceAvailable   Presence = "available"
	PresenceUnavailable Presence = "unavailable"
	PresenceComposing   Presence = "composing"
	PresenceRecording   Presence = "recording"
	PresencePaused      Presence = "paused"
)

var ValidPresences = []Presence{
	PresenceAvailable,
	PresenceUnavailable,
	PresenceComposing,
	PresenceRecording,
	PresencePaused,
}

func (p Presence) Valid() bool {
	for _, v := range ValidPresences {
		if p == v {
			return true
		}
	}
	return false
}

// Settings are sent to the gateway when an instance is provisioned.
type Settings struct {
	Number          string           `json:"number,omitempty"`
	Token           string           `json:"token,omitempty"`
	QRCode          bool             `json:"qrcode"`
	RejectCall      bool             `json:"reject_call"`
	MsgCall         string           `json:"msg_call,omitempty"`
	GroupsIgnore    bool             `json:"groups_ignore"`
	AlwaysOnline    bool             `json:"always_online"`
	ReadMessages    bool             `json:"read_messages"`
	ReadStatus      bool             `json:"read_status"`
	SyncFullHistory bool             `json:"sync_full_history"`
	Webhook         *WebhookSettings `json:"webhook,omitempty"`
}

type WebhookSettings struct {
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	ByEvents bool     `json:"by_events"`
	Base64   bool     `json:"base64"`
}

// SentMessage is the gateway acknowledgement of an outbound text.
type SentMessage struct {
	ID        string `json:"id"`
	RemoteJID string `json:"remote_jid"`
	Status    string `json:"status,omitempty"`
}
