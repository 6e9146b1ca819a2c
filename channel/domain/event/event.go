package event

import (
	"encoding/json"

	"github.com/AzielCF/az-relay/channel/domain/pairing"
	crmDomain "github.com/AzielCF/az-relay/crm/domain"
)

type Tag string

const (
	TagQRCodeUpdated       Tag = "QRCODE_UPDATED"
	TagConnectionUpdate    Tag = "CONNECTION_UPDATE"
	TagMessagesUpsert      Tag = "MESSAGES_UPSERT"
	TagMessageStatusUpdate Tag = "MESSAGE_STATUS_UPDATE"
	TagPresenceUpdate      Tag = "PRESENCE_UPDATE"
)

// Envelope is the body the gateway POSTs to the webhook endpoint.
type Envelope struct {
	Event     string          `json:"event"`
	Instance  string          `json:"instance"`
	Data      json.RawMessage `json:"data"`
	DateTime  string          `json:"date_time,omitempty"`
	Sender    string          `json:"sender,omitempty"`
	ServerURL string          `json:"server_url,omitempty"`
}

// Event is a closed set: only the types in this file implement it.
type Event interface {
	InstanceName() string
	Tag() Tag
	isEvent()
}

type QRCodeUpdated struct {
	Instance   string
	Credential pairing.Credential
}

type ConnectionUpdate struct {
	Instance     string
	State        string
	StatusReason int
}

// InboundRecord is one decoded MESSAGES_UPSERT entry. Err is set instead of
// Message when that single record could not be decoded.
type InboundRecord struct {
	Message crmDomain.InboundMessage
	Err     error
}

type MessagesUpsert struct {
	Instance string
	Records  []InboundRecord
}

type MessageStatusUpdate struct {
	Instance string
	Data     json.RawMessage
}

type PresenceUpdate struct {
	Instance string
	Data     json.RawMessage
}

// Unrecognized carries any tag the core does not handle, or a known tag whose
// payload made no sense. Reason is empty for plain unknown tags.
type Unrecognized struct {
	Instance string
	Raw      string
	Reason   string
}

func (e QRCodeUpdated) InstanceName() string       { return e.Instance }
func (e ConnectionUpdate) InstanceName() string    { return e.Instance }
func (e MessagesUpsert) InstanceName() string      { return e.Instance }
func (e MessageStatusUpdate) InstanceName() string { return e.Instance }
func (e PresenceUpdate) InstanceName() string      { return e.Instance }
func (e Unrecognized) InstanceName() string        { return e.Instance }

func (QRCodeUpdated) Tag() Tag       { return TagQRCodeUpdated }
func (ConnectionUpdate) Tag() Tag    { return TagConnectionUpdate }
func (MessagesUpsert) Tag() Tag      { return TagMessagesUpsert }
func (MessageStatusUpdate) Tag() Tag { return TagMessageStatusUpdate }
func (PresenceUpdate) Tag() Tag      { return TagPresenceUpdate }
func (e Unrecognized) Tag() Tag      { return Tag(e.Raw) }

func (QRCodeUpdated) isEvent()       {}
func (ConnectionUpdate) isEvent()    {}
func (MessagesUpsert) isEvent()      {}
func (MessageStatusUpdate) isEvent() {}
func (PresenceUpdate) isEvent()      {}
func (Unrecognized) isEvent()        {}
