package pairing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/AzielCF/az-relay/pkg/utils"
)

type Kind string

const (
	KindQR   Kind = "qr"
	KindCode Kind = "code"
)

// ErrNoCredential means every source was asked and none had an artifact,
// typically because the instance is already paired.
var ErrNoCredential = errors.New("no pairing credential available")

// Credential is the QR image or numeric code a user needs to link a device.
// It is never persisted durably and can always be fetched again.
type Credential struct {
	Instance    string    `json:"instance"`
	Payload     string    `json:"payload"`
	Kind        Kind      `json:"kind"`
	PairingCode string    `json:"pairing_code,omitempty"`
	RawCode     string    `json:"raw_code,omitempty"`
	Source      string    `json:"source,omitempty"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// NewCredential builds a credential from whatever the gateway handed out.
// An image wins; a raw QR string is rendered; a numeric pairing code is the
// last option. ok is false when none of them is present.
func NewCredential(instanceName, image, rawCode, pairingCode string) (Credential, bool) {
	cred := Credential{
		Instance:    instanceName,
		PairingCode: strings.TrimSpace(pairingCode),
		RawCode:     strings.TrimSpace(rawCode),
	}
	image = strings.TrimSpace(image)

	switch {
	case image != "":
		if !strings.HasPrefix(image, "data:") {
			image = "data:image/png;base64," + image
		}
		cred.Payload, cred.Kind = image, KindQR
	case cred.RawCode != "":
		uri, err := utils.RenderQRDataURI(cred.RawCode)
		if err != nil {
			uri = cred.RawCode
		}
		cred.Payload, cred.Kind = uri, KindQR
	case cred.PairingCode != "":
		cred.Payload, cred.Kind = cred.PairingCode, KindCode
	default:
		return Credential{}, false
	}
	return cred, true
}

// Stamp sets the validity window starting at now.
func (c Credential) Stamp(now time.Time, ttl time.Duration) Credential {
	c.IssuedAt = now
	c.ExpiresAt = now.Add(ttl)
	return c
}

// Fresh reports whether the credential is still valid at now.
func (c Credential) Fresh(now time.Time) bool {
	return c.Payload != "" && now.Before(c.ExpiresAt)
}

// Store keeps at most one credential per instance name.
// Get returns (nil, nil) on a miss, including expired entries.
type Store interface {
	Get(ctx context.Context, name string) (*Credential, error)
	Save(ctx context.Context, cred Credential, ttl time.Duration) error
	Delete(ctx context.Context, name string) error
}

type IPairingUsecase interface {
	GetPairingCredential(ctx context.Context, name string, forceRefresh bool) (Credential, error)
}
