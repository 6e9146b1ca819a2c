package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AzielCF/az-relay/channel/domain/instance"
	"github.com/AzielCF/az-relay/channel/domain/pairing"
	pkgError "github.com/AzielCF/az-relay/pkg/error"
	"github.com/AzielCF/az-relay/pkg/utils"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	defaultCreateTimeout  = 30 * time.Second
	defaultConnectTimeout = 10 * time.Second
	defaultTimeout        = 15 * time.Second
)

type Config struct {
	BaseURL     string
	APIKey      string
	Integration string

	CreateTimeout  time.Duration
	ConnectTimeout time.Duration
	DefaultTimeout time.Duration

	// Webhook is sent on create when the caller's settings carry none.
	Webhook *instance.WebhookSettings

	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client
}

// Client talks to an Evolution-compatible gateway. It keeps no state besides
// its configuration; every method is one remote call.
type Client struct {
	http *resty.Client
	cfg  Config
}

func NewClient(cfg Config) *Client {
	if cfg.CreateTimeout <= 0 {
		cfg.CreateTimeout = defaultCreateTimeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaultTimeout
	}
	if cfg.Integration == "" {
		cfg.Integration = "WHATSAPP-BAILEYS"
	}

	var rc *resty.Client
	if cfg.HTTPClient != nil {
		rc = resty.NewWithClient(cfg.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("apikey", cfg.APIKey).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	return &Client{http: rc, cfg: cfg}
}

func (c *Client) CreateInstance(ctx context.Context, name string, settings instance.Settings) (*instance.ProvisionResult, error) {
	tree, err := c.do(ctx, "create", http.MethodPost, "/instance/create", name, c.cfg.CreateTimeout, c.createBody(name, settings))
	if err != nil {
		return nil, err
	}

	res := &instance.ProvisionResult{
		Name:       firstNonEmpty(utils.PickString(tree, "instanceName"), name),
		InstanceID: utils.PickString(tree, "instanceId"),
		Status:     instance.StatusCreated,
		State:      utils.PickString(tree, "status", "state"),
		Token:      utils.PickString(tree, "hash", "apikey", "token"),
	}
	if cred, ok := credentialFrom(name, tree); ok {
		res.Pairing = &cred
	}
	return res, nil
}

func (c *Client) ConnectInstance(ctx context.Context, name, number string) (*instance.ProvisionResult, error) {
	path := "/instance/connect/" + url.PathEscape(name)
	if number != "" {
		path += "?number=" + url.QueryEscape(number)
	}

	tree, err := c.do(ctx, "connect", http.MethodGet, path, name, c.cfg.ConnectTimeout, nil)
	if err != nil {
		return nil, err
	}

	res := &instance.ProvisionResult{
		Name:  name,
		State: utils.PickString(tree, "state", "status", "connectionState"),
	}
	if cred, ok := credentialFrom(name, tree); ok {
		res.Pairing = &cred
		res.Status = instance.StatusQRReady
	} else {
		res.Status = instance.ParseState(res.State)
	}
	return res, nil
}

func (c *Client) DeleteInstance(ctx context.Context, name string) error {
	_, err := c.do(ctx, "delete", http.MethodDelete, "/instance/delete/"+url.PathEscape(name), name, c.cfg.DefaultTimeout, nil)
	return err
}

func (c *Client) LogoutInstance(ctx context.Context, name string) error {
	_, err := c.do(ctx, "logout", http.MethodDelete, "/instance/logout/"+url.PathEscape(name), name, c.cfg.DefaultTimeout, nil)
	return err
}

func (c *Client) RestartInstance(ctx context.Context, name string) error {
	_, err := c.do(ctx, "restart", http.MethodPost, "/instance/restart/"+url.PathEscape(name), name, c.cfg.DefaultTimeout, nil)
	return err
}

// ConnectionState returns the gateway's raw state string ("open", "close", ...).
func (c *Client) ConnectionState(ctx context.Context, name string) (string, error) {
	tree, err := c.do(ctx, "connectionState", http.MethodGet, "/instance/connectionState/"+url.PathEscape(name), name, c.cfg.ConnectTimeout, nil)
	if err != nil {
		return "", err
	}
	return utils.PickString(tree, "state", "status", "connectionState"), nil
}

func (c *Client) SetPresence(ctx context.Context, name string, presence instance.Presence) error {
	if !presence.Valid() {
		return pkgError.InvalidPresenceError(presence)
	}
	body := map[string]string{"presence": string(presence)}
	_, err := c.do(ctx, "setPresence", http.MethodPost, "/instance/setPresence/"+url.PathEscape(name), name, c.cfg.DefaultTimeout, body)
	return err
}

func (c *Client) SendText(ctx context.Context, name, recipient, text string) (*instance.SentMessage, error) {
	body := map[string]string{"number": recipient, "text": text}
	tree, err := c.do(ctx, "sendText", http.MethodPost, "/message/sendText/"+url.PathEscape(name), name, c.cfg.DefaultTimeout, body)
	if err != nil {
		return nil, err
	}
	return &instance.SentMessage{
		ID:        utils.PickString(tree, "id"),
		RemoteJID: utils.PickString(tree, "remoteJid"),
		Status:    utils.PickString(tree, "status"),
	}, nil
}

// FetchQRCode reads the artifact from the dedicated qrcode endpoint that
// older gateway releases expose.
func (c *Client) FetchQRCode(ctx context.Context, name string) (pairing.Credential, bool, error) {
	tree, err := c.do(ctx, "qrcode", http.MethodGet, "/instance/qrcode/"+url.PathEscape(name), name, c.cfg.ConnectTimeout, nil)
	if err != nil {
		return pairing.Credential{}, false, err
	}
	cred, ok := credentialFrom(name, tree)
	return cred, ok, nil
}

// FetchInstance reads the artifact embedded in the instance listing.
func (c *Client) FetchInstance(ctx context.Context, name string) (pairing.Credential, bool, error) {
	path := "/instance/fetchInstances?instanceName=" + url.QueryEscape(name)
	tree, err := c.do(ctx, "fetchInstances", http.MethodGet, path, name, c.cfg.ConnectTimeout, nil)
	if err != nil {
		return pairing.Credential{}, false, err
	}
	cred, ok := credentialFrom(name, tree)
	return cred, ok, nil
}

func (c *Client) do(ctx context.Context, op, method, path, name string, timeout time.Duration, body any) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	started := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		logrus.WithFields(logrus.Fields{"instance": name, "op": op}).WithError(err).Warn("[GATEWAY] request failed")
		return nil, &pkgError.RemoteUnavailableError{Op: op, Err: err}
	}

	logrus.WithFields(logrus.Fields{
		"instance": name,
		"op":       op,
		"status":   resp.StatusCode(),
		"elapsed":  time.Since(started).String(),
	}).Debug("[GATEWAY] request done")

	tree := utils.DecodeAny(resp.Body())
	if err := classify(op, name, resp.StatusCode(), string(resp.Body()), tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func (c *Client) createBody(name string, s instance.Settings) createRequest {
	req := createRequest{
		InstanceName:    name,
		Token:           s.Token,
		QRCode:          s.QRCode,
		Number:          s.Number,
		Integration:     c.cfg.Integration,
		RejectCall:      s.RejectCall,
		MsgCall:         s.MsgCall,
		GroupsIgnore:    s.GroupsIgnore,
		AlwaysOnline:    s.AlwaysOnline,
		ReadMessages:    s.ReadMessages,
		ReadStatus:      s.ReadStatus,
		SyncFullHistory: s.SyncFullHistory,
	}

	wh := s.Webhook
	if wh == nil {
		wh = c.cfg.Webhook
	}
	if wh != nil && wh.URL != "" {
		req.Webhook = &webhookRequest{
			URL:      wh.URL,
			ByEvents: wh.ByEvents,
			Base64:   wh.Base64,
			Events:   wh.Events,
		}
	}
	return req
}

func credentialFrom(name string, tree any) (pairing.Credential, bool) {
	return pairing.NewCredential(name,
		utils.PickString(tree, "base64", "qrcode", "qr", "qr_code", "qrCode"),
		utils.PickString(tree, "code"),
		utils.PickString(tree, "pairingCode", "pair_code", "paircode"),
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
