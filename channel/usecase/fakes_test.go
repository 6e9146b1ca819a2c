package usecase

import (
	"context"
	"sync"

	"github.com/AzielCF/az-relay/channel/domain/instance"
	"github.com/AzielCF/az-relay/channel/domain/pairing"
	crmDomain "github.com/AzielCF/az-relay/crm/domain"
	"github.com/AzielCF/az-relay/pkg/notify"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls map[string]int

	createFn  func(name string, s instance.Settings) (*instance.ProvisionResult, error)
	connectFn func(name, number string) (*instance.ProvisionResult, error)
	stateFn   func(name string) (string, error)
	logoutErr error
	deleteErr error
	sent      []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{calls: map[string]int{}}
}

func (f *fakeProvider) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
}

func (f *fakeProvider) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeProvider) CreateInstance(_ context.Context, name string, s instance.Settings) (*instance.ProvisionResult, error) {
	f.record("create")
	if f.createFn != nil {
		return f.createFn(name, s)
	}
	return &instance.ProvisionResult{Name: name, Status: instance.StatusCreated}, nil
}

func (f *fakeProvider) ConnectInstance(_ context.Context, name, number string) (*instance.ProvisionResult, error) {
	f.record("connect")
	if f.connectFn != nil {
		return f.connectFn(name, number)
	}
	return &instance.ProvisionResult{Name: name, State: "open"}, nil
}

func (f *fakeProvider) DeleteInstance(context.Context, string) error {
	f.record("delete")
	return f.deleteErr
}

func (f *fakeProvider) LogoutInstance(context.Context, string) error {
	f.record("logout")
	return f.logoutErr
}

func (f *fakeProvider) RestartInstance(context.Context, string) error {
	f.record("restart")
	return nil
}

func (f *fakeProvider) ConnectionState(_ context.Context, name string) (string, error) {
	f.record("state")
	if f.stateFn != nil {
		return f.stateFn(name)
	}
	return "open", nil
}

func (f *fakeProvider) SetPresence(context.Context, string, instance.Presence) error {
	f.record("presence")
	return nil
}

func (f *fakeProvider) SendText(_ context.Context, _, recipient, text string) (*instance.SentMessage, error) {
	f.record("send")
	f.mu.Lock()
	f.sent = append(f.sent, recipient+":"+text)
	f.mu.Unlock()
	return &instance.SentMessage{ID: "out-1", RemoteJID: recipient}, nil
}

type fakeSource struct {
	qrCalls, fetchCalls int
	qr                  *pairing.Credential
	fetch               *pairing.Credential
	err                 error
}

func (f *fakeSource) FetchQRCode(context.Context, string) (pairing.Credential, bool, error) {
	f.qrCalls++
	if f.qr != nil {
		return *f.qr, true, nil
	}
	return pairing.Credential{}, false, f.err
}

func (f *fakeSource) FetchInstance(context.Context, string) (pairing.Credential, bool, error) {
	f.fetchCalls++
	if f.fetch != nil {
		return *f.fetch, true, nil
	}
	return pairing.Credential{}, false, nil
}

type fakeIngester struct {
	outcomes map[string]crmDomain.IngestOutcome
	errs     map[string]error
	panicOn  string
	seen     []string
}

func (f *fakeIngester) Ingest(_ context.Context, _ string, msg crmDomain.InboundMessage) (crmDomain.IngestResult, error) {
	f.seen = append(f.seen, msg.ProviderMessageID)
	if msg.ProviderMessageID == f.panicOn {
		panic("boom")
	}
	if err := f.errs[msg.ProviderMessageID]; err != nil {
		return crmDomain.IngestResult{}, err
	}
	outcome, ok := f.outcomes[msg.ProviderMessageID]
	if !ok {
		outcome = crmDomain.OutcomeStored
	}
	return crmDomain.IngestResult{Outcome: outcome}, nil
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []notify.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recordingNotifier) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.got))
	for _, n := range r.got {
		out = append(out, n.Type)
	}
	return out
}

func qrCredential(name string) pairing.Credential {
	cred, _ := pairing.NewCredential(name, "iVBORw0KGgo=", "", "")
	return cred
}
