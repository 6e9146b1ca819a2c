package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/AzielCF/az-relay/channel/domain/event"
	"github.com/AzielCF/az-relay/channel/domain/instance"
	"github.com/AzielCF/az-relay/channel/domain/pairing"
	crmDomain "github.com/AzielCF/az-relay/crm/domain"
	"github.com/AzielCF/az-relay/pkg/notify"
	"github.com/sirupsen/logrus"
)

// DispatcherService turns webhook envelopes into cache updates and
// ingestion calls. It never fails the webhook: every problem ends up in
// the returned DispatchResult and the logs.
type DispatcherService struct {
	statuses instance.StatusStore
	pairings pairing.Store
	ingest   crmDomain.IIngestUsecase
	notifier notify.Notifier
	ttl      time.Duration
	now      func() time.Time
}

func NewDispatcherService(statuses instance.StatusStore, pairings pairing.Store, ingest crmDomain.IIngestUsecase, notifier notify.Notifier, pairingTTL time.Duration) *DispatcherService {
	if pairingTTL <= 0 {
		pairingTTL = 45 * time.Second
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &DispatcherService{
		statuses: statuses,
		pairings: pairings,
		ingest:   ingest,
		notifier: notifier,
		ttl:      pairingTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var _ event.IDispatcherUsecase = (*DispatcherService)(nil)

func (d *DispatcherService) Dispatch(ctx context.Context, env event.Envelope) event.DispatchResult {
	ev := event.Parse(env)
	res := event.DispatchResult{Event: string(ev.Tag()), Instance: ev.InstanceName(), Handled: true}

	if res.Instance == "" {
		if _, unknown := ev.(event.Unrecognized); !unknown {
			res.Handled = false
			res.Reason = "missing instance name"
			logrus.Warnf("[WEBHOOK] %s without instance name ignored", res.Event)
			return res
		}
	}

	switch e := ev.(type) {
	case event.QRCodeUpdated:
		cred := e.Credential.Stamp(d.now(), d.ttl)
		cred.Instance = e.Instance
		cred.Source = "webhook"
		if err := d.pairings.Save(ctx, cred, d.ttl); err != nil {
			logrus.Warnf("[WEBHOOK] Failed to cache pairing for %s: %v", e.Instance, err)
		}
		d.notifier.Notify(ctx, notify.Notification{Type: notify.TypeInstancePairing, Instance: e.Instance, Time: d.now(), Data: cred})
		d.setStatus(ctx, e.Instance, instance.StatusQRReady)

	case event.ConnectionUpdate:
		status := instance.ParseState(e.State)
		if status == instance.StatusConnected {
			if err := d.pairings.Delete(ctx, e.Instance); err != nil {
				logrus.Warnf("[WEBHOOK] Failed to drop pairing for %s: %v", e.Instance, err)
			}
		}
		d.setStatus(ctx, e.Instance, status)

	case event.MessagesUpsert:
		for _, rec := range e.Records {
			if rec.Err != nil {
				res.Failed++
				logrus.Warnf("[WEBHOOK] Skipping record for %s: %v", e.Instance, rec.Err)
				continue
			}
			outcome, err := d.ingestOne(ctx, e.Instance, rec.Message)
			switch {
			case err != nil:
				res.Failed++
				logrus.Errorf("[WEBHOOK] Ingest failed for %s message %s: %v", e.Instance, rec.Message.ProviderMessageID, err)
			case outcome == crmDomain.OutcomeStored:
				res.Processed++
			default:
				res.Skipped++
			}
		}

	case event.MessageStatusUpdate, event.PresenceUpdate:
		logrus.Debugf("[WEBHOOK] %s for %s acknowledged", e.Tag(), e.InstanceName())

	case event.Unrecognized:
		res.Reason = e.Reason
		if res.Reason == "" {
			res.Reason = "unsupported event"
		}
		logrus.Debugf("[WEBHOOK] Ignoring %q for %s: %s", e.Raw, e.Instance, res.Reason)
	}

	return res
}

// ingestOne keeps a panicking record from taking the rest of the batch down.
func (d *DispatcherService) ingestOne(ctx context.Context, name string, msg crmDomain.InboundMessage) (outcome crmDomain.IngestOutcome, err error) {
	if d.ingest == nil {
		return crmDomain.OutcomeDiscarded, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during ingest: %v", r)
		}
	}()
	result, err := d.ingest.Ingest(ctx, name, msg)
	if err != nil {
		return "", err
	}
	return result.Outcome, nil
}

func (d *DispatcherService) setStatus(ctx context.Context, name string, status instance.Status) {
	if err := d.statuses.Save(ctx, instance.Instance{Name: name, Status: status, LastUpdate: d.now()}); err != nil {
		logrus.Warnf("[WEBHOOK] Failed to cache status for %s: %v", name, err)
	}
	d.notifier.Notify(ctx, notify.Notification{
		Type:     notify.TypeInstanceStatus,
		Instance: name,
		Time:     d.now(),
		Data:     map[string]any{"status": status},
	})
}
