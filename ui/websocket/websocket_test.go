package websocket

import (
	"context"
	"errors"
	"testing"

	"github.com/AzielCF/az-relay/channel/domain/instance"
	"github.com/AzielCF/az-relay/channel/domain/pairing"
	"github.com/AzielCF/az-relay/pkg/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLifecycle struct {
	instance.ILifecycleUsecase
	list []instance.Instance
}

func (s stubLifecycle) List(context.Context) ([]instance.Instance, error) {
	return s.list, nil
}

type stubPairing struct {
	cred pairing.Credential
	err  error
}

func (s stubPairing) GetPairingCredential(context.Context, string, bool) (pairing.Credential, error) {
	return s.cred, s.err
}

func TestNotifierQueuesBroadcast(t *testing.T) {
	Notifier{}.Notify(context.Background(), notify.Notification{
		Type:     notify.TypeInstanceStatus,
		Instance: "sofia-1",
		Data:     map[string]any{"status": "connected"},
	})

	select {
	case msg := <-Broadcast:
		assert.Equal(t, "INSTANCE_STATUS", msg.Code)
		assert.Equal(t, "sofia-1", msg.Instance)
	default:
		t.Fatal("expected a queued broadcast")
	}
}

func TestHandleRequest(t *testing.T) {
	ctx := context.Background()
	lc := stubLifecycle{list: []instance.Instance{{Name: "sofia-1", Status: instance.StatusConnected}}}

	reply, ok := handleRequest(ctx, lc, stubPairing{}, BroadcastMessage{Code: "fetch_instances"})
	require.True(t, ok)
	assert.Equal(t, "LIST_INSTANCES", reply.Code)
	assert.Len(t, reply.Result, 1)

	cred := pairing.Credential{Instance: "sofia-1", Payload: "data:image/png;base64,AAA", Kind: pairing.KindQR}
	reply, ok = handleRequest(ctx, lc, stubPairing{cred: cred}, BroadcastMessage{Code: "FETCH_PAIRING", Instance: "sofia-1"})
	require.True(t, ok)
	assert.Equal(t, "PAIRING", reply.Code)
	assert.Equal(t, cred, reply.Result)

	reply, ok = handleRequest(ctx, lc, stubPairing{err: errors.New("no pairing credential available")}, BroadcastMessage{Code: "FETCH_PAIRING", Instance: "sofia-1"})
	require.True(t, ok)
	assert.Equal(t, "ERROR", reply.Code)

	_, ok = handleRequest(ctx, lc, stubPairing{}, BroadcastMessage{Code: "PING"})
	assert.False(t, ok)
}
