package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/AzielCF/az-relay/channel/domain/event"
	"github.com/AzielCF/az-relay/pkg/msgworker"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWebhookApp(d *fakeDispatcher, pool *msgworker.Pool) *fiber.App {
	app := fiber.New()
	InitRestWebhook(app, d, pool)
	return app
}

func TestWebhook_InlineDispatch(t *testing.T) {
	d := &fakeDispatcher{}
	app := newWebhookApp(d, nil)

	status, env := call(t, app, http.MethodPost, "/webhook", `{"event":"connection.update","instance":"sofia-1","data":{"state":"open"}}`)
	assert.Equal(t, http.StatusOK, status)

	var result event.DispatchResult
	require.NoError(t, json.Unmarshal(env.Results, &result))
	assert.True(t, result.Handled)
	require.Len(t, d.envelopes(), 1)
	assert.Equal(t, "sofia-1", d.envelopes()[0].Instance)
}

func TestWebhook_EventFromPath(t *testing.T) {
	d := &fakeDispatcher{}
	app := newWebhookApp(d, nil)

	status, _ := call(t, app, http.MethodPost, "/webhook/qrcode-updated", `{"instance":"sofia-1","data":{"qrcode":{"base64":"AAAA"}}}`)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, d.envelopes(), 1)
	assert.Equal(t, "qrcode-updated", d.envelopes()[0].Event)
}

func TestWebhook_BodyEventWinsOverPath(t *testing.T) {
	d := &fakeDispatcher{}
	app := newWebhookApp(d, nil)

	call(t, app, http.MethodPost, "/webhook/anything", `{"event":"MESSAGES_UPSERT","instance":"sofia-1","data":[]}`)
	require.Len(t, d.envelopes(), 1)
	assert.Equal(t, "MESSAGES_UPSERT", d.envelopes()[0].Event)
}

func TestWebhook_MalformedBodyIsAcknowledged(t *testing.T) {
	d := &fakeDispatcher{}
	app := newWebhookApp(d, nil)

	status, env := call(t, app, http.MethodPost, "/webhook", `{not json`)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	assert.Empty(t, d.envelopes())
}

func TestWebhook_AsyncQueuesIntoPool(t *testing.T) {
	d := &fakeDispatcher{done: make(chan struct{}, 1)}
	pool := msgworker.NewPool(2, 10)
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)
	app := newWebhookApp(d, pool)

	status, env := call(t, app, http.MethodPost, "/webhook", `{"event":"PRESENCE_UPDATE","instance":"sofia-1","data":{}}`)
	assert.Equal(t, http.StatusOK, status)

	var result event.DispatchResult
	require.NoError(t, json.Unmarshal(env.Results, &result))
	assert.Equal(t, "queued", result.Reason)

	select {
	case <-d.done:
	case <-time.After(2 * time.Second):
		t.Fatal("envelope never dispatched by the pool")
	}
	assert.Eventually(t, func() bool {
		return pool.GetStats().TotalProcessed == 1
	}, time.Second, 10*time.Millisecond)
}

func TestWebhook_StoppedPoolFallsBackInline(t *testing.T) {
	d := &fakeDispatcher{}
	pool := msgworker.NewPool(1, 1)
	app := newWebhookApp(d, pool)

	status, env := call(t, app, http.MethodPost, "/webhook", `{"event":"PRESENCE_UPDATE","instance":"sofia-1","data":{}}`)
	assert.Equal(t, http.StatusOK, status)

	var result event.DispatchResult
	require.NoError(t, json.Unmarshal(env.Results, &result))
	assert.Empty(t, result.Reason)
	assert.Len(t, d.envelopes(), 1)
}
