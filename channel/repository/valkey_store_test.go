package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/AzielCF/az-relay/channel/domain/instance"
	"github.com/AzielCF/az-relay/channel/domain/pairing"
	"github.com/AzielCF/az-relay/infrastructure/valkey"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestValkey connects to VALKEY_TEST_ADDRESS; the tests skip without it.
func newTestValkey(t *testing.T) *valkey.Client {
	t.Helper()
	addr := os.Getenv("VALKEY_TEST_ADDRESS")
	if addr == "" {
		t.Skip("VALKEY_TEST_ADDRESS not set")
	}
	client, err := valkey.NewClient(valkey.Config{
		Address:   addr,
		KeyPrefix: "azrelay-test-" + uuid.NewString()[:8],
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestValkeyStatusStore(t *testing.T) {
	ctx := context.Background()
	store := NewValkeyStatusStore(newTestValkey(t), time.Minute)

	got, err := store.Get(ctx, "sofia-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Save(ctx, instance.Instance{Name: "sofia-1", Status: instance.StatusConnected, LastUpdate: time.Now().UTC()}))
	got, err = store.Get(ctx, "sofia-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, instance.StatusConnected, got.Status)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.Delete(ctx, "sofia-1"))
	got, err = store.Get(ctx, "sofia-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestValkeyPairingStore(t *testing.T) {
	ctx := context.Background()
	store := NewValkeyPairingStore(newTestValkey(t))

	cred, _ := pairing.NewCredential("sofia-1", "", "", "12345678")
	require.NoError(t, store.Save(ctx, cred.Stamp(time.Now(), time.Minute), time.Minute))

	got, err := store.Get(ctx, "sofia-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "12345678", got.Payload)

	require.NoError(t, store.Delete(ctx, "sofia-1"))
	got, err = store.Get(ctx, "sofia-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
