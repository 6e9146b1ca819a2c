package pairing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCredential(t *testing.T) {
	cred, ok := NewCredential("sofia-1", "data:image/png;base64,AAA", "2@abc", "WZYEH1YY")
	require.True(t, ok)
	assert.Equal(t, KindQR, cred.Kind)
	assert.Equal(t, "data:image/png;base64,AAA", cred.Payload)
	assert.Equal(t, "WZYEH1YY", cred.PairingCode)

	cred, ok = NewCredential("sofia-1", "iVBORw0KGgo", "", "")
	require.True(t, ok)
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo", cred.Payload)

	cred, ok = NewCredential("sofia-1", "", "2@abc,def,ghi", "")
	require.True(t, ok)
	assert.Equal(t, KindQR, cred.Kind)
	assert.True(t, strings.HasPrefix(cred.Payload, "data:image/png;base64,"))

	cred, ok = NewCredential("sofia-1", "", "", "12345678")
	require.True(t, ok)
	assert.Equal(t, KindCode, cred.Kind)
	assert.Equal(t, "12345678", cred.Payload)

	_, ok = NewCredential("sofia-1", " ", "", "")
	assert.False(t, ok)
}

func TestCredentialFresh(t *testing.T) {
	now := time.Now()
	cred, _ := NewCredential("sofia-1", "", "", "1234")
	cred = cred.Stamp(now, 45*time.Second)

	assert.True(t, cred.Fresh(now.Add(44*time.Second)))
	assert.False(t, cred.Fresh(now.Add(45*time.Second)))
}

func stub(label string, cred Credential, found bool, err error, calls *[]string) Resolver {
	return ResolverFunc{Label: label, Fn: func(ctx context.Context, name string) (Credential, bool, error) {
		*calls = append(*calls, label)
		return cred, found, err
	}}
}

func TestFirstSuccess_StopsAtFirstFound(t *testing.T) {
	var calls []string
	chain := FirstSuccess(
		stub("broken", Credential{}, false, errors.New("500"), &calls),
		stub("empty", Credential{}, false, nil, &calls),
		stub("good", Credential{Payload: "1234"}, true, nil, &calls),
		stub("never", Credential{Payload: "x"}, true, nil, &calls),
	)

	cred, found, err := chain.Resolve(context.Background(), "sofia-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1234", cred.Payload)
	assert.Equal(t, "resolver:good", cred.Source)
	assert.Equal(t, []string{"broken", "empty", "good"}, calls)
}

func TestFirstSuccess_AllFail(t *testing.T) {
	var calls []string
	chain := FirstSuccess(
		stub("a", Credential{}, false, errors.New("timeout"), &calls),
		stub("b", Credential{}, true, nil, &calls), // found but empty payload
	)

	_, found, err := chain.Resolve(context.Background(), "sofia-1")
	assert.False(t, found)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a: timeout")
	assert.Len(t, calls, 2)
}
