package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestResolve(t *testing.T) {
	keyring.MockInit()
	svc := NewService()
	require.NoError(t, svc.SetPassword("prod-mongo", "hunter2"))

	t.Run("plain value passes through", func(t *testing.T) {
		got, err := svc.Resolve("plain-secret")
		require.NoError(t, err)
		assert.Equal(t, "plain-secret", got)
	})

	t.Run("empty value passes through", func(t *testing.T) {
		got, err := svc.Resolve("")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("keyring reference", func(t *testing.T) {
		got, err := svc.Resolve("keyring:prod-mongo")
		require.NoError(t, err)
		assert.Equal(t, "hunter2", got)
	})

	t.Run("missing account", func(t *testing.T) {
		_, err := svc.Resolve("keyring:unknown")
		assert.Error(t, err)
	})

	t.Run("empty account", func(t *testing.T) {
		_, err := svc.Resolve("keyring:")
		assert.Error(t, err)
	})
}

func TestDeletePassword(t *testing.T) {
	keyring.MockInit()
	svc := NewService()
	require.NoError(t, svc.SetPassword("acct", "pw"))
	require.NoError(t, svc.DeletePassword("acct"))
	assert.NoError(t, svc.DeletePassword("acct"), "deleting twice is not an error")

	_, err := svc.Resolve("keyring:acct")
	assert.Error(t, err)
}
