package taplink

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRequiresAppIDAndSecretKey(t *testing.T) {
	dir := t.TempDir()
	_, err := Init(InitOptions{StateDir: dir})
	require.Error(t, err, "expected Init to fail without appId/secretKey")
}

func TestInitWiresClientAndDefaultsToDisconnected(t *testing.T) {
	dir := t.TempDir()
	c, err := Init(InitOptions{
		AppID:     "test-app",
		SecretKey: "test-secret",
		StateDir:  dir,
		LogLevel:  "error",
	})
	require.NoError(t, err)
	defer c.Close()

	assert.False(t, c.IsConnected(), "expected a freshly initialized client to be disconnected")
	assert.Empty(t, c.DeviceID())
}

func TestInitCreatesStateDBUnderStateDir(t *testing.T) {
	dir := t.TempDir()
	c, err := Init(InitOptions{
		AppID:     "test-app",
		SecretKey: "test-secret",
		StateDir:  dir,
		LogLevel:  "error",
	})
	require.NoError(t, err)
	defer c.Close()

	err = c.store.SetKV(context.Background(), "probe", "1")
	assert.NoError(t, err, "expected store to be usable")
	assert.FileExists(t, filepath.Join(dir, "taplink.db"), "expected the state database under StateDir")
}

func TestDeliverAppToAppDoesNotPanicWithoutDispatcher(t *testing.T) {
	dir := t.TempDir()
	c, err := Init(InitOptions{
		AppID:     "test-app",
		SecretKey: "test-secret",
		StateDir:  dir,
		LogLevel:  "error",
	})
	require.NoError(t, err)
	defer c.Close()

	c.DeliverAppToApp([]byte(`{"unsolicited":true}`))
}
