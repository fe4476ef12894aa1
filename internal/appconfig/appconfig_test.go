package appconfig

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresAppIDAndSecretKey(t *testing.T) {
	t.Setenv("TAPLINK_APP_ID", "")
	t.Setenv("TAPLINK_SECRET_KEY", "")
	os.Unsetenv("TAPLINK_APP_ID")
	os.Unsetenv("TAPLINK_SECRET_KEY")

	_, err := Load(InitOptions{})
	require.Error(t, err, "expected an error when appId/secretKey are unset")
}

func TestLoadOverrideTakesPrecedenceOverEnv(t *testing.T) {
	t.Setenv("TAPLINK_APP_ID", "from-env")
	t.Setenv("TAPLINK_SECRET_KEY", "from-env-secret")
	t.Setenv("TAPLINK_VERSION", "")
	os.Unsetenv("TAPLINK_VERSION")

	opts, err := Load(InitOptions{AppID: "from-override"})
	require.NoError(t, err)
	assert.Equal(t, "from-override", opts.AppID, "expected override to win")
	assert.Equal(t, "from-env-secret", opts.SecretKey, "expected env secret key to be used")
	assert.Equal(t, defaultVersion, opts.Version)
}

func TestEffectiveFieldsRedactsSecretKey(t *testing.T) {
	opts := InitOptions{AppID: "a", SecretKey: "s3cr3t", Version: "1.0"}
	fields := EffectiveFields(opts)
	for _, f := range fields {
		if f.Key == "secret_key" {
			assert.NotEqual(t, "s3cr3t", f.Value, "secret_key must be redacted in EffectiveFields")
		}
	}
}
