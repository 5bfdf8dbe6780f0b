package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
api:
  environment: test
  port: "9090"
  jwtsigningkey: secret
  adminemail: admin@rally.test
  allowedcorsdomains:
    - http://localhost:5173
stripe:
  publishablekey: pk_test_1
postgres:
  user: rally
  db: rally
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("STRIPE_SECRETKEY", "sk_test_env")

	conf, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "test", conf.API.Environment)
	assert.Equal(t, "9090", conf.API.Port)
	assert.Equal(t, "/", conf.API.HomeURL)
	assert.Equal(t, "UTC", conf.API.TimeZone)
	assert.Equal(t, "admin@rally.test", conf.API.AdminEmail())
	assert.Equal(t, []string{"http://localhost:5173"}, conf.API.AllowedCORSDomains())
	assert.Equal(t, "sk_test_env", conf.Stripe.SecretKey)
	assert.Equal(t, "usd", conf.Stripe.Currency)
	assert.Equal(t, "host=localhost port=5432 user=rally password= dbname=rally sslmode=disable", conf.Postgres.DSN())
}

func TestLoad_RequiresSigningKey(t *testing.T) {
	_, err := Load(writeConfig(t, "api:\n  port: \"1\"\n"))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestAPIConfig_AdminEmailIsNormalized(t *testing.T) {
	conf := &APIConfig{}
	conf.SetAdminEmail("  Admin@Rally.Test ")
	assert.Equal(t, "admin@rally.test", conf.AdminEmail())
}
