package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, StoreAPI, cfg.Store.Backend)
	assert.Equal(t, 30, cfg.Courses.DefaultMaxSeats)
	assert.Equal(t, 75.0, cfg.Courses.ApprovalThreshold)
	assert.Equal(t, "America/Santiago", cfg.Courses.Timezone)
	assert.Equal(t, "data/registros.csv", cfg.Blob.RecordsPath)
	assert.Equal(t, 15*time.Second, cfg.Remote.Timeout)
	assert.False(t, cfg.Reports.CacheEnabled)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("STORE_BACKEND", "Postgres")
	v.Set("DEFAULT_MAX_SEATS", 0)
	v.Set("REMOTE_API_TIMEOUT", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "https://a.cl, ,https://b.cl")

	cfg := fromViper(v)
	assert.Equal(t, StorePostgres, cfg.Store.Backend)
	assert.Equal(t, 30, cfg.Courses.DefaultMaxSeats)
	assert.Equal(t, 15*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, []string{"https://a.cl", "https://b.cl"}, cfg.CORS.AllowedOrigins)
}

func TestValidateRejectsDefaultSecretsInProduction(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)
	require.NoError(t, cfg.Validate())

	cfg.Env = EnvProduction
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	cfg.JWT.Secret = "a-real-secret"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REPORTS_SIGNED_URL_SECRET")

	cfg.Reports.SignedURLSecret = "another-real-secret"
	assert.NoError(t, cfg.Validate())
}

func TestLoadRefusesDefaultJWTSecretInProduction(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("ENV", EnvProduction)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("REPORTS_SIGNED_URL_SECRET", "signing")

	_, err = Load()
	require.Error(t, err)
}
