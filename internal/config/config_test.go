package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.APIPort)
	assert.Equal(t, "healthe", cfg.MongoDatabase)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 5, cfg.LoginMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.LoginWindow)
	assert.Equal(t, "healthe.events", cfg.EventsExchange)
	assert.False(t, cfg.DemoAccountsEnabled)
}

func TestLoadConfig_DemoAccounts(t *testing.T) {
	cases := []struct {
		name     string
		env      string
		password string
		wantErr  string
	}{
		{name: "enabled in development", env: "development", password: "mot-de-passe-demo"},
		{name: "refused in production", env: "production", password: "mot-de-passe-demo", wantErr: "APP_ENV=production"},
		{name: "password required", env: "development", wantErr: "DEMO_ACCOUNT_PASSWORD"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)

			t.Setenv("MONGO_URI", "mongodb://localhost:27017")
			t.Setenv("JWT_SECRET", "secret")
			t.Setenv("APP_ENV", tc.env)
			t.Setenv("DEMO_ACCOUNTS_ENABLED", "true")
			t.Setenv("DEMO_ACCOUNT_PASSWORD", tc.password)

			cfg, err := LoadConfig()
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, cfg.DemoAccountsEnabled)
			assert.Equal(t, tc.password, cfg.DemoAccountPassword)
		})
	}
}

func TestLoadConfig_PortOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("API_PORT", "9000")
	t.Setenv("PORT", "3000")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.APIPort)
}

func TestLoadConfig_FailsWithoutJWTSecret(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "JWT_SECRET"), "got %v", err)
}

func TestConfig_Origins(t *testing.T) {
	cfg := Config{AllowedOrigins: " https://a.example , ,https://b.example"}
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Origins())
}
