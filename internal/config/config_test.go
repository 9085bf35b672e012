package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so host settings do not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "DB_DRIVER", "MONGO_URL", "DB_NAME", "SQLITE_PATH", "CORS_ORIGINS",
		"AI_PROVIDER", "GEMINI_API_KEY", "GEMINI_API",
		"ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "Model", "ARK_BASE_URL", "ARK_REGION",
		"ARK_TEMPERATURE", "ARK_TOP_P", "ARK_MAX_TOKENS",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, DriverMongo, cfg.Database.Driver)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Database.MongoURL)
	assert.Equal(t, "test_database", cfg.Database.Name)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, ProviderGemini, cfg.AI.Provider)
	assert.Equal(t, "test-key", cfg.AI.GeminiAPIKey)
	assert.Equal(t, defaultGeminiEndpoint, cfg.AI.GeminiEndpoint)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadMissingGeminiKeyIsFatal(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestLoadArkProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_PROVIDER", "ark")
	t.Setenv("ARK_API_KEY", "ark-key")
	t.Setenv("Model", "doubao-pro")
	t.Setenv("ARK_TEMPERATURE", "0.3")
	t.Setenv("ARK_MAX_TOKENS", "512")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderArk, cfg.AI.Provider)
	assert.True(t, cfg.AI.ArkEnabled())
	require.NotNil(t, cfg.AI.Temperature)
	assert.InDelta(t, 0.3, *cfg.AI.Temperature, 1e-9)
	require.NotNil(t, cfg.AI.MaxTokens)
	assert.Equal(t, 512, *cfg.AI.MaxTokens)
}

func TestLoadArkProviderWithoutCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_PROVIDER", "ark")
	t.Setenv("Model", "doubao-pro")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_PROVIDER", "oracle")
	t.Setenv("GEMINI_API_KEY", "test-key")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("DB_DRIVER", "cassandra")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsMalformedNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("ARK_TOP_P", "high")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadServerAddr(t *testing.T) {
	cases := map[string]struct {
		port    string
		want    string
		wantErr bool
	}{
		"bare port":   {port: "9000", want: ":9000"},
		"colon port":  {port: ":9001", want: ":9001"},
		"host port":   {port: "127.0.0.1:9002", want: "127.0.0.1:9002"},
		"with spaces": {port: "90 00", wantErr: true},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("PORT", tc.port)
			got, err := loadServerConfig()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Addr)
		})
	}
}

func TestLoadCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")

	got := loadCORSConfig()
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, got.AllowedOrigins)
}
