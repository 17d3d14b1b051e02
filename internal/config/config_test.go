package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadResolvesEnvironment(t *testing.T) {
	t.Setenv("REVIZOR_JWT_SECRET", "test-secret")
	t.Setenv("REVIZOR_OPENAI_API_KEY", "sk-test")
	t.Setenv("REVIZOR_DATABASE_URL", "postgres://localhost/revizor")
	t.Setenv("REVIZOR_TASK_CACHE_TTL", "2m")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "test-secret", cfg.JWTSecret)
	require.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	require.Equal(t, "postgres://localhost/revizor", cfg.DatabaseURL)
	require.Equal(t, 2*time.Minute, cfg.TaskCacheTTL)

	require.Equal(t, "Revizor API", cfg.AppName)
	require.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	require.Equal(t, 90*time.Second, cfg.JudgeTimeout)
	require.Equal(t, ":8080", cfg.HTTPAddress())
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("REVIZOR_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}
