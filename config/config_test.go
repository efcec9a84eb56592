package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultQualityThresholds(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 1500, cfg.Quality.MinWords)
	assert.Equal(t, 4, cfg.Quality.MinHeadings)
	assert.Equal(t, 3, cfg.Quality.MinDataPoints)
	assert.Equal(t, 2, cfg.Quality.MinKeyInsights)
	assert.Equal(t, 2, cfg.Quality.MinSources)
	assert.Equal(t, 70, cfg.Quality.PublishThreshold)
	assert.Equal(t, 7*24*time.Hour, cfg.Search.DedupWindow)
}

func TestApplyEnvOverridesOnlyNonEmpty(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = "from-file"

	applyEnv(cfg, &envOverlay{
		DBType:       "postgres",
		OpenAIAPIKey: "sk-openai",
		LLMAPIKey:    "sk-gateway",
		SiteURL:      "https://finance.example.com",
	})

	assert.Equal(t, "postgres", cfg.Database.Type)
	// LLM_API_KEY 优先于 OPENAI_API_KEY
	assert.Equal(t, "sk-gateway", cfg.LLM.APIKey)
	assert.Equal(t, "https://finance.example.com", cfg.Server.SiteURL)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestWriteDSNFallsBackToDSN(t *testing.T) {
	d := DatabaseConfig{DSN: "anon"}
	assert.Equal(t, "anon", d.WriteDSN())

	d.ServiceDSN = "service"
	assert.Equal(t, "service", d.WriteDSN())
}
