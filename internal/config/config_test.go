package config

import "testing"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TELEGRAM_BOT_TOKEN", "DATABASE_URL", "REDIS_URL", "API_KEY",
		"MARKET_DATA_BASE_URL", "MARKET_DATA_API_KEY",
		"BAR_POLL_SECS", "FORECAST_POLL_SECS", "VERIFIER_POLL_SECS",
		"FORECAST_CACHE_SECS", "HISTORY_DAYS", "MCP_TRANSPORT",
		"SSH_PORT", "SSH_HOST_KEY_PATH",
		"OPENAI_API_KEY", "OPENAI_MODEL", "ADVISOR_MAX_HISTORY",
		"DECAY_MAX_HOURS_BEFORE", "DECAY_MIN_FACTOR", "WEIGHT_OVERRIDES",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	if cfg.RedisURL != "localhost:6379" {
		t.Fatalf("expected default redis url, got %s", cfg.RedisURL)
	}
	if cfg.MarketDataBaseURL != "https://api.twelvedata.com" {
		t.Fatalf("expected default market data base url, got %s", cfg.MarketDataBaseURL)
	}
	if cfg.BarPollSecs != 60 || cfg.ForecastPollSecs != 300 || cfg.VerifierPollSecs != 120 {
		t.Fatalf("unexpected poll defaults: %+v", cfg)
	}
	if cfg.MCPTransport != "stdio" {
		t.Fatalf("expected stdio MCP transport, got %s", cfg.MCPTransport)
	}
	if cfg.SSHPort != 2222 || cfg.SSHHostKeyPath != ".ssh/daily_bias_host_key" {
		t.Fatalf("unexpected SSH defaults: %+v", cfg)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" || cfg.AdvisorMaxHistory != 20 {
		t.Fatalf("unexpected advisor defaults: %+v", cfg)
	}
	if cfg.DecayMaxHoursBefore != 6 || cfg.DecayMinFactor != 0.5 {
		t.Fatalf("unexpected decay defaults: %+v", cfg)
	}
}

func TestLoadWithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis:6379")
	t.Setenv("MARKET_DATA_API_KEY", "td-key")
	t.Setenv("BAR_POLL_SECS", "30")
	t.Setenv("DECAY_MIN_FACTOR", "0.25")
	t.Setenv("WEIGHT_OVERRIDES", `{"daily_open_midnight": 0.09}`)

	cfg := Load()
	if cfg.TelegramBotToken != "token" || cfg.DatabaseURL != "postgres://example" || cfg.RedisURL != "redis:6379" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.MarketDataAPIKey != "td-key" {
		t.Fatalf("expected market data key, got %s", cfg.MarketDataAPIKey)
	}
	if cfg.BarPollSecs != 30 {
		t.Fatalf("expected bar poll secs 30, got %d", cfg.BarPollSecs)
	}
	if cfg.DecayMinFactor != 0.25 {
		t.Fatalf("expected decay min factor 0.25, got %v", cfg.DecayMinFactor)
	}
	if cfg.WeightOverrides == "" {
		t.Fatal("expected weight overrides to pass through")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("BAR_POLL_SECS", "bad")
	t.Setenv("DECAY_MIN_FACTOR", "1.5")
	t.Setenv("MCP_TRANSPORT", "websocket")

	cfg := Load()
	if cfg.BarPollSecs != 60 {
		t.Fatalf("invalid poll secs should fall back to default, got %d", cfg.BarPollSecs)
	}
	if cfg.DecayMinFactor != 0.5 {
		t.Fatalf("out-of-range decay factor should fall back, got %v", cfg.DecayMinFactor)
	}
	if cfg.MCPTransport != "stdio" {
		t.Fatalf("unsupported transport should fall back to stdio, got %s", cfg.MCPTransport)
	}
}
