package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	TelegramBotToken string
	DatabaseURL      string
	RedisURL         string
	APIKey           string

	MarketDataBaseURL string
	MarketDataAPIKey  string
	BarPollSecs       int
	ForecastPollSecs  int
	VerifierPollSecs  int
	ForecastCacheSecs int
	HistoryDays       int

	MCPTransport string

	SSHPort        int
	SSHHostKeyPath string

	OpenAIAPIKey      string
	OpenAIModel       string
	AdvisorMaxHistory int

	DecayMaxHoursBefore float64
	DecayMinFactor      float64
	WeightOverrides     string
}

func Load() *Config {
	cfg := &Config{
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		APIKey:            os.Getenv("API_KEY"),
		MarketDataBaseURL: strings.TrimSpace(os.Getenv("MARKET_DATA_BASE_URL")),
		MarketDataAPIKey:  os.Getenv("MARKET_DATA_API_KEY"),
		WeightOverrides:   strings.TrimSpace(os.Getenv("WEIGHT_OVERRIDES")),
	}

	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.APIKey == "" {
		log.Println("Warning: API_KEY not set, API authentication is disabled")
	}
	if cfg.MarketDataBaseURL == "" {
		cfg.MarketDataBaseURL = "https://api.twelvedata.com"
	}
	if cfg.MarketDataAPIKey == "" {
		log.Println("Warning: MARKET_DATA_API_KEY not set, bar polling will fail")
	}

	cfg.BarPollSecs = 60
	if v := os.Getenv("BAR_POLL_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BarPollSecs = n
		}
	}

	cfg.ForecastPollSecs = 300
	if v := os.Getenv("FORECAST_POLL_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ForecastPollSecs = n
		}
	}

	cfg.VerifierPollSecs = 120
	if v := os.Getenv("VERIFIER_POLL_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.VerifierPollSecs = n
		}
	}

	cfg.ForecastCacheSecs = 60
	if v := os.Getenv("FORECAST_CACHE_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ForecastCacheSecs = n
		}
	}

	cfg.HistoryDays = 45
	if v := os.Getenv("HISTORY_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryDays = n
		}
	}

	cfg.MCPTransport = strings.ToLower(strings.TrimSpace(os.Getenv("MCP_TRANSPORT")))
	if cfg.MCPTransport == "" {
		cfg.MCPTransport = "stdio"
	}
	if cfg.MCPTransport != "stdio" {
		log.Printf("Warning: unsupported MCP_TRANSPORT=%q, defaulting to stdio", cfg.MCPTransport)
		cfg.MCPTransport = "stdio"
	}

	cfg.SSHPort = 2222
	if v := strings.TrimSpace(os.Getenv("SSH_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SSHPort = n
		}
	}

	cfg.SSHHostKeyPath = strings.TrimSpace(os.Getenv("SSH_HOST_KEY_PATH"))
	if cfg.SSHHostKeyPath == "" {
		cfg.SSHHostKeyPath = ".ssh/daily_bias_host_key"
	}

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.OpenAIAPIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set, advisor will be disabled")
	}

	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	cfg.AdvisorMaxHistory = 20
	if v := os.Getenv("ADVISOR_MAX_HISTORY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AdvisorMaxHistory = n
		}
	}

	cfg.DecayMaxHoursBefore = 6
	if v := strings.TrimSpace(os.Getenv("DECAY_MAX_HOURS_BEFORE")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			cfg.DecayMaxHoursBefore = n
		}
	}

	cfg.DecayMinFactor = 0.5
	if v := strings.TrimSpace(os.Getenv("DECAY_MIN_FACTOR")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n >= 0 && n <= 1 {
			cfg.DecayMinFactor = n
		}
	}

	return cfg
}
