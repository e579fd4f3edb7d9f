package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	// DatabaseDSN is optional; without it the audit trail is disabled.
	DatabaseDSN string `env:"DATABASE_DSN"`
	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	// DonorMatchURL is the donor-matching service consulted for candidates.
	DonorMatchURL string `env:"DONOR_MATCH_URL,required=true"`
	// FacilityGatewayURL receives facility coordination events; optional.
	FacilityGatewayURL string `env:"FACILITY_GATEWAY_URL"`

	PushGatewayURL     string `env:"PUSH_GATEWAY_URL,required=true"`
	WhatsAppGatewayURL string `env:"WHATSAPP_GATEWAY_URL,required=true"`
	SMSGatewayURL      string `env:"SMS_GATEWAY_URL,required=true"`
	EmailGatewayURL    string `env:"EMAIL_GATEWAY_URL,required=true"`

	RateLimitPerSec    int `env:"RATE_LIMIT_PER_SEC,default=100"`
	WorkerConcurrency  int `env:"WORKER_CONCURRENCY,default=16"`
	MaxRetries         int `env:"MAX_RETRIES,default=3"`
	RetryBaseDelayMS   int `env:"RETRY_BASE_DELAY_MS,default=1000"`
	RetryScanIntervalS int `env:"RETRY_SCAN_INTERVAL_S,default=30"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
