package managedraft

import (
	"time"

	"immigration-portal/internal/common/config"
)

const defaultMaxUploadBytes = 10 << 20

type Config struct {
	Timeout        time.Duration
	MaxUploadBytes int64
}

func LoadConfig(cfg *config.Config) *Config {
	hc := config.GetHandlerConfig(cfg, Operation)
	limit := cfg.Wizard.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	return &Config{
		Timeout:        config.GetDuration(hc.Timeout),
		MaxUploadBytes: limit,
	}
}
