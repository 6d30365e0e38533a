package extractdocument

import (
	"time"

	"immigration-portal/internal/common/config"
)

type Config struct {
	Timeout        time.Duration
	MaxUploadBytes int64
}

func LoadConfig(cfg *config.Config) *Config {
	hc := config.GetHandlerConfig(cfg, Operation)
	limit := cfg.Wizard.MaxUploadBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	return &Config{
		Timeout:        config.GetDuration(hc.Timeout),
		MaxUploadBytes: limit,
	}
}
