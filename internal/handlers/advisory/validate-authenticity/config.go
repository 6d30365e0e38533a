package validateauthenticity

import (
	"time"

	"immigration-portal/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	hc := config.GetHandlerConfig(cfg, Operation)
	return &Config{
		Timeout: config.GetDuration(hc.Timeout),
	}
}
