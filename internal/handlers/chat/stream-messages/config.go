package streammessages

import (
	"time"

	"immigration-portal/internal/common/config"
)

type Config struct {
	Timeout        time.Duration
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

func LoadConfig(cfg *config.Config) *Config {
	hc := config.GetHandlerConfig(cfg, Operation)
	return &Config{
		Timeout:        config.GetDuration(hc.Timeout),
		PingInterval:   30 * time.Second,
		WriteTimeout:   10 * time.Second,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
}
