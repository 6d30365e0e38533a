package signin

import (
	"time"

	"immigration-portal/internal/common/config"
	"immigration-portal/internal/handlers/handlerutil"
)

type Config struct {
	Timeout             time.Duration
	Cookie              handlerutil.CookieConfig
	BootstrapAdminEmail string
}

func LoadConfig(cfg *config.Config) *Config {
	hc := config.GetHandlerConfig(cfg, Operation)
	return &Config{
		Timeout: config.GetDuration(hc.Timeout),
		Cookie: handlerutil.CookieConfig{
			Name:   cfg.Auth.Session.CookieName,
			TTL:    time.Duration(cfg.Auth.Session.TTL) * time.Second,
			Secure: cfg.Auth.Session.Secure,
		},
		BootstrapAdminEmail: cfg.Auth.BootstrapAdminEmail,
	}
}
