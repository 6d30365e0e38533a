package sendemail

import (
	"fmt"
	"time"

	"immigration-portal/internal/common/config"
)

type Config struct {
	Timeout  time.Duration
	Provider string
	From     string
	RelayURL string
	RelayKey string
}

func LoadConfig(cfg *config.Config) *Config {
	hc := config.GetHandlerConfig(cfg, Operation)
	return &Config{
		Timeout:  config.GetDuration(hc.Timeout),
		Provider: cfg.Notifications.Provider,
		From:     cfg.Notifications.From,
		RelayURL: cfg.Notifications.HTTP.URL,
		RelayKey: cfg.Notifications.HTTP.APIKey,
	}
}

func (c *Config) Validate() error {
	if c.From == "" {
		return fmt.Errorf("from address is required")
	}
	switch c.Provider {
	case ProviderSES:
	case ProviderHTTP:
		if c.RelayURL == "" {
			return fmt.Errorf("relay url is required for the http provider")
		}
	default:
		return fmt.Errorf("unknown email provider %q", c.Provider)
	}
	return nil
}
