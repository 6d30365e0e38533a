package submitapplication

import (
	"time"

	"immigration-portal/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	LockTTL time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	hc := config.GetHandlerConfig(cfg, Operation)
	lockTTL := time.Duration(cfg.Wizard.SubmitLockTTL) * time.Second
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &Config{
		Timeout: config.GetDuration(hc.Timeout),
		LockTTL: lockTTL,
	}
}
