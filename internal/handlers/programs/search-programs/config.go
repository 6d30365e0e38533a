package searchprograms

import (
	"time"

	"immigration-portal/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	Index   string
	Limit   int
}

func LoadConfig(cfg *config.Config) *Config {
	hc := config.GetHandlerConfig(cfg, Operation)
	return &Config{
		Timeout: config.GetDuration(hc.Timeout),
		Index:   cfg.Database.Elasticsearch.ProgramsIndex,
		Limit:   25,
	}
}
