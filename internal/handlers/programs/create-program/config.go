package createprogram

import (
	"time"

	"immigration-portal/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// Index is the Elasticsearch index new programs are written to.
	Index string
}

func LoadConfig(cfg *config.Config) *Config {
	hc := config.GetHandlerConfig(cfg, Operation)
	return &Config{
		Timeout: config.GetDuration(hc.Timeout),
		Index:   cfg.Database.Elasticsearch.ProgramsIndex,
	}
}
