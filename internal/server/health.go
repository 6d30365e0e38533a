package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// check is one readiness probe against a backing service.
type check struct {
	name string
	ping func(ctx context.Context) error
}

func (s *Server) readinessChecks() []check {
	checks := []check{
		{name: "postgres", ping: s.deps.DB.PingContext},
		{name: "redis", ping: func(ctx context.Context) error { return s.deps.Redis.Ping(ctx).Err() }},
	}
	if s.deps.Search != nil {
		checks = append(checks, check{name: "elasticsearch", ping: s.deps.Search.Ping})
	}
	return checks
}

// readiness reports 503 with the failing dependencies when any probe fails.
func readiness(checks []check) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for _, chk := range checks {
			if err := chk.ping(ctx); err != nil {
				results[chk.name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[chk.name] = "ok"
		}

		state := "ready"
		if status != http.StatusOK {
			state = "unavailable"
		}
		c.JSON(status, gin.H{"status": state, "checks": results})
	}
}
