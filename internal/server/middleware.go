package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"immigration-portal/internal/common/access"
	apperrors "immigration-portal/internal/common/errors"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/metrics"
	"immigration-portal/internal/common/observability"
	"immigration-portal/internal/common/session"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ==========================
// Session Resolution
// ==========================

// SessionLoader is satisfied by *session.Store.
type SessionLoader interface {
	Get(ctx context.Context, id string) (*session.Session, error)
}

// sessionID reads the session id from the cookie, falling back to a bearer header.
func sessionID(c *gin.Context, cookieName string) string {
	if id, err := c.Cookie(cookieName); err == nil && id != "" {
		return id
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// withSession attaches the caller's session, if any, to the request context.
// Unknown or expired ids leave the request anonymous.
func withSession(sessions SessionLoader, cookieName string, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := sessionID(c, cookieName)
		if id == "" {
			c.Next()
			return
		}

		s, err := sessions.Get(c.Request.Context(), id)
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				log.Warn("session lookup failed", map[string]interface{}{"error": err.Error()})
			}
			c.Next()
			return
		}

		c.Request = c.Request.WithContext(session.NewContext(c.Request.Context(), s))
		c.Set("userId", s.UserID)
		c.Next()
	}
}

// ==========================
// Guards
// ==========================

func wantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}

// guard enforces req. Browsers are redirected; API callers get 401 or 403
// with the redirect target in the body.
func guard(req access.Requirement) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := session.FromContext(c.Request.Context())
		decision := access.Decide(s, req)
		if decision.Allow {
			c.Next()
			return
		}

		if wantsHTML(c) {
			c.Redirect(http.StatusFound, decision.Redirect)
			c.Abort()
			return
		}

		var stdErr *apperrors.StandardError
		if s == nil {
			stdErr = apperrors.NewUnauthenticatedError()
		} else {
			stdErr = apperrors.NewForbiddenError("administrator role required for " + c.FullPath())
		}
		metrics.OperationErrors.WithLabelValues("guard", apperrors.GetErrorCategory(stdErr.Code)).Inc()
		c.AbortWithStatusJSON(apperrors.HTTPStatus(stdErr.Code), apperrors.ErrorResponse{
			Error:    stdErr.Message,
			Code:     string(stdErr.Code),
			Redirect: decision.Redirect,
		})
	}
}

// ==========================
// Rate Limiting
// ==========================

// limiterIdleTTL is how long a client's bucket survives without requests.
// It is far longer than any bucket takes to refill, so a dropped bucket is
// indistinguishable from a fresh one.
const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per client address. Buckets idle for
// limiterIdleTTL are swept on access at most once per limiterIdleTTL.
type rateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	rate      rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newRateLimiter(requestsPerSecond, burst int) *rateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	if burst <= 0 {
		burst = requestsPerSecond * 2
	}
	return &rateLimiter{
		limiters:  make(map[string]*clientLimiter),
		rate:      rate.Limit(requestsPerSecond),
		burst:     burst,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (rl *rateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= limiterIdleTTL {
		rl.sweep(now)
	}

	cl, ok := rl.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// sweep drops idle buckets. Callers hold mu.
func (rl *rateLimiter) sweep(now time.Time) {
	for key, cl := range rl.limiters {
		if now.Sub(cl.lastSeen) >= limiterIdleTTL {
			delete(rl.limiters, key)
		}
	}
	rl.lastSweep = now
}

func (rl *rateLimiter) middleware(errs *apperrors.ErrorHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			metrics.OperationErrors.WithLabelValues("rate-limit", apperrors.GetErrorCategory(apperrors.ErrCodeRateLimited)).Inc()
			errs.Respond(c, apperrors.NewRateLimitedError())
			return
		}
		c.Next()
	}
}

// ==========================
// Metrics
// ==========================

func recordRequests(obs *observability.Observability) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		status := c.Writer.Status()

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(elapsed.Seconds())
		obs.RecordRequest(c.Request.Context(), route, status, elapsed)
	}
}
