package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"sarvsaathi-server/internal/utils"
)

// trackedClients bounds the number of limiters kept in memory.
const trackedClients = 10000

// RateLimitConfig allows PerMinute requests per client with bursts of Burst.
type RateLimitConfig struct {
	PerMinute int
	Burst     int
}

type limiterStore struct {
	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.limiters.Get(key); ok {
		return l
	}
	l := rate.NewLimiter(s.limit, s.burst)
	s.limiters.Add(key, l)
	return l
}

// RateLimit throttles each authenticated user, or each client IP before
// authentication, to cfg.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	limiters, _ := lru.New[string, *rate.Limiter](trackedClients)
	store := &limiterStore{
		limiters: limiters,
		limit:    rate.Every(time.Minute / time.Duration(cfg.PerMinute)),
		burst:    cfg.Burst,
	}

	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if id, ok := GetUserIDFromContext(c); ok {
			key = "user:" + id
		}

		r := store.get(key).Reserve()
		if delay := r.Delay(); delay > 0 {
			r.Cancel()
			c.Header("Retry-After", strconv.Itoa(int(delay.Seconds())+1))
			utils.TooManyRequests(c, "Too many requests, please try again shortly")
			c.Abort()
			return
		}
		c.Next()
	}
}
