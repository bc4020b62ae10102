package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"gestionventas/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// fixedWindow counts requests per client IP within a fixed window.
type fixedWindow struct {
	limit   int
	window  time.Duration
	mu      sync.Mutex
	entries map[string]*windowEntry
}

type windowEntry struct {
	count     int
	windowEnd time.Time
}

func newFixedWindow(limit int, window time.Duration) *fixedWindow {
	return &fixedWindow{limit: limit, window: window, entries: make(map[string]*windowEntry)}
}

// allow registers one hit for key and returns the end of the current window
// when the limit is exceeded.
func (w *fixedWindow) allow(key string, now time.Time) (bool, time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.entries[key]
	if !ok || now.After(e.windowEnd) {
		e = &windowEntry{windowEnd: now.Add(w.window)}
		w.entries[key] = e
	}
	e.count++
	return e.count <= w.limit, e.windowEnd
}

func (w *fixedWindow) purge(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for k, e := range w.entries {
		if now.After(e.windowEnd) {
			delete(w.entries, k)
			n++
		}
	}
	return n
}

var (
	limitersMu sync.Mutex
	limiters   []*fixedWindow
	purgeOnce  sync.Once
)

const purgeInterval = 5 * time.Minute

func register(w *fixedWindow) *fixedWindow {
	limitersMu.Lock()
	limiters = append(limiters, w)
	limitersMu.Unlock()
	purgeOnce.Do(func() { go purgeExpiredEntries() })
	return w
}

// purgeExpiredEntries drops windows of clients that never came back.
func purgeExpiredEntries() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for now := range ticker.C {
		limitersMu.Lock()
		total := 0
		for _, l := range limiters {
			total += l.purge(now)
		}
		limitersMu.Unlock()
		if total > 0 {
			log.Debug().Int("entries_purged", total).Msg("rate limiter maps purged")
		}
	}
}

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	w := register(newFixedWindow(20, time.Minute))
	return func(c *gin.Context) {
		if ok, _ := w.allow(c.ClientIP(), time.Now()); !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiados intentos de login. Intente en 1 minuto."))
			return
		}
		c.Next()
	}
}

// RateLimiter returns a general-purpose per-IP limiter.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	w := register(newFixedWindow(limit, window))
	return func(c *gin.Context) {
		now := time.Now()
		ok, end := w.allow(c.ClientIP(), now)
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(end.Sub(now).Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiadas solicitudes. Intente nuevamente en un momento."))
			return
		}
		c.Next()
	}
}
