package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/avolkov/authgate/internal/observability"
)

// Admission controller default configuration constants.
const (
	// DefaultInterval is the default minimum spacing between admitted
	// requests from one client identity.
	DefaultInterval = time.Second

	// DefaultClientTTL is the default idle lifetime of a ledger entry.
	DefaultClientTTL = 10 * time.Minute

	// MinCleanupInterval is the minimum interval for ledger sweeps.
	MinCleanupInterval = 10 * time.Second

	// MaxCleanupInterval is the maximum interval for ledger sweeps.
	MaxCleanupInterval = time.Minute
)

// AdmissionController admits at most one request per client identity
// within a fixed interval. It keeps a ledger of last-admitted
// timestamps keyed by identity; rejected requests never touch their
// entry, so a client that keeps retrying inside the window is not
// penalised beyond the original spacing.
type AdmissionController struct {
	mu        sync.Mutex
	clients   map[string]time.Time
	interval  time.Duration
	clientTTL time.Duration
	global    *rate.Limiter
	logger    observability.Logger
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// AdmissionOption is a functional option for configuring the admission
// controller.
type AdmissionOption func(*AdmissionController)

// WithAdmissionLogger sets the logger for the admission controller.
func WithAdmissionLogger(logger observability.Logger) AdmissionOption {
	return func(ac *AdmissionController) {
		if logger != nil {
			ac.logger = logger
		}
	}
}

// WithClientTTL sets the idle lifetime of ledger entries.
func WithClientTTL(ttl time.Duration) AdmissionOption {
	return func(ac *AdmissionController) {
		if ttl > 0 {
			ac.clientTTL = ttl
		}
	}
}

// WithGlobalCeiling adds a global requests-per-second ceiling shared by
// all clients on top of the per-identity spacing. rps of zero disables
// the ceiling.
func WithGlobalCeiling(rps, burst int) AdmissionOption {
	return func(ac *AdmissionController) {
		if rps > 0 {
			if burst <= 0 {
				burst = rps
			}
			ac.global = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// NewAdmissionController creates an admission controller enforcing the
// given minimum interval between admitted requests per identity. An
// interval of zero or less falls back to DefaultInterval.
func NewAdmissionController(interval time.Duration, opts ...AdmissionOption) *AdmissionController {
	if interval <= 0 {
		interval = DefaultInterval
	}

	ac := &AdmissionController{
		clients:   make(map[string]time.Time),
		interval:  interval,
		clientTTL: DefaultClientTTL,
		logger:    observability.NopLogger(),
		stopCh:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(ac)
	}

	return ac
}

// Allow reports whether a request from the given identity is admitted
// now. The check against the ledger and the timestamp update happen in
// a single critical section so that two near-simultaneous requests
// from one identity cannot both be admitted. Rejected requests leave
// the ledger entry untouched.
func (ac *AdmissionController) Allow(identity string) bool {
	now := time.Now()

	ac.mu.Lock()
	defer ac.mu.Unlock()

	last, seen := ac.clients[identity]
	if seen && now.Sub(last) < ac.interval {
		return false
	}
	if ac.global != nil && !ac.global.Allow() {
		return false
	}
	ac.clients[identity] = now
	return true
}

// Len returns the number of identities currently in the ledger.
func (ac *AdmissionController) Len() int {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	return len(ac.clients)
}

// Cleanup removes ledger entries that have not been admitted within
// maxAge. Without it the ledger grows by one entry per distinct
// identity for the life of the process.
func (ac *AdmissionController) Cleanup(maxAge time.Duration) {
	ac.mu.Lock()
	defer ac.mu.Unlock()

	now := time.Now()
	expired := make([]string, 0)

	for identity, last := range ac.clients {
		if now.Sub(last) > maxAge {
			expired = append(expired, identity)
		}
	}

	for _, identity := range expired {
		delete(ac.clients, identity)
	}

	if len(expired) > 0 {
		ac.logger.Debug("evicted idle admission entries",
			observability.Int("removed", len(expired)),
			observability.Int("remaining", len(ac.clients)),
		)
	}
}

// StartAutoCleanup starts a goroutine that periodically sweeps idle
// ledger entries. Stop terminates it.
func (ac *AdmissionController) StartAutoCleanup() {
	go func() {
		// Sweep at half the TTL, clamped to sane bounds
		interval := ac.clientTTL / 2
		if interval > MaxCleanupInterval {
			interval = MaxCleanupInterval
		}
		if interval < MinCleanupInterval {
			interval = MinCleanupInterval
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ac.Cleanup(ac.clientTTL)
			case <-ac.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the cleanup goroutine. Safe to call more than once.
func (ac *AdmissionController) Stop() {
	ac.stopOnce.Do(func() {
		close(ac.stopCh)
	})
}

// GateConfig holds configuration for the request gate middleware.
type GateConfig struct {
	// Admission is the per-identity admission controller. Nil disables
	// admission control, leaving only instrumentation.
	Admission *AdmissionController

	// Extractor resolves the client identity. Nil falls back to a
	// secure extractor that only trusts RemoteAddr.
	Extractor *ClientIPExtractor

	// ExemptPrefixes lists path prefixes that bypass the gate entirely.
	ExemptPrefixes []string

	// Logger for request logging.
	Logger observability.Logger

	// Metrics records request and rejection counters. Optional.
	Metrics *observability.Metrics
}

// Gate returns the request gate middleware. Every non-exempt request
// passes through admission control and instrumentation: requests from
// loopback clients are always admitted, everything else is spaced per
// identity, and admitted requests get a timing header plus structured
// request logs.
func Gate(cfg GateConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger()
	}
	if cfg.Extractor == nil {
		cfg.Extractor = NewClientIPExtractor(nil)
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if hasPrefix(path, cfg.ExemptPrefixes) {
			c.Next()
			return
		}

		identity := cfg.Extractor.Identity(c.Request)

		if cfg.Admission != nil && !IsLoopback(identity) && !cfg.Admission.Allow(identity) {
			cfg.Logger.Warn("request rejected",
				observability.String("client", identity),
				observability.String("method", c.Request.Method),
				observability.String("path", path),
			)
			if cfg.Metrics != nil {
				cfg.Metrics.RecordRateLimitHit(path)
			}
			c.String(http.StatusTooManyRequests, MsgRateLimitExceeded)
			c.Abort()
			return
		}

		start := time.Now()
		c.Writer = &processTimeWriter{ResponseWriter: c.Writer, start: start}

		cfg.Logger.Debug("request admitted",
			observability.String("client", identity),
			observability.String("method", c.Request.Method),
			observability.String("path", path),
		)

		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()

		fields := []observability.Field{
			observability.String("client", identity),
			observability.String("method", c.Request.Method),
			observability.String("path", path),
			observability.Int("status", status),
			observability.Duration("elapsed", elapsed),
		}
		switch {
		case status >= http.StatusInternalServerError:
			cfg.Logger.Error("request completed", fields...)
		case status >= http.StatusBadRequest:
			cfg.Logger.Warn("request completed", fields...)
		default:
			cfg.Logger.Info("request completed", fields...)
		}

		if cfg.Metrics != nil {
			cfg.Metrics.RecordRequest(c.Request.Method, path, status, elapsed)
		}
	}
}

// hasPrefix reports whether path starts with any of the prefixes.
func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// processTimeWriter injects the X-Process-Time header just before the
// response status is written, since headers are immutable afterwards.
type processTimeWriter struct {
	gin.ResponseWriter
	start time.Time
	set   bool
}

func (w *processTimeWriter) setProcessTime() {
	if w.set {
		return
	}
	w.set = true
	elapsed := time.Since(w.start).Seconds()
	w.Header().Set(HeaderProcessTime, strconv.FormatFloat(elapsed, 'f', -1, 64))
}

// WriteHeader sets the timing header before delegating.
func (w *processTimeWriter) WriteHeader(code int) {
	w.setProcessTime()
	w.ResponseWriter.WriteHeader(code)
}

// Write sets the timing header before the first body write.
func (w *processTimeWriter) Write(b []byte) (int, error) {
	w.setProcessTime()
	return w.ResponseWriter.Write(b)
}

// WriteString sets the timing header before the first body write.
func (w *processTimeWriter) WriteString(s string) (int, error) {
	w.setProcessTime()
	return w.ResponseWriter.WriteString(s)
}
