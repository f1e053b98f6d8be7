package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"spendlog/internal/cache"
	"spendlog/internal/chart"
	"spendlog/internal/log"
	"spendlog/internal/middleware/ratelimit"
	"spendlog/internal/middleware/security"
	"spendlog/internal/middleware/trace"
	"spendlog/internal/services"
	appweb "spendlog/web"
)

// Options tunes the server; zero values select defaults.
type Options struct {
	Logger             *log.Logger
	RateLimitPerMinute int
	// ChartCacheSize bounds how many rendered charts are kept.
	ChartCacheSize int
	ChartCacheTTL  time.Duration
}

type Server struct {
	http.Server
	tracker   *services.Tracker
	pie       *chart.PieRenderer
	templates *template.Template
	logger    *log.Logger
	started   time.Time

	limiter    *ratelimit.Limiter
	detector   *security.Detector
	tracer     *trace.Middleware
	chartCache *cache.LRUCache[[]byte]
	caches     *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates. pie must be the renderer the
// tracker publishes its breakdown to.
func NewServer(addr string, tracker *services.Tracker, pie *chart.PieRenderer, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	if pie == nil {
		pie = chart.NewPieRenderer(0, 0)
	}
	if opts.ChartCacheSize <= 0 {
		opts.ChartCacheSize = 32
	}
	if opts.ChartCacheTTL <= 0 {
		opts.ChartCacheTTL = 10 * time.Minute
	}

	mux := http.NewServeMux()
	s := &Server{
		tracker:    tracker,
		pie:        pie,
		logger:     logger,
		started:    time.Now(),
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:   security.NewDetector(),
		chartCache: cache.NewLRUCache[[]byte](opts.ChartCacheSize, opts.ChartCacheTTL),
		caches:     cache.NewManager(logger.WithComponent(log.ComponentCache).Slog()),
	}
	s.tracer = trace.NewMiddleware(s.detector.ClientIP)
	s.caches.Register(s.chartCache)
	s.caches.StartCleanup(5 * time.Minute)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
		t = nil
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /transactions/{id}/delete", s.handleDeleteTransaction)

	mux.HandleFunc("GET /ui/list", s.handleListPartial)
	mux.HandleFunc("GET /ui/summary", s.handleSummaryPartial)

	mux.HandleFunc("GET /api/transactions", s.handleAPITransactions)
	mux.HandleFunc("GET /api/transactions/patch", s.handleAPIPatch)
	mux.HandleFunc("GET /api/summary", s.handleAPISummary)
	mux.HandleFunc("GET /chart.png", s.handleChart)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ClientIP, s.onRateLimited, http.MethodPost, http.MethodDelete)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = log.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops background sweepers and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	NewHTMXResponse().
		Status(http.StatusTooManyRequests).
		Header("Retry-After", "60").
		TriggerToast(ToastError, "Too many requests, slow down").
		BodyHTML(`<div class="error">Rate limit exceeded. Please try again later.</div>`).
		Write(w)
}
