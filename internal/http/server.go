// Package http exposes the card, transaction, invoice and commitment
// services as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"carteira/internal/log"
	"carteira/internal/middleware/ratelimit"
	"carteira/internal/middleware/security"
	"carteira/internal/middleware/trace"
	"carteira/internal/services"
	"carteira/internal/session"
)

// HeaderUserID identifies the owner of every /api request.
const HeaderUserID = "X-User-ID"

// Services groups the application services the API is served from.
type Services struct {
	Cards        *services.CardService
	Transactions *services.TransactionService
	Invoices     *services.InvoiceService
	Commitments  *services.CommitmentService
	Reports      *services.ReportService
}

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Addr               string
	RateLimitPerMinute int
	TrustedProxies     []string
	Logger             *log.Logger
	// Now defaults to time.Now and decides the default session month.
	Now func() time.Time
}

type Server struct {
	http.Server
	svc    Services
	ready  Pinger
	logger *log.Logger
	now    func() time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	headers          *security.HeadersMiddleware

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	writes  atomic.Int64
	started time.Time
}

// NewServer wires the routes and the middleware chain. ready may be nil,
// in which case /readyz always succeeds.
func NewServer(svc Services, ready Pinger, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	limit := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limit.RequestsPerMinute = opts.RateLimitPerMinute
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring invalid trusted proxy", "cidr", cidr, "error", err)
		}
	}

	s := &Server{
		svc:              svc,
		ready:            ready,
		logger:           logger.WithComponent(log.ComponentHTTP),
		now:              now,
		rateLimiter:      ratelimit.NewLimiter(limit),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
		headers:          security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
	}
	s.appMetrics.started = now()

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.headers.Middleware(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.Handle("GET /api/cards", s.read(s.handleListCards))
	mux.Handle("POST /api/cards", s.write(s.handleCreateCard))

	mux.Handle("GET /api/transactions", s.read(s.handleListTransactions))
	mux.Handle("POST /api/transactions", s.write(s.handleCreateTransaction))
	mux.Handle("PATCH /api/transactions/{id}", s.write(s.handleUpdateTransaction))
	mux.Handle("DELETE /api/transactions/{id}", s.write(s.handleDeleteTransaction))
	mux.Handle("POST /api/transactions/{id}/paid", s.write(s.handleSetPaid(true)))
	mux.Handle("DELETE /api/transactions/{id}/paid", s.write(s.handleSetPaid(false)))
	mux.Handle("POST /api/card-purchases", s.write(s.handleCreateCardPurchase))

	mux.Handle("GET /api/invoices", s.read(s.handleListInvoices))
	mux.Handle("GET /api/invoices/{card}", s.read(s.handleGetInvoice))
	mux.Handle("POST /api/invoices/{card}/pay", s.write(s.handlePayInvoice))

	mux.Handle("GET /api/commitments", s.read(s.handleListCommitments))
	mux.Handle("POST /api/commitments", s.write(s.handleCreateCommitment))
	mux.Handle("PUT /api/commitments/{id}", s.write(s.handleUpdateCommitment))
	mux.Handle("DELETE /api/commitments/{id}", s.write(s.handleDeleteCommitment))
	mux.Handle("POST /api/commitments/generate", s.write(s.handleGenerateCommitments))

	mux.Handle("GET /api/report", s.read(s.handleReport))
	mux.Handle("GET /api/summary", s.read(s.handleSummary))
	mux.Handle("DELETE /api/account", s.write(s.handleResetAccount))
}

// read mounts h behind the session middleware.
func (s *Server) read(h http.HandlerFunc) http.Handler {
	return s.withSession(h)
}

// write is read plus the per-client rate limit.
func (s *Server) write(h http.HandlerFunc) http.Handler {
	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.Warn("Rate limit exceeded",
			log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, retry later").Write(w)
	})
	return limited(s.withSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.appMetrics.writes.Add(1)
		h(w, r)
	})))
}

// withSession builds the session from the owner header and the month and
// card query parameters.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := r.Header.Get(HeaderUserID)
		if owner == "" {
			ErrorResponse(http.StatusUnauthorized, "missing "+HeaderUserID+" header").Write(w)
			return
		}
		q := r.URL.Query()
		sess, err := session.New(owner, q.Get("month"), q.Get("card"), s.now())
		if err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), sess)))
	})
}

// Shutdown stops the rate limiter and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
