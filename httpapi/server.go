package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	goPairAuth "github.com/MrEthical07/goPairAuth"
	"github.com/MrEthical07/goPairAuth/internal/logx"
	"github.com/MrEthical07/goPairAuth/middleware"
)

// AuthService is the engine surface the handlers call. *goPairAuth.Engine
// implements it.
type AuthService interface {
	Register(ctx context.Context, req goPairAuth.RegisterRequest) (goPairAuth.TokenPair, error)
	Login(ctx context.Context, username, password string) (goPairAuth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (goPairAuth.TokenPair, error)
	LogoutCurrentDevice(ctx context.Context, accessToken string) error
	LogoutAllDevices(ctx context.Context, accessToken string) error
	ListSessions(ctx context.Context, accessToken string) ([]string, error)
	ChangePassword(ctx context.Context, accessToken, oldPassword, newPassword string) error
	Ping(ctx context.Context) (time.Duration, error)
}

// Config wires a Server.
type Config struct {
	Service AuthService
	// Authenticator defaults to one built from Service when Service also
	// implements middleware.Verifier and middleware.Resolver.
	Authenticator *middleware.Authenticator
	Logger        *slog.Logger

	// Metrics, when set, is mounted at GET /metrics.
	Metrics http.Handler

	// AuthRateLimit applies per client IP to register, login and refresh.
	// The zero value disables it.
	AuthRateLimit RateLimitConfig
	// ClientIP extracts the caller address; defaults to ClientIP.
	ClientIP KeyFunc
}

// Server is the HTTP boundary of the auth service.
type Server struct {
	svc    AuthService
	auth   *middleware.Authenticator
	logger *slog.Logger
	ip     KeyFunc
	mux    *http.ServeMux

	handler http.Handler
}

// New builds the route table.
func New(cfg Config) *Server {
	s := &Server{
		svc:    cfg.Service,
		auth:   cfg.Authenticator,
		logger: cfg.Logger,
		ip:     cfg.ClientIP,
		mux:    http.NewServeMux(),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.ip == nil {
		s.ip = ClientIP
	}
	if s.auth == nil {
		v, _ := cfg.Service.(middleware.Verifier)
		res, _ := cfg.Service.(middleware.Resolver)
		s.auth = middleware.NewAuthenticator(middleware.Config{}, v, res)
	}

	limited := RateLimit(cfg.AuthRateLimit, s.ip)
	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.Guard(s.auth)(middleware.RequireAuth(h))
	}

	s.mux.Handle("POST /api/v1/auth/register", limited(http.HandlerFunc(s.handleRegister)))
	s.mux.Handle("POST /api/v1/auth/login", limited(http.HandlerFunc(s.handleLogin)))
	s.mux.Handle("POST /api/v1/auth/refresh-pair-token", limited(http.HandlerFunc(s.handleRefresh)))
	s.mux.HandleFunc("POST /api/v1/auth/logout-current-device", s.handleLogoutCurrent)
	s.mux.HandleFunc("POST /api/v1/auth/logout-all-device", s.handleLogoutAll)
	s.mux.Handle("GET /api/v1/auth/sessions", authed(s.handleSessions))
	s.mux.Handle("POST /api/v1/auth/change-password", authed(s.handleChangePassword))
	s.mux.Handle("GET /api/v1/users/me", authed(s.handleMe))
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if cfg.Metrics != nil {
		s.mux.Handle("GET /metrics", cfg.Metrics)
	}

	s.handler = logx.HTTPMiddleware(s.logger)(s.clientContext(s.mux))
	return s
}

// Handler returns the full middleware chain: request logging, then client
// context, then routing.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// clientContext copies the caller IP and User-Agent into the request context
// for login throttling and audit records.
func (s *Server) clientContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := goPairAuth.WithClientIP(r.Context(), s.ip(r))
		ctx = goPairAuth.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) bearer(r *http.Request) (string, error) {
	token, ok := s.auth.Token(r.Header.Get(s.auth.HeaderName()))
	if !ok {
		return "", errMissingToken
	}
	return token, nil
}
