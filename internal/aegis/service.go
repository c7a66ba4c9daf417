package aegis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/evanhutnik/aegis-service/internal/auth"
	"github.com/evanhutnik/aegis-service/internal/metrics"
	"github.com/evanhutnik/aegis-service/internal/planner"
	"github.com/evanhutnik/aegis-service/internal/users"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type CodeError struct {
	code int
	msg  string
}

func (c CodeError) Error() string {
	return c.msg
}

func (c CodeError) Code() int {
	return c.code
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type Service struct {
	planner  *planner.Planner
	accounts *users.Accounts
	tokens   *auth.Manager
	metrics  *metrics.Registry
	checks   map[string]func(context.Context) error
	runners  []func(context.Context)

	Logger *zap.SugaredLogger
}

func New(p *planner.Planner, accounts *users.Accounts, tokens *auth.Manager, m *metrics.Registry, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if m == nil {
		m = metrics.NewRegistry()
	}
	return &Service{
		planner:  p,
		accounts: accounts,
		tokens:   tokens,
		metrics:  m,
		checks:   make(map[string]func(context.Context) error),
		Logger:   logger,
	}
}

// AddHealthCheck registers a dependency probed by /healthz.
func (s *Service) AddHealthCheck(name string, check func(context.Context) error) {
	s.checks[name] = check
}

func (s *Service) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/routes", s.RoutesHandler).Methods(http.MethodPost)
	api.HandleFunc("/areas", s.AreasHandler).Methods(http.MethodGet)
	api.HandleFunc("/areas/compare", s.CompareHandler).Methods(http.MethodGet)
	api.HandleFunc("/areas/{id:[0-9]+}/trends", s.TrendsHandler).Methods(http.MethodGet)
	api.HandleFunc("/auth/signup", s.SignupHandler).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.LoginHandler).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", s.MeHandler).Methods(http.MethodGet)
	api.HandleFunc("/auth/user", s.ProfileHandler).Methods(http.MethodGet)
	api.HandleFunc("/auth/user", s.UpdateProfileHandler).Methods(http.MethodPut)
	api.HandleFunc("/sos/alert", s.SOSHandler).Methods(http.MethodPost)

	r.HandleFunc("/healthz", s.HealthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Service) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	for _, run := range s.runners {
		go run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Infow("Listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// requestMiddleware tags each request with an id, limits its body and
// records its outcome.
func (s *Service) requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		duration := time.Since(start)
		s.metrics.RecordHTTPRequest(r.Method, path, rec.status, duration)
		s.Logger.Debugw("Request served",
			"method", r.Method, "path", path, "status", rec.status,
			"duration", duration, "request_id", requestID)
	})
}

func (s *Service) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks,omitempty"`
	}{Status: "healthy"}

	code := http.StatusOK
	if len(s.checks) > 0 {
		resp.Checks = make(map[string]string, len(s.checks))
		for name, check := range s.checks {
			if err := check(r.Context()); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				continue
			}
			resp.Checks[name] = "ok"
		}
	}
	s.writeJSON(w, code, resp)
}

func (s *Service) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return CodeError{code: http.StatusBadRequest, msg: "Invalid request body"}
	}
	return nil
}

func (s *Service) writeError(w http.ResponseWriter, err error) {
	var codeErr CodeError
	if errors.As(err, &codeErr) {
		s.writeJSON(w, codeErr.code, ErrorResponse{Error: codeErr.Error()})
		return
	}
	s.Logger.Errorw(err.Error(), "action", "writeError")
	w.WriteHeader(http.StatusInternalServerError)
	io.WriteString(w, "Internal server error")
}

func (s *Service) writeResponse(w http.ResponseWriter, resp any) {
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Service) writeJSON(w http.ResponseWriter, code int, body any) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		s.Logger.Errorf("Error marshalling response: %v", err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(bodyBytes)
}
