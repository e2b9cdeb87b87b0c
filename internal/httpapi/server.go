// Package httpapi exposes a wizard over HTTP with chi. Every request opens
// a session keyed by a cookie, runs one wizard operation and answers with
// the JSON snapshot.
//
//	GET  /                 view the current step (?reset clears the session)
//	GET  /{step}           view a step
//	GET  /{data}           full snapshot
//	POST /{step}           submit a step (form, multipart or JSON body)
//	POST /{prev}, /{next}  move the cursor
//	POST /{goto}/{target}  jump to an active step
//	POST /{commit}         revalidate and run the done handler
//
// The braced names are the wizard's configurable pseudo-step names.
package httpapi

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/petrijr/formflow/internal/persistence"
	"github.com/petrijr/formflow/pkg/api"
)

const (
	// DefaultCookieName names the session cookie.
	DefaultCookieName = "formflow_session"
	// DefaultMaxMemory bounds the in-memory part of multipart parsing.
	DefaultMaxMemory = 32 << 20
)

// Options configure a Server.
type Options struct {
	CookieName   string
	CookiePath   string
	CookieSecure bool
	MaxMemory    int64
	Files        api.FileStorage
	Logger       *slog.Logger
}

// Server serves one wizard.
type Server struct {
	wizard  api.Wizard
	backend api.StorageBackend
	names   api.StepNames
	opts    Options
	logger  *slog.Logger
	router  chi.Router
}

// New returns a Server for w storing sessions in backend.
func New(w api.Wizard, backend api.StorageBackend, opts Options) *Server {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.CookiePath == "" {
		opts.CookiePath = "/"
	}
	if opts.MaxMemory <= 0 {
		opts.MaxMemory = DefaultMaxMemory
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		wizard:  w,
		backend: backend,
		names:   w.StepNames(),
		opts:    opts,
		logger:  logger.With(slog.String("wizard", w.Name())),
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			s.logger.DebugContext(r.Context(), "request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("dur", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	})

	s.router.Get("/", s.handleView)
	s.router.Get("/{step}", s.handleView)
	s.router.Post("/{step}", s.handlePost)
	s.router.Post("/{op}/{target}", s.handleGoto)
}

// sessionKey returns the session key of r, minting one (and setting the
// cookie) when the request carries none or a malformed one.
func (s *Server) sessionKey(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(s.opts.CookieName); err == nil && persistence.ValidSessionKey(c.Value) {
		return c.Value
	}
	key := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    key,
		Path:     s.opts.CookiePath,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return key
}

func (s *Server) open(w http.ResponseWriter, r *http.Request) (api.Session, bool) {
	key := s.sessionKey(w, r)
	sess, err := s.wizard.Open(r.Context(), s.backend.Storage(key))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

// stepParam returns the unescaped path parameter name.
func stepParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
