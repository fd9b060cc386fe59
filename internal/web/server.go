// Package web is the HTTP shell of the site: a gin router serving the five
// profile sections as full pages or HTMX fragments, the publications upload
// flow and a small JSON API.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Zachkp/researcher-profile/internal/contact"
	"github.com/Zachkp/researcher-profile/internal/logging"
	"github.com/Zachkp/researcher-profile/internal/metrics"
	"github.com/Zachkp/researcher-profile/internal/profile"
	"github.com/Zachkp/researcher-profile/internal/publications"
	"github.com/Zachkp/researcher-profile/internal/session"
	"github.com/Zachkp/researcher-profile/internal/visits"
)

// Options are the shell-level limits and cookie settings.
type Options struct {
	CookieName     string
	SessionTTL     time.Duration
	SecureCookies  bool
	MaxUploadBytes int64
	// VisitRetention is shown on the privacy page.
	VisitRetention time.Duration
	// ServeMetrics mounts /metrics on the site router.
	ServeMetrics bool
}

// Deps are the collaborators a Server needs. Tracker may be nil to disable
// visitor tracking.
type Deps struct {
	Profile *profile.Profile
	Store   session.Store
	Tracker *visits.Tracker
	Mailer  contact.Mailer
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

type Server struct {
	Deps
	opts Options
}

func New(deps Deps, opts Options) *Server {
	return &Server{Deps: deps, opts: opts}
}

// Router builds the gin engine with all routes and middleware.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(logging.Recovery(s.Logger), logging.Middleware(s.Logger), s.Metrics.Middleware())
	r.SetHTMLTemplate(parseTemplates())
	r.StaticFS("/static", staticFS())

	site := r.Group("/")
	site.Use(session.Middleware(s.opts.CookieName, s.opts.SessionTTL, s.opts.SecureCookies))
	if s.Tracker != nil {
		site.Use(s.Tracker.Middleware())
	}

	site.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/profile")
	})
	site.GET("/profile", s.profilePage)
	site.GET("/education", s.educationPage)
	site.GET("/research", s.researchPage)
	site.GET("/publications", s.publicationsPage)
	site.POST("/publications/upload", s.uploadPublications)
	site.POST("/publications/clear", s.clearPublications)
	site.GET("/contact", s.contactPage)
	site.POST("/contact", s.sendContact)
	site.GET("/privacy", s.privacyPage)
	site.POST("/privacy/forget", s.forgetVisitor)

	api := site.Group("/api")
	api.GET("/publications", s.apiPublications)
	api.POST("/publications", s.apiUploadPublications)
	api.GET("/stats", s.apiStats)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
	})
	r.GET("/readyz", s.ready)
	if s.opts.ServeMetrics {
		r.GET("/metrics", gin.WrapH(s.Metrics.Handler()))
	}
	return r
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	status := http.StatusOK
	probe := func(name string, p pinger) {
		if err := p.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			return
		}
		checks[name] = "up"
	}
	if p, ok := s.Store.(pinger); ok {
		probe("sessions", p)
	}
	if s.Tracker != nil {
		probe("visits", s.Tracker)
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks})
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, publications.ErrParse),
		errors.Is(err, contact.ErrInvalidMessage),
		errors.Is(err, errNoFile):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound), errors.Is(err, errUnknownDegree):
		return http.StatusNotFound
	case errors.Is(err, contact.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
