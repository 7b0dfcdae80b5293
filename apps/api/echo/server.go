package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/observo/core"
	"github.com/trezcool/observo/core/flow"
	"github.com/trezcool/observo/core/journal"
	"github.com/trezcool/observo/core/lookup"
)

type (
	Options struct {
		Address        string
		AppName        string
		SecretKey      string
		Debug          bool
		TestMode       bool
		DisableReqLogs bool
	}

	Deps struct {
		Logger     core.Logger
		Translator ut.Translator
		Registry   *flow.Registry
		Lookups    *lookup.Provider
		Journal    journal.Repository
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts     *Options
		deps     *Deps
		shutdown chan os.Signal
		app      *echo.Echo
	}
)

var _ Server = (*server)(nil)

// NewServer returns the API server. A SIGTERM is sent to `shutdown` (when set) on core.shutdown errors.
func NewServer(opts *Options, shutdown chan os.Signal, deps *Deps) Server {
	s := &server{
		opts:     opts,
		deps:     deps,
		shutdown: shutdown,
		app:      echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.opts.Debug || s.opts.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = s.opts.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(s.opts.SecretKey))

	registerFlowAPI(v1, jwt, s.deps.Registry, s.deps.Lookups)
	registerLookupAPI(v1, jwt, s.deps.Lookups)
	registerSubmissionAPI(v1, jwt, s.deps.Journal)
}

func (s *server) signalShutdown() {
	if s.shutdown != nil {
		s.shutdown <- syscall.SIGTERM
	}
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.opts.AppName+" API!")
}
