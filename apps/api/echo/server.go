package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/blog"
	"github.com/trezcool/schoolhealth/core/disease"
	"github.com/trezcool/schoolhealth/core/drugrequest"
	"github.com/trezcool/schoolhealth/core/form"
	"github.com/trezcool/schoolhealth/core/inventory"
	"github.com/trezcool/schoolhealth/core/user"
	"github.com/trezcool/schoolhealth/core/vaccination"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		AccessLogger   zerolog.Logger
		DisableReqLogs bool
		Validate       *validator.Validate
		Translator     ut.Translator
		Client         core.RESTClient
		Notifier       core.Notifier
		Metrics        prometheus.Gatherer // serves /metrics when set

		UserSvc        *user.Service
		DrugRequestSvc *drugrequest.Service
		InventorySvc   *inventory.Service
		VaccinationSvc *vaccination.Service
		DiseaseSvc     *disease.Service
		BlogSvc        *blog.Service
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
		flights  singleflight.Group
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:     opts,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !s.opts.DisableReqLogs {
		s.app.Use(requestLogger(s.opts.AccessLogger))
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	if s.opts.Metrics != nil {
		s.app.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.opts.Metrics, promhttp.HandlerOpts{})))
	}

	v1 := s.app.Group("/v1", sessionMiddleware(conf.Server.JWTSecret))

	registerDrugRequestAPI(v1, s)
	registerUserAPI(v1, s)
	registerInventoryAPI(v1, s)
	registerVaccinationAPI(v1, s)
	registerDiseaseAPI(v1, s)
	registerBlogAPI(v1, s)
}

// formConfig returns the configuration of a form of this server.
func (s *server) formConfig(successMsg, redirect string) form.Config {
	return form.Config{
		Validate:       s.opts.Validate,
		Translator:     s.opts.Translator,
		Client:         s.opts.Client,
		Notifier:       s.opts.Notifier,
		SuccessMessage: successMsg,
		Redirect:       redirect,
	}
}

func (s *server) pageSize() int {
	return s.opts.Conf.Dashboard.PageSize
}

func (s *server) Start() {
	if err := s.app.Start(s.opts.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.opts.Conf.AppName+" API!")
}
